package search

import (
	"context"
	"fmt"

	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage/models"
)

// Indexer 文档索引写入能力，由Meilisearch适配器实现
type Indexer interface {
	UpsertDocuments(docs interface{}) error
	DeleteDocument(id string) error
}

// JobBatcher 全量岗位批次读取能力
type JobBatcher interface {
	ActiveJobsInBatches(ctx context.Context, batchSize int, fn func(jobs []models.Job) error) error
}

// Synchronizer 负责把岗位行同步进搜索索引
// 数据库是数据权威，索引按岗位保存后的状态覆盖写入
type Synchronizer struct {
	index Indexer
}

// NewSynchronizer 创建索引同步器
func NewSynchronizer(index Indexer) *Synchronizer {
	return &Synchronizer{index: index}
}

// SyncJob 同步单个岗位：活跃则覆盖写入，非活跃则从索引删除
func (s *Synchronizer) SyncJob(ctx context.Context, job *models.Job) error {
	if s == nil || s.index == nil {
		return nil
	}

	if !job.IsActive {
		if err := s.index.DeleteDocument(job.JobID); err != nil {
			return fmt.Errorf("从索引删除岗位 %s 失败: %w", job.JobID, err)
		}
		logger.Debug().Str("job_id", job.JobID).Msg("岗位已从搜索索引删除")
		return nil
	}

	if err := s.index.UpsertDocuments([]*JobDocument{BuildJobDocument(job)}); err != nil {
		return fmt.Errorf("同步岗位 %s 到索引失败: %w", job.JobID, err)
	}
	logger.Debug().Str("job_id", job.JobID).Msg("岗位已同步到搜索索引")
	return nil
}

// ResyncAll 分批全量重建活跃岗位索引，返回同步的岗位数
func (s *Synchronizer) ResyncAll(ctx context.Context, batcher JobBatcher, batchSize int) (int, error) {
	if s == nil || s.index == nil {
		return 0, fmt.Errorf("搜索索引不可用")
	}

	total := 0
	err := batcher.ActiveJobsInBatches(ctx, batchSize, func(jobs []models.Job) error {
		docs := make([]*JobDocument, 0, len(jobs))
		for i := range jobs {
			docs = append(docs, BuildJobDocument(&jobs[i]))
		}
		if err := s.index.UpsertDocuments(docs); err != nil {
			return fmt.Errorf("批量写入索引失败: %w", err)
		}
		total += len(docs)
		logger.Info().Int("batch", len(docs)).Int("total", total).Msg("索引重建批次完成")
		return nil
	})
	if err != nil {
		return total, err
	}

	logger.Info().Int("total", total).Msg("岗位索引全量重建完成")
	return total, nil
}

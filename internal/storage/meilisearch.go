package storage

import (
	"fmt"

	"job-portal-go/internal/config"
	"job-portal-go/internal/logger"

	"github.com/meilisearch/meilisearch-go"
)

// Meilisearch 岗位全文索引适配器
// 索引是排名权威，关系库是数据权威；索引文档允许相对数据库短暂滞后
type Meilisearch struct {
	client *meilisearch.Client
	index  *meilisearch.Index
	cfg    *config.MeilisearchConfig
}

// NewMeilisearch 创建Meilisearch客户端并配置岗位索引的可过滤/可排序属性
func NewMeilisearch(cfg *config.MeilisearchConfig) (*Meilisearch, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, fmt.Errorf("Meilisearch配置不能为空")
	}

	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   cfg.Host,
		APIKey: cfg.APIKey,
	})

	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("连接Meilisearch失败 (%s): %w", cfg.Host, err)
	}

	m := &Meilisearch{
		client: client,
		index:  client.Index(cfg.Index),
		cfg:    cfg,
	}

	if err := m.ensureIndexSettings(); err != nil {
		return nil, err
	}

	logger.Info().Str("host", cfg.Host).Str("index", cfg.Index).Msg("Meilisearch客户端初始化成功")
	return m, nil
}

// ensureIndexSettings 声明查询路径依赖的过滤与排序属性
func (m *Meilisearch) ensureIndexSettings() error {
	_, err := m.index.UpdateSettings(&meilisearch.Settings{
		FilterableAttributes: []string{"is_active", "location_city", "type", "salary_min", "salary_max"},
		SortableAttributes:   []string{"posted_at"},
		SearchableAttributes: []string{"title", "description", "skills", "company_name", "location"},
	})
	if err != nil {
		return fmt.Errorf("更新索引设置失败: %w", err)
	}
	return nil
}

// UpsertDocuments 按主键id写入或覆盖索引文档
func (m *Meilisearch) UpsertDocuments(docs interface{}) error {
	if _, err := m.index.AddDocuments(docs, "id"); err != nil {
		return fmt.Errorf("写入索引文档失败: %w", err)
	}
	return nil
}

// DeleteDocument 按id删除索引文档
func (m *Meilisearch) DeleteDocument(id string) error {
	if _, err := m.index.DeleteDocument(id); err != nil {
		return fmt.Errorf("删除索引文档失败: %w", err)
	}
	return nil
}

// Search 执行索引查询
func (m *Meilisearch) Search(query string, req *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error) {
	return m.index.Search(query, req)
}

package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"job-portal-go/internal/aiclient"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage/models"
)

// JobStore JD生成任务需要的岗位读写能力
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*models.Job, error)
	SetJobDescription(ctx context.Context, jobID string, description string) error
	UpsertAIJobMetadata(ctx context.Context, meta *models.AIJobMetadata) error
}

// DescriptionCache 岗位描述缓存失效能力
type DescriptionCache interface {
	InvalidateJobDescription(ctx context.Context, jobID string) error
}

// Notifier 公司通知能力
type Notifier interface {
	JobDescriptionGenerated(ctx context.Context, company *models.Company, job *models.Job) error
}

// GenerateDescriptionHandler JD生成任务处理器
// 生成结果覆盖岗位描述并更新AI元数据；通知和缓存失效都是尽力而为
type GenerateDescriptionHandler struct {
	store    JobStore
	ai       aiclient.DescriptionGenerator
	cache    DescriptionCache
	notifier Notifier
}

// NewGenerateDescriptionHandler 创建JD生成任务处理器，cache和notifier允许为nil
func NewGenerateDescriptionHandler(store JobStore, ai aiclient.DescriptionGenerator, cache DescriptionCache, notifier Notifier) *GenerateDescriptionHandler {
	return &GenerateDescriptionHandler{store: store, ai: ai, cache: cache, notifier: notifier}
}

// Handle 执行JD生成
func (h *GenerateDescriptionHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var p GenerateDescriptionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logger.Error().Err(err).Msg("JD生成任务载荷非法")
		return nil
	}

	job, err := h.store.GetJobByID(ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("查询岗位失败: %w", err)
	}
	if job == nil {
		logger.Warn().Str("job_id", p.JobID).Msg("岗位不存在，跳过JD生成")
		return nil
	}

	req := &aiclient.GenerateRequest{
		Title:   job.Title,
		Prompts: p.Prompt,
		Locale:  p.Locale,
	}
	if job.Company != nil {
		req.CompanyName = job.Company.Name
	}

	result, err := h.ai.GenerateDescription(ctx, req, false)
	if err != nil {
		return fmt.Errorf("岗位 %s JD生成失败: %w", job.JobID, err)
	}

	if err := h.store.SetJobDescription(ctx, job.JobID, result.Description); err != nil {
		return fmt.Errorf("写入岗位描述失败: %w", err)
	}

	now := time.Now()
	meta := &models.AIJobMetadata{
		JobID:                job.JobID,
		GeneratedDescription: result.Description,
		ModelName:            result.ModelName,
		ProcessedAt:          &now,
	}
	if meta.ExtractedRequirements, err = models.StringsToJSON(result.Requirements); err != nil {
		return fmt.Errorf("序列化提取的岗位要求失败: %w", err)
	}
	if meta.SuggestedSkills, err = models.StringsToJSON(result.SuggestedSkills); err != nil {
		return fmt.Errorf("序列化建议技能失败: %w", err)
	}
	if err := h.store.UpsertAIJobMetadata(ctx, meta); err != nil {
		return fmt.Errorf("写入AI岗位元数据失败: %w", err)
	}

	// 描述已变化，清掉旧缓存
	if h.cache != nil {
		if cacheErr := h.cache.InvalidateJobDescription(ctx, job.JobID); cacheErr != nil {
			logger.Warn().Err(cacheErr).Str("job_id", job.JobID).Msg("清除岗位描述缓存失败")
		}
	}

	// 通知失败不影响任务结果
	if h.notifier != nil && job.Company != nil && job.Company.Email != "" {
		if notifyErr := h.notifier.JobDescriptionGenerated(ctx, job.Company, job); notifyErr != nil {
			logger.Warn().
				Err(notifyErr).
				Str("job_id", job.JobID).
				Str("company_id", job.Company.CompanyID).
				Msg("发送JD生成完成通知失败")
		}
	}

	logger.Info().
		Str("job_id", job.JobID).
		Str("model", result.ModelName).
		Msg("JD生成完成")
	return nil
}

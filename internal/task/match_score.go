package task

import (
	"context"
	"encoding/json"
	"fmt"

	"job-portal-go/internal/aiclient"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage/models"
)

// ApplicationStore 匹配打分任务需要的申请读写能力
type ApplicationStore interface {
	GetApplicationDetail(ctx context.Context, applicationID string) (*models.Application, error)
	SetApplicationScore(ctx context.Context, applicationID string, score float64) error
}

// MatchScoreHandler 匹配打分任务处理器
type MatchScoreHandler struct {
	store ApplicationStore
	ai    aiclient.MatchScorer
}

// NewMatchScoreHandler 创建匹配打分任务处理器
func NewMatchScoreHandler(store ApplicationStore, ai aiclient.MatchScorer) *MatchScoreHandler {
	return &MatchScoreHandler{store: store, ai: ai}
}

// Handle 执行匹配打分
// 申请、岗位、简历任一缺失或简历尚未解析时静默结束，等待后续重新触发
func (h *MatchScoreHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var p MatchScorePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logger.Error().Err(err).Msg("匹配打分任务载荷非法")
		return nil
	}

	app, err := h.store.GetApplicationDetail(ctx, p.ApplicationID)
	if err != nil {
		return fmt.Errorf("查询申请失败: %w", err)
	}
	if app == nil {
		logger.Warn().Str("application_id", p.ApplicationID).Msg("申请不存在，跳过打分")
		return nil
	}
	if app.Score != nil {
		logger.Info().Str("application_id", app.ApplicationID).Msg("申请已有得分，跳过")
		return nil
	}
	if app.Job == nil {
		logger.Warn().Str("application_id", app.ApplicationID).Msg("申请关联的岗位不存在，跳过打分")
		return nil
	}
	if app.Resume == nil {
		logger.Warn().Str("application_id", app.ApplicationID).Msg("申请未关联简历，跳过打分")
		return nil
	}
	if !app.Resume.Parsed() {
		logger.Info().
			Str("application_id", app.ApplicationID).
			Str("resume_id", app.Resume.ResumeID).
			Msg("简历尚未解析，暂不打分")
		return nil
	}

	req := &aiclient.MatchRequest{
		JobID:                     app.Job.JobID,
		JobDescription:            app.Job.Description,
		CandidateResumeParsedJSON: json.RawMessage(app.Resume.ParsedProfile),
	}

	result, err := h.ai.MatchScore(ctx, req)
	if err != nil {
		return fmt.Errorf("申请 %s 匹配打分失败: %w", app.ApplicationID, err)
	}

	if err := h.store.SetApplicationScore(ctx, app.ApplicationID, result.Score); err != nil {
		return fmt.Errorf("写入匹配得分失败: %w", err)
	}

	logger.Info().
		Str("application_id", app.ApplicationID).
		Float64("score", result.Score).
		Msg("匹配打分完成")
	return nil
}

package task

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"job-portal-go/internal/aiclient"
	"job-portal-go/internal/constants"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage"
	"job-portal-go/internal/storage/models"

	"gorm.io/datatypes"
)

// ResumeStore CV解析任务需要的简历读写能力
type ResumeStore interface {
	GetResumeByID(ctx context.Context, resumeID string) (*models.Resume, error)
	SetResumeParsedProfile(ctx context.Context, resumeID string, profile datatypes.JSON) error
}

// AnalyzeCVHandler CV解析任务处理器
// 优先把external_url交给AI服务拉取；没有外部URL时回退为读本地文件并内联原文
type AnalyzeCVHandler struct {
	store ResumeStore
	files storage.ResumeFileStore
	ai    aiclient.CVAnalyzer
}

// NewAnalyzeCVHandler 创建CV解析任务处理器
func NewAnalyzeCVHandler(store ResumeStore, files storage.ResumeFileStore, ai aiclient.CVAnalyzer) *AnalyzeCVHandler {
	return &AnalyzeCVHandler{store: store, files: files, ai: ai}
}

// Handle 执行CV解析
// 简历不存在或已解析时直接结束；内联原文不可用时放弃本次任务而不是重试
func (h *AnalyzeCVHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var p AnalyzeCVPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logger.Error().Err(err).Msg("CV解析任务载荷非法")
		return nil
	}

	resume, err := h.store.GetResumeByID(ctx, p.ResumeID)
	if err != nil {
		return fmt.Errorf("查询简历失败: %w", err)
	}
	if resume == nil {
		logger.Warn().Str("resume_id", p.ResumeID).Msg("简历不存在，跳过CV解析")
		return nil
	}
	if resume.Parsed() {
		logger.Info().Str("resume_id", p.ResumeID).Msg("简历已有解析结果，跳过")
		return nil
	}

	req := &aiclient.AnalyzeRequest{ResumeID: resume.ResumeID}
	if resume.ExternalURL != nil && *resume.ExternalURL != "" {
		req.S3URL = *resume.ExternalURL
	} else {
		rawText, ok := h.loadLocalText(ctx, resume)
		if !ok {
			return nil
		}
		req.RawText = rawText
	}

	profile, err := h.ai.AnalyzeCV(ctx, req)
	if err != nil {
		return fmt.Errorf("简历 %s 解析失败: %w", resume.ResumeID, err)
	}

	// 画像文档原样落库，不做结构假设
	if err := h.store.SetResumeParsedProfile(ctx, resume.ResumeID, datatypes.JSON(profile)); err != nil {
		return fmt.Errorf("写入简历解析结果失败: %w", err)
	}

	logger.Info().
		Str("resume_id", resume.ResumeID).
		Int("profile_bytes", len(profile)).
		Msg("CV解析完成")
	return nil
}

// loadLocalText 读取本地简历原文供内联传输
// 文件读不到、内容不是合法UTF-8或超过长度上限时返回ok=false，任务放弃而不重试
func (h *AnalyzeCVHandler) loadLocalText(ctx context.Context, resume *models.Resume) (string, bool) {
	data, err := h.files.Read(ctx, resume.FilePath)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("resume_id", resume.ResumeID).
			Str("file_path", resume.FilePath).
			Msg("简历文件不存在或不可读，放弃解析")
		return "", false
	}

	if !utf8.Valid(data) {
		logger.Warn().
			Str("resume_id", resume.ResumeID).
			Str("file_path", resume.FilePath).
			Msg("简历文件不是合法UTF-8文本，无法内联解析")
		return "", false
	}

	text := string(data)
	if utf8.RuneCountInString(text) >= constants.RawTextMaxChars {
		logger.Warn().
			Str("resume_id", resume.ResumeID).
			Int("chars", utf8.RuneCountInString(text)).
			Msg("简历文本超过内联长度上限，放弃解析")
		return "", false
	}

	return text, true
}

package handler

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"job-portal-go/internal/api/middleware"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage"
	"job-portal-go/internal/storage/models"
	"job-portal-go/internal/task"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
)

// ResumeHandler 简历上传与查询
type ResumeHandler struct {
	storage  *storage.Storage
	enqueuer task.Enqueuer
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(storage *storage.Storage, enqueuer task.Enqueuer) *ResumeHandler {
	return &ResumeHandler{storage: storage, enqueuer: enqueuer}
}

// Upload 上传简历文件，落库后投递CV解析任务
func (h *ResumeHandler) Upload(ctx context.Context, c *app.RequestContext) {
	p := middleware.CurrentPrincipal(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, consts.StatusBadRequest, "文件未找到")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, consts.StatusInternalServerError, "打开文件失败")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		respondError(c, consts.StatusInternalServerError, "读取上传文件内容失败")
		return
	}

	// 文件级MD5去重，同一份文件不重复入库和解析
	fileMD5Hex := fmt.Sprintf("%x", md5.Sum(fileBytes))
	exists, err := h.storage.Redis.CheckResumeFileMD5Exists(ctx, fileMD5Hex)
	if err != nil {
		logger.Error().Err(err).Str("md5", fileMD5Hex).Msg("查询简历文件MD5失败")
		respondError(c, consts.StatusInternalServerError, "检查文件重复性失败")
		return
	}
	if exists {
		logger.Info().
			Str("md5", fileMD5Hex).
			Str("filename", fileHeader.Filename).
			Msg("检测到重复的简历文件，跳过处理")
		c.JSON(consts.StatusOK, utils.H{"id": "", "status": "duplicate_file_skipped"})
		return
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		respondError(c, consts.StatusInternalServerError, "生成简历ID失败")
		return
	}
	resumeID := uuidV7.String()

	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".pdf"
	}

	path, externalURL, err := h.storage.Files.Save(ctx, resumeID, ext, fileBytes)
	if err != nil {
		logger.Error().Err(err).Str("resume_id", resumeID).Msg("保存简历文件失败")
		respondError(c, consts.StatusInternalServerError, "保存简历文件失败")
		return
	}

	// 文件已落盘，MD5记录失败只影响下次去重，不阻断流程
	if err := h.storage.Redis.AddResumeFileMD5(ctx, fileMD5Hex); err != nil {
		logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("记录简历文件MD5失败")
	}

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}

	resume := &models.Resume{
		ResumeID:    resumeID,
		UserID:      p.UserID,
		Title:       title,
		FilePath:    path,
		ExternalURL: externalURL,
		IsDefault:   c.PostForm("is_default") == "true",
		CreatedAt:   time.Now(),
	}
	if err := h.storage.MySQL.CreateResume(ctx, resume); err != nil {
		logger.Error().Err(err).Str("resume_id", resumeID).Msg("写入简历记录失败")
		respondError(c, consts.StatusInternalServerError, "写入简历记录失败")
		return
	}

	// 投递失败不回滚上传，解析可以通过重新触发补上
	if err := h.enqueuer.EnqueueAnalyzeCV(ctx, resumeID); err != nil {
		logger.Error().Err(err).Str("resume_id", resumeID).Msg("投递CV解析任务失败")
	}

	c.JSON(consts.StatusCreated, utils.H{
		"id":           resumeID,
		"file_path":    path,
		"external_url": externalURL,
		"status":       "processing",
	})
}

// List 列出当前用户的简历
func (h *ResumeHandler) List(ctx context.Context, c *app.RequestContext) {
	p := middleware.CurrentPrincipal(c)

	resumes, err := h.storage.MySQL.ListResumesByUser(ctx, p.UserID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", p.UserID).Msg("查询简历列表失败")
		respondError(c, consts.StatusInternalServerError, "查询简历列表失败")
		return
	}
	c.JSON(consts.StatusOK, utils.H{"data": resumes})
}

// Show 查看单份简历，只允许本人访问
func (h *ResumeHandler) Show(ctx context.Context, c *app.RequestContext) {
	p := middleware.CurrentPrincipal(c)
	resumeID := c.Param("id")

	resume, err := h.storage.MySQL.GetResumeByID(ctx, resumeID)
	if err != nil {
		logger.Error().Err(err).Str("resume_id", resumeID).Msg("查询简历失败")
		respondError(c, consts.StatusInternalServerError, "查询简历失败")
		return
	}
	if resume == nil || resume.UserID != p.UserID {
		respondError(c, consts.StatusNotFound, "简历不存在")
		return
	}
	c.JSON(consts.StatusOK, resume)
}

package handler

import (
	"context"
	"errors"
	"time"

	"job-portal-go/internal/api/middleware"
	"job-portal-go/internal/constants"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage"
	"job-portal-go/internal/storage/models"
	"job-portal-go/internal/task"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// ApplicationHandler 岗位申请
type ApplicationHandler struct {
	storage  *storage.Storage
	enqueuer task.Enqueuer
}

// NewApplicationHandler 创建申请处理器
func NewApplicationHandler(storage *storage.Storage, enqueuer task.Enqueuer) *ApplicationHandler {
	return &ApplicationHandler{storage: storage, enqueuer: enqueuer}
}

type applyRequest struct {
	JobID       string `json:"job_id"`
	ResumeID    string `json:"resume_id"`
	CoverLetter string `json:"cover_letter"`
}

// Apply 申请岗位，附带简历时投递匹配打分任务
func (h *ApplicationHandler) Apply(ctx context.Context, c *app.RequestContext) {
	p := middleware.CurrentPrincipal(c)

	var req applyRequest
	if err := c.BindJSON(&req); err != nil || req.JobID == "" {
		respondError(c, consts.StatusBadRequest, "请求体非法")
		return
	}

	job, err := h.storage.MySQL.GetJobByID(ctx, req.JobID)
	if err != nil {
		logger.Error().Err(err).Str("job_id", req.JobID).Msg("查询岗位失败")
		respondError(c, consts.StatusInternalServerError, "查询岗位失败")
		return
	}
	if job == nil {
		respondError(c, consts.StatusNotFound, "岗位不存在")
		return
	}
	if !job.IsActive {
		respondError(c, consts.StatusUnprocessableEntity, "岗位已下线，无法申请")
		return
	}

	var resumeID *string
	if req.ResumeID != "" {
		resume, resumeErr := h.storage.MySQL.GetResumeByID(ctx, req.ResumeID)
		if resumeErr != nil {
			logger.Error().Err(resumeErr).Str("resume_id", req.ResumeID).Msg("查询简历失败")
			respondError(c, consts.StatusInternalServerError, "查询简历失败")
			return
		}
		if resume == nil || resume.UserID != p.UserID {
			respondError(c, consts.StatusUnprocessableEntity, "简历无效")
			return
		}
		resumeID = &resume.ResumeID
	}

	existing, err := h.storage.MySQL.GetApplicationByUserAndJob(ctx, p.UserID, job.JobID)
	if err != nil {
		logger.Error().Err(err).Msg("查询已有申请失败")
		respondError(c, consts.StatusInternalServerError, "查询已有申请失败")
		return
	}
	if existing != nil {
		respondError(c, consts.StatusUnprocessableEntity, "已申请过该岗位")
		return
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		respondError(c, consts.StatusInternalServerError, "生成申请ID失败")
		return
	}

	application := &models.Application{
		ApplicationID: uuidV7.String(),
		UserID:        p.UserID,
		JobID:         job.JobID,
		ResumeID:      resumeID,
		CoverLetter:   req.CoverLetter,
		Status:        constants.ApplicationStatusPending,
		AppliedAt:     time.Now(),
	}
	if err := h.storage.MySQL.CreateApplication(ctx, application); err != nil {
		// 唯一索引兜住并发重复提交
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, consts.StatusUnprocessableEntity, "已申请过该岗位")
			return
		}
		logger.Error().Err(err).Msg("写入申请记录失败")
		respondError(c, consts.StatusInternalServerError, "写入申请记录失败")
		return
	}

	// 未附带简历的申请没有打分依据，不投递任务
	if application.ResumeID != nil {
		if err := h.enqueuer.EnqueueMatchScore(ctx, application.ApplicationID); err != nil {
			logger.Error().
				Err(err).
				Str("application_id", application.ApplicationID).
				Msg("投递匹配打分任务失败")
		}
	}

	c.JSON(consts.StatusCreated, application)
}

// List 列出当前用户的申请
func (h *ApplicationHandler) List(ctx context.Context, c *app.RequestContext) {
	p := middleware.CurrentPrincipal(c)

	apps, err := h.storage.MySQL.ListApplicationsByUser(ctx, p.UserID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", p.UserID).Msg("查询申请列表失败")
		respondError(c, consts.StatusInternalServerError, "查询申请列表失败")
		return
	}
	c.JSON(consts.StatusOK, utils.H{"data": apps})
}

// ListByJob 雇主查看岗位收到的申请，sort=score时按匹配得分降序
func (h *ApplicationHandler) ListByJob(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")

	job, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Msg("查询岗位失败")
		respondError(c, consts.StatusInternalServerError, "查询岗位失败")
		return
	}
	if job == nil {
		respondError(c, consts.StatusNotFound, "岗位不存在")
		return
	}

	apps, err := h.storage.MySQL.ListApplicationsByJob(ctx, jobID, c.Query("sort") == "score")
	if err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Msg("查询岗位申请列表失败")
		respondError(c, consts.StatusInternalServerError, "查询岗位申请列表失败")
		return
	}
	c.JSON(consts.StatusOK, utils.H{"data": apps})
}

// Show 查看单个申请，只允许本人访问
func (h *ApplicationHandler) Show(ctx context.Context, c *app.RequestContext) {
	p := middleware.CurrentPrincipal(c)
	applicationID := c.Param("id")

	application, err := h.storage.MySQL.GetApplicationDetail(ctx, applicationID)
	if err != nil {
		logger.Error().Err(err).Str("application_id", applicationID).Msg("查询申请失败")
		respondError(c, consts.StatusInternalServerError, "查询申请失败")
		return
	}
	if application == nil || application.UserID != p.UserID {
		respondError(c, consts.StatusNotFound, "申请不存在")
		return
	}
	c.JSON(consts.StatusOK, application)
}

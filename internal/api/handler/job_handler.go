package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"job-portal-go/internal/aiclient"
	"job-portal-go/internal/constants"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/search"
	"job-portal-go/internal/storage"
	"job-portal-go/internal/storage/models"
	"job-portal-go/internal/task"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
)

// JobHandler 岗位查询、发布与JD生成
type JobHandler struct {
	storage  *storage.Storage
	searcher *search.Service
	syncer   *search.Synchronizer
	ai       aiclient.DescriptionGenerator
	enqueuer task.Enqueuer
}

// NewJobHandler 创建岗位处理器
func NewJobHandler(storage *storage.Storage, searcher *search.Service, syncer *search.Synchronizer,
	ai aiclient.DescriptionGenerator, enqueuer task.Enqueuer) *JobHandler {
	return &JobHandler{
		storage:  storage,
		searcher: searcher,
		syncer:   syncer,
		ai:       ai,
		enqueuer: enqueuer,
	}
}

// Search 搜索活跃岗位，索引不可用时自动回退数据库
func (h *JobHandler) Search(ctx context.Context, c *app.RequestContext) {
	params := search.Params{
		Query: c.Query("q"),
		City:  c.Query("city"),
		Type:  c.Query("type"),
	}
	if v := c.Query("salary_min"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.SalaryMin = &f
		}
	}
	if v := c.Query("salary_max"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.SalaryMax = &f
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			params.Page = n
		}
	}
	if v := c.Query("per_page"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			params.PerPage = n
		}
	}

	page, err := h.searcher.Search(ctx, params)
	if err != nil {
		logger.Error().Err(err).Msg("岗位搜索失败")
		respondError(c, consts.StatusInternalServerError, "岗位搜索失败")
		return
	}
	c.JSON(consts.StatusOK, page)
}

// Show 查看岗位详情，描述走Redis缓存
func (h *JobHandler) Show(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")

	job, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Msg("查询岗位失败")
		respondError(c, consts.StatusInternalServerError, "查询岗位失败")
		return
	}
	if job == nil || !job.IsActive {
		respondError(c, consts.StatusNotFound, "岗位不存在")
		return
	}

	// 缓存未命中时回填，JD生成任务覆盖描述后会主动清缓存
	if cached, cacheErr := h.storage.Redis.GetCachedJobDescription(ctx, jobID); cacheErr == nil && cached != "" {
		job.Description = cached
	} else if job.Description != "" {
		if setErr := h.storage.Redis.CacheJobDescription(ctx, jobID, job.Description, time.Hour); setErr != nil {
			logger.Warn().Err(setErr).Str("job_id", jobID).Msg("回填岗位描述缓存失败")
		}
	}

	c.JSON(consts.StatusOK, job)
}

type createJobRequest struct {
	CompanyID      string   `json:"company_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Location       string   `json:"location"`
	Type           string   `json:"type"`
	SalaryMin      *float64 `json:"salary_min"`
	SalaryMax      *float64 `json:"salary_max"`
	SalaryCurrency string   `json:"salary_currency"`
	Requirements   []string `json:"requirements"`
	Benefits       []string `json:"benefits"`
}

// Create 发布岗位，保存后同步搜索索引
func (h *JobHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req createJobRequest
	if err := c.BindJSON(&req); err != nil || req.CompanyID == "" || req.Title == "" {
		respondError(c, consts.StatusBadRequest, "请求体非法")
		return
	}

	company, err := h.storage.MySQL.GetCompanyByID(ctx, req.CompanyID)
	if err != nil {
		logger.Error().Err(err).Str("company_id", req.CompanyID).Msg("查询公司失败")
		respondError(c, consts.StatusInternalServerError, "查询公司失败")
		return
	}
	if company == nil {
		respondError(c, consts.StatusUnprocessableEntity, "公司不存在")
		return
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		respondError(c, consts.StatusInternalServerError, "生成岗位ID失败")
		return
	}

	job := &models.Job{
		JobID:          uuidV7.String(),
		CompanyID:      company.CompanyID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		Type:           req.Type,
		SalaryMin:      req.SalaryMin,
		SalaryMax:      req.SalaryMax,
		SalaryCurrency: req.SalaryCurrency,
		IsActive:       true,
		Status:         constants.JobStatusPending,
		PostedAt:       time.Now(),
		Company:        company,
	}
	if job.Requirements, err = models.StringsToJSON(req.Requirements); err != nil {
		respondError(c, consts.StatusBadRequest, "requirements字段非法")
		return
	}
	if job.Benefits, err = models.StringsToJSON(req.Benefits); err != nil {
		respondError(c, consts.StatusBadRequest, "benefits字段非法")
		return
	}

	if err := h.storage.MySQL.CreateJob(ctx, job); err != nil {
		logger.Error().Err(err).Msg("写入岗位记录失败")
		respondError(c, consts.StatusInternalServerError, "写入岗位记录失败")
		return
	}

	// 索引同步失败不影响发布，后续可通过全量重建补齐
	if err := h.syncer.SyncJob(ctx, job); err != nil {
		logger.Warn().Err(err).Str("job_id", job.JobID).Msg("同步岗位到搜索索引失败")
	}

	c.JSON(consts.StatusCreated, job)
}

type updateJobStatusRequest struct {
	Status   string `json:"status"`
	IsActive *bool  `json:"is_active"`
}

// UpdateStatus 更新岗位审核状态或上下线状态，保存后同步搜索索引
func (h *JobHandler) UpdateStatus(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")

	var req updateJobStatusRequest
	if err := c.BindJSON(&req); err != nil {
		respondError(c, consts.StatusBadRequest, "请求体非法")
		return
	}

	fields := map[string]interface{}{}
	if req.Status != "" {
		switch req.Status {
		case constants.JobStatusPending, constants.JobStatusApproved, constants.JobStatusRejected:
			fields["status"] = req.Status
		default:
			respondError(c, consts.StatusUnprocessableEntity, "状态值非法")
			return
		}
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		respondError(c, consts.StatusBadRequest, "没有需要更新的字段")
		return
	}

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

	if err := h.storage.MySQL.UpdateJobFields(ctx, jobID, fields); err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Msg("更新岗位失败")
		respondError(c, consts.StatusInternalServerError, "更新岗位失败")
		return
	}

	// 用更新后的行同步索引，下线的岗位会从索引删除
	job, err = h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil || job == nil {
		logger.Error().Err(err).Str("job_id", jobID).Msg("更新后回读岗位失败")
		respondError(c, consts.StatusInternalServerError, "更新后回读岗位失败")
		return
	}
	if err := h.syncer.SyncJob(ctx, job); err != nil {
		logger.Warn().Err(err).Str("job_id", jobID).Msg("同步岗位到搜索索引失败")
	}

	c.JSON(consts.StatusOK, job)
}

type generateDescriptionRequest struct {
	JobID  string `json:"job_id"`
	Prompt string `json:"prompt"`
	Locale string `json:"locale"`
	Sync   bool   `json:"sync"`
}

// GenerateDescription 为公司岗位生成描述
// sync为true时同步调用AI并立即返回结果，否则投递异步任务
func (h *JobHandler) GenerateDescription(ctx context.Context, c *app.RequestContext) {
	companyID := c.Param("id")

	var req generateDescriptionRequest
	if err := c.BindJSON(&req); err != nil || req.JobID == "" {
		respondError(c, consts.StatusBadRequest, "请求体非法")
		return
	}
	if req.Locale == "" {
		req.Locale = constants.DefaultLocale
	}

	job, err := h.storage.MySQL.GetJobByID(ctx, req.JobID)
	if err != nil {
		logger.Error().Err(err).Str("job_id", req.JobID).Msg("查询岗位失败")
		respondError(c, consts.StatusInternalServerError, "查询岗位失败")
		return
	}
	if job == nil || job.CompanyID != companyID {
		respondError(c, consts.StatusNotFound, "岗位不存在")
		return
	}

	if !req.Sync {
		if err := h.enqueuer.EnqueueGenerateDescription(ctx, job.JobID, req.Prompt, req.Locale); err != nil {
			logger.Error().Err(err).Str("job_id", job.JobID).Msg("投递JD生成任务失败")
			respondError(c, consts.StatusInternalServerError, "投递JD生成任务失败")
			return
		}
		c.JSON(consts.StatusAccepted, utils.H{"job_id": job.JobID, "status": "queued"})
		return
	}

	result, err := h.generateSync(ctx, job, req.Prompt, req.Locale)
	if err != nil {
		logger.Error().Err(err).Str("job_id", job.JobID).Msg("同步JD生成失败")
		// 上游返回了明确状态码时原样透传给调用方
		var statusErr *aiclient.StatusError
		if errors.As(err, &statusErr) {
			c.JSON(consts.StatusBadGateway, utils.H{
				"error":           "JD生成失败",
				"upstream_status": statusErr.StatusCode,
				"upstream_body":   statusErr.Body,
			})
			return
		}
		respondError(c, consts.StatusBadGateway, "JD生成失败")
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"job_id":           job.JobID,
		"description":      result.Description,
		"suggested_skills": result.SuggestedSkills,
		"model_name":       result.ModelName,
	})
}

// generateSync 同步生成并落库，与异步任务写同样的数据
func (h *JobHandler) generateSync(ctx context.Context, job *models.Job, prompt, locale string) (*aiclient.DescriptionResult, error) {
	genReq := &aiclient.GenerateRequest{
		Title:   job.Title,
		Prompts: prompt,
		Locale:  locale,
	}
	if job.Company != nil {
		genReq.CompanyName = job.Company.Name
	}

	result, err := h.ai.GenerateDescription(ctx, genReq, true)
	if err != nil {
		return nil, err
	}

	if err := h.storage.MySQL.SetJobDescription(ctx, job.JobID, result.Description); err != nil {
		return nil, err
	}

	now := time.Now()
	meta := &models.AIJobMetadata{
		JobID:                job.JobID,
		GeneratedDescription: result.Description,
		ModelName:            result.ModelName,
		ProcessedAt:          &now,
	}
	if meta.ExtractedRequirements, err = models.StringsToJSON(result.Requirements); err != nil {
		return nil, err
	}
	if meta.SuggestedSkills, err = models.StringsToJSON(result.SuggestedSkills); err != nil {
		return nil, err
	}
	if err := h.storage.MySQL.UpsertAIJobMetadata(ctx, meta); err != nil {
		return nil, err
	}

	if cacheErr := h.storage.Redis.InvalidateJobDescription(ctx, job.JobID); cacheErr != nil {
		logger.Warn().Err(cacheErr).Str("job_id", job.JobID).Msg("清除岗位描述缓存失败")
	}
	return result, nil
}

package router

import (
	"context"

	"job-portal-go/internal/api/handler"
	"job-portal-go/internal/api/middleware"
	"job-portal-go/internal/constants"
	"job-portal-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	Resume      *handler.ResumeHandler
	Application *handler.ApplicationHandler
	Job         *handler.JobHandler
	Admin       *handler.AdminHandler
}

// RegisterRoutes 注册API路由
func RegisterRoutes(h *server.Hertz, store *storage.Storage, handlers *Handlers) {
	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// 公开岗位查询
	api.GET("/jobs", handlers.Job.Search)
	api.GET("/jobs/:id", handlers.Job.Show)

	// 认证路由
	authed := api.Group("", middleware.Auth(store.MySQL))

	authed.POST("/resumes", handlers.Resume.Upload)
	authed.GET("/resumes", handlers.Resume.List)
	authed.GET("/resumes/:id", handlers.Resume.Show)

	authed.POST("/applications", handlers.Application.Apply)
	authed.GET("/applications", handlers.Application.List)
	authed.GET("/applications/:id", handlers.Application.Show)

	employer := authed.Group("", middleware.RequireRole(constants.RoleEmployer, constants.RoleAdmin))
	employer.POST("/jobs", handlers.Job.Create)
	employer.GET("/jobs/:id/applications", handlers.Application.ListByJob)
	employer.POST("/companies/:id/jobs/generate", handlers.Job.GenerateDescription)

	adminOnly := authed.Group("", middleware.RequireRole(constants.RoleAdmin))
	adminOnly.PATCH("/jobs/:id/status", handlers.Job.UpdateStatus)
	adminOnly.POST("/admin/search/resync", handlers.Admin.ResyncSearchIndex)
}

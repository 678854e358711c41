package handler

import (
	"context"

	"job-portal-go/internal/config"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/search"
	"job-portal-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// AdminHandler 管理端运维操作
type AdminHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	syncer  *search.Synchronizer
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(cfg *config.Config, storage *storage.Storage, syncer *search.Synchronizer) *AdminHandler {
	return &AdminHandler{cfg: cfg, storage: storage, syncer: syncer}
}

type resyncRequest struct {
	BatchSize int `json:"batch_size"`
}

// ResyncSearchIndex 分批全量重建岗位搜索索引
func (h *AdminHandler) ResyncSearchIndex(ctx context.Context, c *app.RequestContext) {
	var req resyncRequest
	_ = c.BindJSON(&req)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = h.cfg.Meilisearch.ResyncBatchSize
	}

	synced, err := h.syncer.ResyncAll(ctx, h.storage.MySQL, batchSize)
	if err != nil {
		logger.Error().Err(err).Int("synced", synced).Msg("岗位索引重建失败")
		respondError(c, consts.StatusInternalServerError, "索引重建失败")
		return
	}

	c.JSON(consts.StatusOK, utils.H{"synced": synced, "batch_size": batchSize})
}

// 岗位搜索索引全量重建工具
// 遍历数据库中的全部活跃岗位，分批写入Meilisearch
package main

import (
	"context"
	"time"

	"job-portal-go/internal/config"
	appLogger "job-portal-go/internal/logger"
	"job-portal-go/internal/search"
	"job-portal-go/internal/storage"

	"github.com/spf13/pflag"
)

func main() {
	var (
		configPath string
		batchSize  int
	)
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.IntVarP(&batchSize, "batch", "b", 0, "批次大小，0表示使用配置值")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("加载配置失败")
	}
	appLogger.Init(appLogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
	})

	if batchSize <= 0 {
		batchSize = cfg.Meilisearch.ResyncBatchSize
	}

	ctx := context.Background()

	mysqlDB, err := storage.NewMySQL(&cfg.MySQL)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("连接MySQL失败")
	}
	defer mysqlDB.Close()

	meili, err := storage.NewMeilisearch(&cfg.Meilisearch)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("连接Meilisearch失败")
	}

	total, err := mysqlDB.CountActiveJobs(ctx)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("统计活跃岗位失败")
	}
	appLogger.Info().Int64("total", total).Int("batch_size", batchSize).Msg("开始重建岗位索引")

	start := time.Now()
	synced, err := search.NewSynchronizer(meili).ResyncAll(ctx, mysqlDB, batchSize)
	if err != nil {
		appLogger.Fatal().Err(err).Int("synced", synced).Msg("索引重建失败")
	}

	appLogger.Info().
		Int("synced", synced).
		Dur("elapsed", time.Since(start)).
		Msg("索引重建完成")
}

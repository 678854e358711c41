package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-portal-go/internal/aiclient"
	"job-portal-go/internal/api/handler"
	"job-portal-go/internal/api/router"
	"job-portal-go/internal/config"
	"job-portal-go/internal/constants"
	appLogger "job-portal-go/internal/logger"
	"job-portal-go/internal/notify"
	"job-portal-go/internal/search"
	"job-portal-go/internal/storage"
	"job-portal-go/internal/task"
	"job-portal-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"
)

var serviceName = "job-portal-go" //nolint:gochecknoglobals

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("加载配置失败")
	}

	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	appLogger.Info().Str("config", configPath).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.TracingEndpoint, serviceName)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("初始化追踪失败")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			appLogger.Warn().Err(err).Msg("关闭追踪导出器失败")
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	appLogger.Info().Msg("存储服务初始化成功")

	aiClient := aiclient.NewClient(&cfg.AIService)

	enqueuer, err := task.NewQueueEnqueuer(storageManager.RabbitMQ, &cfg.RabbitMQ)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("初始化任务投递器失败")
	}

	mailer := notify.NewMailer(&cfg.SMTP)

	// 任务调度器：消费者协程内执行三类富化任务
	dispatcher := task.NewDispatcher()
	analyzeHandler := task.NewAnalyzeCVHandler(storageManager.MySQL, storageManager.Files, aiClient)
	dispatcher.Register(constants.TaskAnalyzeCV, analyzeHandler.Handle)
	matchHandler := task.NewMatchScoreHandler(storageManager.MySQL, aiClient)
	dispatcher.Register(constants.TaskCalculateMatchScore, matchHandler.Handle)
	var notifier task.Notifier
	if mailer != nil {
		notifier = mailer
	}
	generateHandler := task.NewGenerateDescriptionHandler(storageManager.MySQL, aiClient, storageManager.Redis, notifier)
	dispatcher.Register(constants.TaskGenerateDescription, generateHandler.Handle)

	stopConsumer, err := storageManager.RabbitMQ.StartConsumer(
		cfg.RabbitMQ.TaskQueue, cfg.RabbitMQ.PrefetchCount, dispatcher.HandleMessage)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("启动任务消费者失败")
	}
	appLogger.Info().Str("queue", cfg.RabbitMQ.TaskQueue).Msg("任务消费者已启动")

	var syncer *search.Synchronizer
	if storageManager.Meili != nil {
		syncer = search.NewSynchronizer(storageManager.Meili)
	}
	var indexSearcher search.IndexSearcher
	if storageManager.Meili != nil {
		indexSearcher = storageManager.Meili
	}
	searcher := search.NewService(storageManager.MySQL, indexSearcher)

	handlers := &router.Handlers{
		Resume:      handler.NewResumeHandler(storageManager, enqueuer),
		Application: handler.NewApplicationHandler(storageManager, enqueuer),
		Job:         handler.NewJobHandler(storageManager, searcher, syncer, aiClient, enqueuer),
		Admin:       handler.NewAdminHandler(cfg, storageManager, syncer),
	}

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		appLogger.Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("请求完成")
	})

	router.RegisterRoutes(h, storageManager, handlers)
	appLogger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			appLogger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info().Msg("接收到终止信号，正在优雅退出")

	close(stopConsumer)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("HTTP服务器关闭失败")
	}
	appLogger.Info().Msg("优雅退出完成")
}

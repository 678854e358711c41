package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"job-portal-go/internal/config"
	"job-portal-go/internal/constants"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage"
)

// Enqueuer 异步任务投递接口
type Enqueuer interface {
	// EnqueueAnalyzeCV 投递CV解析任务
	EnqueueAnalyzeCV(ctx context.Context, resumeID string) error

	// EnqueueMatchScore 投递匹配打分任务
	EnqueueMatchScore(ctx context.Context, applicationID string) error

	// EnqueueGenerateDescription 投递JD生成任务
	EnqueueGenerateDescription(ctx context.Context, jobID, prompt, locale string) error
}

// QueueEnqueuer 基于RabbitMQ的任务投递器
type QueueEnqueuer struct {
	mq  storage.MessageQueue
	cfg *config.RabbitMQConfig
}

var _ Enqueuer = (*QueueEnqueuer)(nil)

// NewQueueEnqueuer 创建任务投递器并声明队列拓扑
func NewQueueEnqueuer(mq storage.MessageQueue, cfg *config.RabbitMQConfig) (*QueueEnqueuer, error) {
	if err := mq.EnsureExchange(cfg.TaskExchange, "direct", true); err != nil {
		return nil, fmt.Errorf("声明任务exchange失败: %w", err)
	}
	if err := mq.EnsureQueue(cfg.TaskQueue, true); err != nil {
		return nil, fmt.Errorf("声明任务队列失败: %w", err)
	}
	if err := mq.BindQueue(cfg.TaskQueue, cfg.TaskExchange, cfg.TaskRouting); err != nil {
		return nil, fmt.Errorf("绑定任务队列失败: %w", err)
	}
	return &QueueEnqueuer{mq: mq, cfg: cfg}, nil
}

// EnqueueAnalyzeCV 投递CV解析任务
func (e *QueueEnqueuer) EnqueueAnalyzeCV(ctx context.Context, resumeID string) error {
	return e.publish(ctx, constants.TaskAnalyzeCV, AnalyzeCVPayload{ResumeID: resumeID})
}

// EnqueueMatchScore 投递匹配打分任务
func (e *QueueEnqueuer) EnqueueMatchScore(ctx context.Context, applicationID string) error {
	return e.publish(ctx, constants.TaskCalculateMatchScore, MatchScorePayload{ApplicationID: applicationID})
}

// EnqueueGenerateDescription 投递JD生成任务
func (e *QueueEnqueuer) EnqueueGenerateDescription(ctx context.Context, jobID, prompt, locale string) error {
	if locale == "" {
		locale = constants.DefaultLocale
	}
	return e.publish(ctx, constants.TaskGenerateDescription, GenerateDescriptionPayload{JobID: jobID, Prompt: prompt, Locale: locale})
}

func (e *QueueEnqueuer) publish(ctx context.Context, kind string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化任务载荷失败: %w", err)
	}

	msg := Message{
		Kind:       kind,
		Payload:    body,
		EnqueuedAt: time.Now(),
	}

	if err := e.mq.PublishJSON(ctx, e.cfg.TaskExchange, e.cfg.TaskRouting, msg, true); err != nil {
		return fmt.Errorf("投递任务 %s 失败: %w", kind, err)
	}

	logger.Info().Str("kind", kind).RawJSON("payload", body).Msg("已投递异步任务")
	return nil
}

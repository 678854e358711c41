package task

import (
	"context"
	"encoding/json"
	"time"

	"job-portal-go/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("job-portal-go/task")

// HandlerFunc 任务处理函数
// 返回nil表示任务结束（成功、目标不存在或前置条件不满足都算结束）
// 返回非nil错误表示瞬时失败，调度器会按退避策略重试
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// 重试策略：每个任务最多执行3次，两次之间等待10s/30s/60s
var defaultBackoffs = []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}

const maxAttempts = 3

// Dispatcher 任务调度器，在消费者协程内完成重试
// 重试耗尽后记录永久失败并确认消息，不再重新入队
type Dispatcher struct {
	handlers map[string]HandlerFunc
	backoffs []time.Duration

	// sleep 可注入，测试时替换为记录等待时长的桩
	sleep func(time.Duration)
}

// NewDispatcher 创建任务调度器
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		backoffs: defaultBackoffs,
		sleep:    time.Sleep,
	}
}

// Register 注册任务处理器
func (d *Dispatcher) Register(kind string, h HandlerFunc) {
	d.handlers[kind] = h
}

// HandleMessage 处理一条队列消息，返回值作为ack依据
// 无论任务成败都返回true确认消息，重试在进程内完成，避免broker层的无限重投
func (d *Dispatcher) HandleMessage(body []byte) bool {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Error().Err(err).Bytes("body", body).Msg("任务消息格式非法，已丢弃")
		return true
	}

	handler, ok := d.handlers[msg.Kind]
	if !ok {
		logger.Error().Str("kind", msg.Kind).Msg("未注册的任务类型，已丢弃")
		return true
	}

	ctx, span := tracer.Start(context.Background(), "Task "+msg.Kind,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("task.kind", msg.Kind)))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = d.runAttempt(ctx, msg.Kind, attempt, handler, msg.Payload)
		if lastErr == nil {
			span.SetStatus(codes.Ok, "")
			return true
		}

		logger.Error().
			Err(lastErr).
			Str("kind", msg.Kind).
			Int("attempt", attempt).
			Msg("任务执行失败")

		if attempt < maxAttempts {
			d.sleep(d.backoffs[attempt-1])
		}
	}

	// 永久失败：记录后确认消息，人工介入排查
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	logger.Error().
		Err(lastErr).
		Str("kind", msg.Kind).
		RawJSON("payload", msg.Payload).
		Int("attempts", maxAttempts).
		Msg("任务重试耗尽，永久失败")
	return true
}

func (d *Dispatcher) runAttempt(ctx context.Context, kind string, attempt int, handler HandlerFunc, payload json.RawMessage) error {
	ctx, span := tracer.Start(ctx, "TaskAttempt",
		trace.WithAttributes(
			attribute.String("task.kind", kind),
			attribute.Int("task.attempt", attempt)))
	defer span.End()

	if err := handler(ctx, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

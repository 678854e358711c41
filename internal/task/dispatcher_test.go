package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"job-portal-go/internal/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher()
	var slept []time.Duration
	d.sleep = func(dur time.Duration) {
		slept = append(slept, dur)
	}
	return d, &slept
}

func encodeMessage(t *testing.T, kind string, payload interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(Message{Kind: kind, Payload: body, EnqueuedAt: time.Now()})
	require.NoError(t, err)
	return raw
}

func TestDispatcherSuccessFirstAttempt(t *testing.T) {
	d, slept := newTestDispatcher()

	calls := 0
	d.Register("noop", func(ctx context.Context, payload json.RawMessage) error {
		calls++
		return nil
	})

	ack := d.HandleMessage(encodeMessage(t, "noop", map[string]string{}))

	assert.True(t, ack)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestDispatcherRetriesThenSucceeds(t *testing.T) {
	d, slept := newTestDispatcher()

	calls := 0
	d.Register("flaky", func(ctx context.Context, payload json.RawMessage) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	ack := d.HandleMessage(encodeMessage(t, "flaky", map[string]string{}))

	assert.True(t, ack)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 30 * time.Second}, *slept)
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	d, slept := newTestDispatcher()

	calls := 0
	d.Register("broken", func(ctx context.Context, payload json.RawMessage) error {
		calls++
		return errors.New("permanent")
	})

	// 重试耗尽后依然确认消息，不能让broker无限重投
	ack := d.HandleMessage(encodeMessage(t, "broken", map[string]string{}))

	assert.True(t, ack)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 30 * time.Second}, *slept)
}

func TestDispatcherLogsEachFailedAttemptAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	restore := logger.Logger
	logger.Logger = zerolog.New(&buf)
	defer func() { logger.Logger = restore }()

	d, _ := newTestDispatcher()
	d.Register("broken", func(ctx context.Context, payload json.RawMessage) error {
		return errors.New("permanent")
	})

	d.HandleMessage(encodeMessage(t, "broken", map[string]string{}))

	attempts := 0
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry struct {
			Level   string `json:"level"`
			Message string `json:"message"`
			Attempt int    `json:"attempt"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Attempt > 0 {
			attempts++
			assert.Equal(t, "error", entry.Level, "第%d次失败应记录为error级别", entry.Attempt)
		}
	}
	assert.Equal(t, 3, attempts)
}

func TestDispatcherDropsUnknownKind(t *testing.T) {
	d, slept := newTestDispatcher()

	ack := d.HandleMessage(encodeMessage(t, "never_registered", map[string]string{}))

	assert.True(t, ack)
	assert.Empty(t, *slept)
}

func TestDispatcherDropsMalformedMessage(t *testing.T) {
	d, slept := newTestDispatcher()

	ack := d.HandleMessage([]byte("not json"))

	assert.True(t, ack)
	assert.Empty(t, *slept)
}

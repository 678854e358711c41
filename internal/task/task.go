package task

import (
	"encoding/json"
	"time"
)

// Message 任务队列消息信封
type Message struct {
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// AnalyzeCVPayload CV解析任务载荷
type AnalyzeCVPayload struct {
	ResumeID string `json:"resume_id"`
}

// MatchScorePayload 匹配打分任务载荷
type MatchScorePayload struct {
	ApplicationID string `json:"application_id"`
}

// GenerateDescriptionPayload JD生成任务载荷
type GenerateDescriptionPayload struct {
	JobID  string `json:"job_id"`
	Prompt string `json:"prompt,omitempty"`
	Locale string `json:"locale,omitempty"`
}

package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"job-portal-go/internal/config"
	"job-portal-go/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("job-portal-go/aiclient")

// ErrEmptyResult AI服务返回2xx但内容为空或缺少必要字段
// 调用方据此判定为可重试失败
var ErrEmptyResult = errors.New("AI服务返回空结果")

// StatusError AI服务返回非2xx状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI服务返回状态码 %d: %s", e.StatusCode, e.Body)
}

// CVAnalyzer CV解析能力，返回的画像文档原样落库
type CVAnalyzer interface {
	AnalyzeCV(ctx context.Context, req *AnalyzeRequest) (json.RawMessage, error)
}

// MatchScorer 匹配打分能力
type MatchScorer interface {
	MatchScore(ctx context.Context, req *MatchRequest) (*MatchResult, error)
}

// DescriptionGenerator JD生成能力，同步和异步场景共用一个端点、不同超时
type DescriptionGenerator interface {
	GenerateDescription(ctx context.Context, req *GenerateRequest, sync bool) (*DescriptionResult, error)
}

// AnalyzeRequest CV解析请求，s3_url和raw_text二选一
type AnalyzeRequest struct {
	ResumeID string `json:"-"` // 仅用于日志和错误信息，不上行
	S3URL    string `json:"s3_url,omitempty"`
	RawText  string `json:"raw_text,omitempty"`
}

// MatchRequest 匹配打分请求
type MatchRequest struct {
	JobID                     string          `json:"job_id"`
	JobDescription            string          `json:"job_description"`
	CandidateResumeParsedJSON json.RawMessage `json:"candidate_resume_parsed_json"`
}

// MatchResult 匹配打分结果
type MatchResult struct {
	Score float64 `json:"match_score"`
}

// GenerateRequest JD生成请求
type GenerateRequest struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Prompts     string `json:"prompts,omitempty"`
	Locale      string `json:"locale"`
}

// DescriptionResult JD生成结果，除job_description外的字段都是可选的
type DescriptionResult struct {
	Description     string   `json:"job_description"`
	Requirements    []string `json:"extracted_requirements"`
	SuggestedSkills []string `json:"suggested_skills"`
	ModelName       string   `json:"model_name"`
}

// Client 外部AI微服务客户端
// 每类任务使用独立的超时时间，HTTP客户端本身不限制，靠context控制
type Client struct {
	baseURL string
	http    *http.Client
	cfg     *config.AIServiceConfig
}

var (
	_ CVAnalyzer           = (*Client)(nil)
	_ MatchScorer          = (*Client)(nil)
	_ DescriptionGenerator = (*Client)(nil)
)

// NewClient 创建AI服务客户端
func NewClient(cfg *config.AIServiceConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg: cfg,
	}
}

// AnalyzeCV 调用CV解析端点，返回原始画像文档
// 2xx但文档为空时返回ErrEmptyResult
func (c *Client) AnalyzeCV(ctx context.Context, req *AnalyzeRequest) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AnalyzeTimeout())
	defer cancel()

	body, err := c.postJSONRaw(ctx, "/ai/analyze-cv", req)
	if err != nil {
		return nil, err
	}
	if emptyDocument(body) {
		return nil, fmt.Errorf("简历 %s 解析: %w", req.ResumeID, ErrEmptyResult)
	}
	return body, nil
}

// MatchScore 调用匹配打分端点
// 响应缺少match_score字段时返回ErrEmptyResult
func (c *Client) MatchScore(ctx context.Context, req *MatchRequest) (*MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MatchTimeout())
	defer cancel()

	body, err := c.postJSONRaw(ctx, "/ai/match", req)
	if err != nil {
		return nil, err
	}

	// match_score用指针接收以区分"没有该字段"和合法的0分
	var raw struct {
		Score *float64 `json:"match_score"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("解析匹配打分响应失败: %w", err)
	}
	if raw.Score == nil {
		return nil, fmt.Errorf("匹配打分响应缺少match_score: %w", ErrEmptyResult)
	}
	return &MatchResult{Score: *raw.Score}, nil
}

// GenerateDescription 调用JD生成端点
// sync为true时使用同步代理的较短超时；2xx但job_description为空时返回ErrEmptyResult
func (c *Client) GenerateDescription(ctx context.Context, req *GenerateRequest, sync bool) (*DescriptionResult, error) {
	timeout := c.cfg.GenerateTimeout()
	if sync {
		timeout = c.cfg.GenerateSyncTimeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := c.postJSONRaw(ctx, "/ai/generate-job-description", req)
	if err != nil {
		return nil, err
	}

	var result DescriptionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析JD生成响应失败: %w", err)
	}
	if result.Description == "" {
		return nil, fmt.Errorf("岗位 %q JD生成: %w", req.Title, ErrEmptyResult)
	}
	return &result, nil
}

// postJSONRaw 发送JSON请求并返回原始响应体
func (c *Client) postJSONRaw(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "AIService "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.route", path)))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("序列化AI请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("构建AI请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("请求AI服务失败 (%s): %w", path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("读取AI响应失败: %w", err)
	}

	logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("AI服务调用完成")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
		span.SetStatus(codes.Error, statusErr.Error())
		return nil, statusErr
	}

	span.SetStatus(codes.Ok, "")
	return respBody, nil
}

// emptyDocument 判断响应是否没有任何实际内容
func emptyDocument(body json.RawMessage) bool {
	switch strings.TrimSpace(string(body)) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

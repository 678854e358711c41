package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"job-portal-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(&config.AIServiceConfig{
		BaseURL:                    srv.URL,
		AnalyzeTimeoutSeconds:      5,
		MatchTimeoutSeconds:        5,
		GenerateTimeoutSeconds:     5,
		GenerateSyncTimeoutSeconds: 5,
	})
	return client, srv
}

func TestAnalyzeCVSuccess(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/analyze-cv", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://files/r1.pdf", body["s3_url"])
		assert.NotContains(t, body, "resume_id", "resume_id不应出现在请求体中")

		_, _ = w.Write([]byte(`{"skills": ["go"], "summary": "工程师"}`))
	})
	defer srv.Close()

	profile, err := client.AnalyzeCV(context.Background(), &AnalyzeRequest{
		ResumeID: "r1",
		S3URL:    "https://files/r1.pdf",
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"skills": ["go"], "summary": "工程师"}`, string(profile))
}

func TestAnalyzeCVEmptyProfileIsError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	defer srv.Close()

	// 2xx但内容为空视为可重试失败
	_, err := client.AnalyzeCV(context.Background(), &AnalyzeRequest{ResumeID: "r1"})

	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestAnalyzeCVUpstreamStatusError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})
	defer srv.Close()

	_, err := client.AnalyzeCV(context.Background(), &AnalyzeRequest{ResumeID: "r1"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestMatchScoreZeroIsValid(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/match", r.URL.Path)
		var req MatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "j1", req.JobID)
		assert.JSONEq(t, `{"skills":["go"]}`, string(req.CandidateResumeParsedJSON))

		_, _ = w.Write([]byte(`{"match_score": 0}`))
	})
	defer srv.Close()

	// 0分是合法结果，不能和缺字段混为一谈
	result, err := client.MatchScore(context.Background(), &MatchRequest{
		JobID:                     "j1",
		JobDescription:            "负责后端开发",
		CandidateResumeParsedJSON: json.RawMessage(`{"skills":["go"]}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
}

func TestMatchScoreMissingFieldIsError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"strengths": ["go"]}`))
	})
	defer srv.Close()

	_, err := client.MatchScore(context.Background(), &MatchRequest{JobID: "j1"})

	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestGenerateDescriptionSuccess(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/generate-job-description", r.URL.Path)
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Go后端工程师", req.Title)
		assert.Equal(t, "示例科技", req.CompanyName)
		assert.Equal(t, "强调远程协作", req.Prompts)
		assert.Equal(t, "zh", req.Locale)

		_, _ = w.Write([]byte(`{"job_description": "职责描述", "model_name": "test-model"}`))
	})
	defer srv.Close()

	result, err := client.GenerateDescription(context.Background(), &GenerateRequest{
		Title:       "Go后端工程师",
		CompanyName: "示例科技",
		Prompts:     "强调远程协作",
		Locale:      "zh",
	}, true)

	require.NoError(t, err)
	assert.Equal(t, "职责描述", result.Description)
	assert.Equal(t, "test-model", result.ModelName)
}

func TestGenerateDescriptionEmptyIsError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job_description": ""}`))
	})
	defer srv.Close()

	_, err := client.GenerateDescription(context.Background(), &GenerateRequest{Title: "t"}, false)

	assert.ErrorIs(t, err, ErrEmptyResult)
}

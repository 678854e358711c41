package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"job-portal-go/internal/aiclient"
	"job-portal-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeApplicationStore struct {
	app        *models.Application
	getErr     error
	savedID    string
	savedScore float64
	saveErr    error
}

func (f *fakeApplicationStore) GetApplicationDetail(ctx context.Context, applicationID string) (*models.Application, error) {
	return f.app, f.getErr
}

func (f *fakeApplicationStore) SetApplicationScore(ctx context.Context, applicationID string, score float64) error {
	f.savedID = applicationID
	f.savedScore = score
	return f.saveErr
}

type fakeScorer struct {
	result  *aiclient.MatchResult
	err     error
	calls   int
	lastReq *aiclient.MatchRequest
}

func (f *fakeScorer) MatchScore(ctx context.Context, req *aiclient.MatchRequest) (*aiclient.MatchResult, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

func matchPayload(t *testing.T, applicationID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(MatchScorePayload{ApplicationID: applicationID})
	require.NoError(t, err)
	return raw
}

func scorableApplication() *models.Application {
	resumeID := "r1"
	return &models.Application{
		ApplicationID: "a1",
		UserID:        "u1",
		JobID:         "j1",
		ResumeID:      &resumeID,
		Job: &models.Job{
			JobID:        "j1",
			Title:        "Go后端工程师",
			Description:  "负责任务管道开发",
			Requirements: datatypes.JSON(`["go","mysql"]`),
		},
		Resume: &models.Resume{
			ResumeID:      "r1",
			ParsedProfile: datatypes.JSON(`{"skills":["go"]}`),
		},
	}
}

func TestMatchScoreMissingApplication(t *testing.T) {
	store := &fakeApplicationStore{app: nil}
	ai := &fakeScorer{}
	h := NewMatchScoreHandler(store, ai)

	err := h.Handle(context.Background(), matchPayload(t, "gone"))

	assert.NoError(t, err)
	assert.Zero(t, ai.calls)
}

func TestMatchScoreAlreadyScored(t *testing.T) {
	app := scorableApplication()
	score := 88.5
	app.Score = &score
	store := &fakeApplicationStore{app: app}
	ai := &fakeScorer{}
	h := NewMatchScoreHandler(store, ai)

	err := h.Handle(context.Background(), matchPayload(t, "a1"))

	assert.NoError(t, err)
	assert.Zero(t, ai.calls, "已打分的申请不应再次调用AI")
}

func TestMatchScoreSkipsWhenJobMissing(t *testing.T) {
	app := scorableApplication()
	app.Job = nil
	store := &fakeApplicationStore{app: app}
	ai := &fakeScorer{}
	h := NewMatchScoreHandler(store, ai)

	err := h.Handle(context.Background(), matchPayload(t, "a1"))

	assert.NoError(t, err)
	assert.Zero(t, ai.calls)
}

func TestMatchScoreSkipsWhenResumeMissing(t *testing.T) {
	app := scorableApplication()
	app.Resume = nil
	store := &fakeApplicationStore{app: app}
	ai := &fakeScorer{}
	h := NewMatchScoreHandler(store, ai)

	err := h.Handle(context.Background(), matchPayload(t, "a1"))

	assert.NoError(t, err)
	assert.Zero(t, ai.calls)
}

func TestMatchScoreWaitsForUnparsedResume(t *testing.T) {
	app := scorableApplication()
	app.Resume.ParsedProfile = nil
	store := &fakeApplicationStore{app: app}
	ai := &fakeScorer{}
	h := NewMatchScoreHandler(store, ai)

	// 前置条件不满足按完成处理，等CV解析完成后重新触发
	err := h.Handle(context.Background(), matchPayload(t, "a1"))

	assert.NoError(t, err)
	assert.Zero(t, ai.calls)
	assert.Empty(t, store.savedID)
}

func TestMatchScorePersistsScore(t *testing.T) {
	store := &fakeApplicationStore{app: scorableApplication()}
	ai := &fakeScorer{result: &aiclient.MatchResult{Score: 76.5}}
	h := NewMatchScoreHandler(store, ai)

	err := h.Handle(context.Background(), matchPayload(t, "a1"))

	require.NoError(t, err)
	assert.Equal(t, "a1", store.savedID)
	assert.Equal(t, 76.5, store.savedScore)
	assert.Equal(t, "j1", ai.lastReq.JobID)
	assert.Equal(t, "负责任务管道开发", ai.lastReq.JobDescription)
	assert.JSONEq(t, `{"skills":["go"]}`, string(ai.lastReq.CandidateResumeParsedJSON))
}

func TestMatchScoreAIErrorIsRetryable(t *testing.T) {
	store := &fakeApplicationStore{app: scorableApplication()}
	ai := &fakeScorer{err: errors.New("upstream 503")}
	h := NewMatchScoreHandler(store, ai)

	err := h.Handle(context.Background(), matchPayload(t, "a1"))

	assert.Error(t, err)
	assert.Empty(t, store.savedID)
}

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
)

type fakeJobStore struct {
	job       *models.Job
	getErr    error
	savedDesc string
	savedMeta *models.AIJobMetadata
}

func (f *fakeJobStore) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	return f.job, f.getErr
}

func (f *fakeJobStore) SetJobDescription(ctx context.Context, jobID string, description string) error {
	f.savedDesc = description
	return nil
}

func (f *fakeJobStore) UpsertAIJobMetadata(ctx context.Context, meta *models.AIJobMetadata) error {
	f.savedMeta = meta
	return nil
}

type fakeGenerator struct {
	result  *aiclient.DescriptionResult
	err     error
	calls   int
	lastReq *aiclient.GenerateRequest
}

func (f *fakeGenerator) GenerateDescription(ctx context.Context, req *aiclient.GenerateRequest, sync bool) (*aiclient.DescriptionResult, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

type fakeCache struct {
	invalidated []string
	err         error
}

func (f *fakeCache) InvalidateJobDescription(ctx context.Context, jobID string) error {
	f.invalidated = append(f.invalidated, jobID)
	return f.err
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) JobDescriptionGenerated(ctx context.Context, company *models.Company, job *models.Job) error {
	f.calls++
	return f.err
}

func generatePayload(t *testing.T, jobID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(GenerateDescriptionPayload{JobID: jobID, Prompt: "强调远程协作", Locale: "en"})
	require.NoError(t, err)
	return raw
}

func jobWithCompany() *models.Job {
	return &models.Job{
		JobID: "j1",
		Title: "Go后端工程师",
		Company: &models.Company{
			CompanyID: "c1",
			Name:      "示例科技",
			Email:     "hr@example.com",
		},
	}
}

func TestGenerateDescriptionMissingJob(t *testing.T) {
	store := &fakeJobStore{job: nil}
	ai := &fakeGenerator{}
	h := NewGenerateDescriptionHandler(store, ai, nil, nil)

	err := h.Handle(context.Background(), generatePayload(t, "gone"))

	assert.NoError(t, err)
	assert.Zero(t, ai.calls)
}

func TestGenerateDescriptionPersistsAndNotifies(t *testing.T) {
	store := &fakeJobStore{job: jobWithCompany()}
	ai := &fakeGenerator{result: &aiclient.DescriptionResult{
		Description:     "负责任务管道与搜索同步的开发",
		Requirements:    []string{"go", "rabbitmq"},
		SuggestedSkills: []string{"meilisearch"},
		ModelName:       "test-model",
	}}
	cache := &fakeCache{}
	notifier := &fakeNotifier{}
	h := NewGenerateDescriptionHandler(store, ai, cache, notifier)

	err := h.Handle(context.Background(), generatePayload(t, "j1"))

	require.NoError(t, err)
	assert.Equal(t, "负责任务管道与搜索同步的开发", store.savedDesc)
	require.NotNil(t, store.savedMeta)
	assert.Equal(t, "j1", store.savedMeta.JobID)
	assert.Equal(t, "test-model", store.savedMeta.ModelName)
	assert.NotNil(t, store.savedMeta.ProcessedAt)
	assert.Equal(t, []string{"meilisearch"}, store.savedMeta.SuggestedSkillList())
	assert.Equal(t, []string{"j1"}, cache.invalidated)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "Go后端工程师", ai.lastReq.Title)
	assert.Equal(t, "示例科技", ai.lastReq.CompanyName)
	assert.Equal(t, "强调远程协作", ai.lastReq.Prompts)
	assert.Equal(t, "en", ai.lastReq.Locale)
}

func TestGenerateDescriptionNotifyFailureTolerated(t *testing.T) {
	store := &fakeJobStore{job: jobWithCompany()}
	ai := &fakeGenerator{result: &aiclient.DescriptionResult{Description: "desc", ModelName: "m"}}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	h := NewGenerateDescriptionHandler(store, ai, nil, notifier)

	// 通知失败不能让任务重试，描述已经落库
	err := h.Handle(context.Background(), generatePayload(t, "j1"))

	assert.NoError(t, err)
	assert.Equal(t, "desc", store.savedDesc)
	assert.Equal(t, 1, notifier.calls)
}

func TestGenerateDescriptionSkipsNotifyWithoutEmail(t *testing.T) {
	job := jobWithCompany()
	job.Company.Email = ""
	store := &fakeJobStore{job: job}
	ai := &fakeGenerator{result: &aiclient.DescriptionResult{Description: "desc"}}
	notifier := &fakeNotifier{}
	h := NewGenerateDescriptionHandler(store, ai, nil, notifier)

	err := h.Handle(context.Background(), generatePayload(t, "j1"))

	assert.NoError(t, err)
	assert.Zero(t, notifier.calls)
}

func TestGenerateDescriptionAIErrorIsRetryable(t *testing.T) {
	store := &fakeJobStore{job: jobWithCompany()}
	ai := &fakeGenerator{err: aiclient.ErrEmptyResult}
	h := NewGenerateDescriptionHandler(store, ai, nil, nil)

	err := h.Handle(context.Background(), generatePayload(t, "j1"))

	assert.Error(t, err)
	assert.Empty(t, store.savedDesc)
}

package search

import (
	"context"
	"errors"
	"testing"

	"job-portal-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	upserts   [][]*JobDocument
	deletes   []string
	upsertErr error
}

func (f *fakeIndexer) UpsertDocuments(docs interface{}) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, docs.([]*JobDocument))
	return nil
}

func (f *fakeIndexer) DeleteDocument(id string) error {
	f.deletes = append(f.deletes, id)
	return nil
}

type fakeBatcher struct {
	batches [][]models.Job
}

func (f *fakeBatcher) ActiveJobsInBatches(ctx context.Context, batchSize int, fn func(jobs []models.Job) error) error {
	for _, batch := range f.batches {
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func TestSyncJobUpsertsActiveJob(t *testing.T) {
	index := &fakeIndexer{}
	s := NewSynchronizer(index)

	err := s.SyncJob(context.Background(), &models.Job{JobID: "j1", IsActive: true})

	require.NoError(t, err)
	require.Len(t, index.upserts, 1)
	assert.Equal(t, "j1", index.upserts[0][0].ID)
	assert.Empty(t, index.deletes)
}

func TestSyncJobDeletesInactiveJob(t *testing.T) {
	index := &fakeIndexer{}
	s := NewSynchronizer(index)

	err := s.SyncJob(context.Background(), &models.Job{JobID: "j2", IsActive: false})

	require.NoError(t, err)
	assert.Equal(t, []string{"j2"}, index.deletes)
	assert.Empty(t, index.upserts)
}

func TestSyncJobNilSynchronizerIsNoop(t *testing.T) {
	var s *Synchronizer

	assert.NoError(t, s.SyncJob(context.Background(), &models.Job{JobID: "j3", IsActive: true}))
}

func TestResyncAllCountsBatches(t *testing.T) {
	index := &fakeIndexer{}
	s := NewSynchronizer(index)
	batcher := &fakeBatcher{batches: [][]models.Job{
		{{JobID: "j1", IsActive: true}, {JobID: "j2", IsActive: true}},
		{{JobID: "j3", IsActive: true}},
	}}

	total, err := s.ResyncAll(context.Background(), batcher, 2)

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, index.upserts, 2)
	assert.Len(t, index.upserts[0], 2)
	assert.Len(t, index.upserts[1], 1)
}

func TestResyncAllPropagatesIndexError(t *testing.T) {
	index := &fakeIndexer{upsertErr: errors.New("index down")}
	s := NewSynchronizer(index)
	batcher := &fakeBatcher{batches: [][]models.Job{{{JobID: "j1", IsActive: true}}}}

	_, err := s.ResyncAll(context.Background(), batcher, 500)

	assert.Error(t, err)
}

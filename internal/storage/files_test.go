package storage

import (
	"context"
	"path/filepath"
	"testing"

	"job-portal-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStoreRoundTrip(t *testing.T) {
	store, err := NewLocalFileStore(&config.MinIOConfig{LocalDir: t.TempDir()})
	require.NoError(t, err)

	path, externalURL, err := store.Save(context.Background(), "r1", ".txt", []byte("简历内容"))
	require.NoError(t, err)
	assert.Equal(t, "r1.txt", path)
	assert.Nil(t, externalURL, "本地存储不应产生外部URL")

	data, err := store.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("简历内容"), data)
}

func TestLocalFileStoreCreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "resumes")

	_, err := NewLocalFileStore(&config.MinIOConfig{LocalDir: dir})

	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestLocalFileStoreReadMissing(t *testing.T) {
	store, err := NewLocalFileStore(&config.MinIOConfig{LocalDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Read(context.Background(), "missing.pdf")
	assert.Error(t, err)
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"job-portal-go/internal/config"
)

// ResumeFileStore 简历文件存取抽象
// MinIO可用时文件进对象存储并带有外部URL；否则落本地磁盘且无外部URL（降级模式）
type ResumeFileStore interface {
	// Save 保存简历文件，返回存储路径和可选的外部URL
	Save(ctx context.Context, resumeID, fileExt string, data []byte) (path string, externalURL *string, err error)

	// Read 按存储路径读取原始字节
	Read(ctx context.Context, path string) ([]byte, error)
}

// MinIOFileStore 基于MinIO的简历文件存储
type MinIOFileStore struct {
	minio *MinIO
}

// NewMinIOFileStore 创建基于MinIO的简历文件存储
func NewMinIOFileStore(m *MinIO) *MinIOFileStore {
	return &MinIOFileStore{minio: m}
}

func (s *MinIOFileStore) Save(ctx context.Context, resumeID, fileExt string, data []byte) (string, *string, error) {
	objectKey, err := s.minio.UploadResumeFile(ctx, resumeID, fileExt, data)
	if err != nil {
		return "", nil, err
	}
	externalURL, err := s.minio.PresignedGetURL(ctx, objectKey)
	if err != nil {
		return "", nil, err
	}
	return objectKey, &externalURL, nil
}

func (s *MinIOFileStore) Read(ctx context.Context, path string) ([]byte, error) {
	return s.minio.DownloadFile(ctx, path)
}

// LocalFileStore 本地磁盘简历文件存储，无外部URL
type LocalFileStore struct {
	baseDir string
}

// NewLocalFileStore 创建本地磁盘简历文件存储
func NewLocalFileStore(cfg *config.MinIOConfig) (*LocalFileStore, error) {
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地简历目录失败 (%s): %w", cfg.LocalDir, err)
	}
	return &LocalFileStore{baseDir: cfg.LocalDir}, nil
}

func (s *LocalFileStore) Save(_ context.Context, resumeID, fileExt string, data []byte) (string, *string, error) {
	relPath := resumeID + fileExt
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("写入本地简历文件失败: %w", err)
	}
	// 本地存储没有可供AI服务访问的URL，external_url保持为空
	return relPath, nil, nil
}

func (s *LocalFileStore) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, path))
	if err != nil {
		return nil, fmt.Errorf("读取本地简历文件失败: %w", err)
	}
	return data, nil
}

package storage

import (
	"context"

	"job-portal-go/internal/config"
	"job-portal-go/internal/logger"
)

// Storage 聚合所有存储组件
// MySQL/Redis/RabbitMQ是硬依赖，MinIO和Meilisearch允许缺席降级
type Storage struct {
	MySQL    *MySQL
	Redis    *Redis
	RabbitMQ *RabbitMQ
	MinIO    *MinIO
	Meili    *Meilisearch

	// Files 简历原件存取，MinIO可用时走对象存储，否则落本地磁盘
	Files ResumeFileStore
}

// NewStorage 按配置初始化全部存储组件
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	s := &Storage{}

	mysqlDB, err := NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, err
	}
	s.MySQL = mysqlDB

	redisAdapter, err := NewRedisAdapter(&cfg.Redis)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Redis = redisAdapter

	mq, err := NewRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.RabbitMQ = mq

	// MinIO未配置或连不上时降级到本地磁盘，简历不会带external_url
	if cfg.MinIO.Enabled() {
		minioClient, minioErr := NewMinIO(&cfg.MinIO)
		if minioErr != nil {
			logger.Warn().Err(minioErr).Msg("MinIO初始化失败，简历文件将落本地磁盘")
		} else {
			s.MinIO = minioClient
			s.Files = NewMinIOFileStore(minioClient)
		}
	}
	if s.Files == nil {
		localStore, localErr := NewLocalFileStore(&cfg.MinIO)
		if localErr != nil {
			s.Close()
			return nil, localErr
		}
		s.Files = localStore
	}

	// Meilisearch不可用时岗位查询全部走数据库回退路径
	meili, meiliErr := NewMeilisearch(&cfg.Meilisearch)
	if meiliErr != nil {
		logger.Warn().Err(meiliErr).Msg("Meilisearch初始化失败，岗位搜索将回退到数据库")
	} else {
		s.Meili = meili
	}

	return s, nil
}

// Close 释放所有已建立的连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
}

package storage

import (
	"context"
	"fmt"
	"time"

	"job-portal-go/internal/config"
	"job-portal-go/internal/constants"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 键不存在时返回，包装底层redis.Nil
var ErrNotFound = redis.Nil

// Redis 键值存储适配器
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	client := redis.NewClient(opt)

	// OpenTelemetry钩子，记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("为Redis注册OpenTelemetry钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis失败 (%s): %w", cfg.Address, err)
	}

	return &Redis{Client: client, cfg: cfg}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	return r.Client.Close()
}

// Get 读取字符串键
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	return r.Client.Get(ctx, key).Result()
}

// Set 写入字符串键
func (r *Redis) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	return r.Client.Set(ctx, key, value, expiry).Err()
}

// CheckResumeFileMD5Exists 检查简历文件MD5是否已上传过
func (r *Redis) CheckResumeFileMD5Exists(ctx context.Context, md5Hex string) (bool, error) {
	return r.Client.SIsMember(ctx, constants.ResumeFileMD5SetKey, md5Hex).Result()
}

// AddResumeFileMD5 记录新上传文件的MD5并刷新集合过期时间
func (r *Redis) AddResumeFileMD5(ctx context.Context, md5Hex string) error {
	if err := r.Client.SAdd(ctx, constants.ResumeFileMD5SetKey, md5Hex).Err(); err != nil {
		return err
	}
	expiry := time.Duration(r.cfg.FileMD5ExpireDays) * 24 * time.Hour
	return r.Client.Expire(ctx, constants.ResumeFileMD5SetKey, expiry).Err()
}

// GetCachedJobDescription 读取岗位描述缓存
func (r *Redis) GetCachedJobDescription(ctx context.Context, jobID string) (string, error) {
	return r.Get(ctx, constants.JobDescriptionCachePrefix+jobID)
}

// CacheJobDescription 写入岗位描述缓存
func (r *Redis) CacheJobDescription(ctx context.Context, jobID string, description string, expiry time.Duration) error {
	return r.Set(ctx, constants.JobDescriptionCachePrefix+jobID, description, expiry)
}

// InvalidateJobDescription 岗位描述被覆盖后清除缓存
func (r *Redis) InvalidateJobDescription(ctx context.Context, jobID string) error {
	return r.Client.Del(ctx, constants.JobDescriptionCachePrefix+jobID).Err()
}

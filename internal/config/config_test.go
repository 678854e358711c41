package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mysql:
  host: localhost
  port: 3306
  username: portal
  password: secret
  database: portal
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "portal.tasks", cfg.RabbitMQ.TaskExchange)
	assert.Equal(t, "portal_task_queue", cfg.RabbitMQ.TaskQueue)
	assert.Equal(t, 5, cfg.RabbitMQ.PrefetchCount)
	assert.Equal(t, "jobs", cfg.Meilisearch.Index)
	assert.Equal(t, 500, cfg.Meilisearch.ResyncBatchSize)
	assert.Equal(t, "storage/resumes", cfg.MinIO.LocalDir)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
mysql:
  host: localhost
  port: 3306
  username: portal
  password: from-yaml
  database: portal
ai_service:
  base_url: http://yaml:8000
`)
	t.Setenv("MYSQL_PASSWORD", "from-env")
	t.Setenv("AI_SERVICE_URL", "http://env:8000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.MySQL.Password)
	assert.Equal(t, "http://env:8000", cfg.AIService.BaseURL)
}

func TestMySQLDSN(t *testing.T) {
	cfg := &MySQLConfig{
		Host:     "db",
		Port:     3307,
		Username: "portal",
		Password: "secret",
		Database: "jobs",
	}

	assert.Equal(t,
		"portal:secret@tcp(db:3307)/jobs?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DSN())
}

func TestAIServiceTimeouts(t *testing.T) {
	cfg := &AIServiceConfig{}

	assert.Equal(t, 120*time.Second, cfg.AnalyzeTimeout())
	assert.Equal(t, 120*time.Second, cfg.MatchTimeout())
	assert.Equal(t, 60*time.Second, cfg.GenerateTimeout())
	assert.Equal(t, 30*time.Second, cfg.GenerateSyncTimeout())

	cfg.AnalyzeTimeoutSeconds = 10
	assert.Equal(t, 10*time.Second, cfg.AnalyzeTimeout())
}

func TestMinIOEnabled(t *testing.T) {
	assert.False(t, (&MinIOConfig{}).Enabled())
	assert.True(t, (&MinIOConfig{Endpoint: "localhost:9000"}).Enabled())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8004", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Graph.BatchSize)
	assert.Equal(t, 4, cfg.Graph.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Graph.InitialBackoff())
	assert.Equal(t, 30*time.Second, cfg.Graph.RequestTimeout())
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.Graph.BaseURL)
	assert.Equal(t, "https://graph.microsoft.com/.default", cfg.Graph.Scope)
	assert.Equal(t, 5, cfg.Sync.IntervalMinutes)
	assert.True(t, cfg.Sync.RunOnStart)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
graph:
  tenant_id: "tenant-1"
  group_id: "group-1"
  batch_size: 50
  initial_backoff_seconds: 0.5
sync:
  interval_minutes: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", cfg.Graph.TenantID)
	assert.Equal(t, "group-1", cfg.Graph.GroupID)
	assert.Equal(t, 50, cfg.Graph.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Graph.InitialBackoff())
	assert.Equal(t, 10, cfg.Sync.IntervalMinutes)
	// Untouched values keep their defaults
	assert.Equal(t, 4, cfg.Graph.MaxRetries)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TENANT_ID", "env-tenant")
	t.Setenv("GROUP_ID", "env-group")
	t.Setenv("PRESENCE_BATCH_SIZE", "25")
	t.Setenv("DATABASE_URL", "postgres://example/db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-tenant", cfg.Graph.TenantID)
	assert.Equal(t, "env-group", cfg.Graph.GroupID)
	assert.Equal(t, 25, cfg.Graph.BatchSize)
	assert.Equal(t, "postgres://example/db", cfg.Database.GetDSN())
}

func TestGetDSN_BuildsFromParts(t *testing.T) {
	cfg := DatabaseConfig{
		Host:    "db.local",
		Port:    5433,
		User:    "svc",
		Name:    "presence",
		SSLMode: "disable",
	}
	assert.Equal(t, "host=db.local port=5433 user=svc password= dbname=presence sslmode=disable", cfg.GetDSN())
}

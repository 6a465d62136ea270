package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NETMON_CONFIG", "PORT", "GO_ENV", "API_BASE_URL", "POLL_INTERVAL", "ALERT_SYNC_INTERVAL",
		"LIVE_SERIES_CAPACITY", "SNAPSHOT_SERIES_CAPACITY", "STORAGE_BACKEND", "MINIO_ENDPOINT",
		"RABBITMQ_URL", "REPORT_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.AlertSyncInterval)
	assert.Equal(t, 10, cfg.LiveSeriesCapacity)
	assert.Equal(t, 7, cfg.SnapshotSeriesCapacity)
	assert.Equal(t, StorageSQLite, cfg.StorageBackend)
	assert.False(t, cfg.MinioEnabled())
	assert.False(t, cfg.NotifyEnabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "netmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
api:
  base_url: https://nms.example.com/api/
intervals:
  poll: 2s
series:
  live: 20
minio:
  endpoint: minio:9000
`), 0o600))

	t.Setenv("NETMON_CONFIG", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "https://nms.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 20, cfg.LiveSeriesCapacity)
	assert.True(t, cfg.MinioEnabled())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load()
	require.NoError(t, err)

	cfg := *base
	cfg.StorageBackend = "etcd"
	assert.Error(t, cfg.Validate())

	cfg = *base
	cfg.APIBaseURL = "ftp://example.com"
	assert.Error(t, cfg.Validate())

	cfg = *base
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = *base
	cfg.ReportFormat = "xml"
	assert.Error(t, cfg.Validate())

	cfg = *base
	cfg.MinioEndpoint = "minio:9000"
	cfg.ReportsBucket = ""
	assert.ErrorContains(t, cfg.Validate(), "REPORTS_BUCKET")
}

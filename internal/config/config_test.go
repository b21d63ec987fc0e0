package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BROKERHUB_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "@every 15m", cfg.SyncSchedule)
	assert.False(t, cfg.DevMode)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BROKERHUB_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("SYNC_SCHEDULE", "@every 1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "@every 1m", cfg.SyncSchedule)
}

func TestLoad_InvalidPortFallsBack(t *testing.T) {
	t.Setenv("BROKERHUB_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestValidate_BackupRequiresBucket(t *testing.T) {
	cfg := &Config{
		DataDir: "/tmp",
		Port:    8080,
		Backup: &BackupConfig{
			Enabled: true,
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_BUCKET")
}

func TestValidate_BackupRequiresCredentials(t *testing.T) {
	cfg := &Config{
		DataDir: "/tmp",
		Port:    8080,
		Backup: &BackupConfig{
			Enabled: true,
			Bucket:  "backups",
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

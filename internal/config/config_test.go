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
	for _, k := range []string{
		"APP_NAME", "PARANOID_STORAGE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DB_STATEMENT_TIMEOUT", "LOG_LEVEL", "LOG_DEVELOPMENT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "paranoid", cfg.AppName)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)
	assert.Equal(t, 30*time.Second, cfg.StatementTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDevelopment)
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PARANOID_STORAGE", StoragePostgres)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "DatabaseURL")
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	for _, k := range []string{"PARANOID_STORAGE", "DATABASE_URL", "DB_MAX_CONNS", "LOG_DEVELOPMENT"} {
		require.NoError(t, os.Unsetenv(k))
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"PARANOID_STORAGE=postgres\nDATABASE_URL=postgres://u:p@localhost:5432/db\nDB_MAX_CONNS=4\nLOG_DEVELOPMENT=true\n",
	), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"PARANOID_STORAGE", "DATABASE_URL", "DB_MAX_CONNS", "LOG_DEVELOPMENT"} {
			_ = os.Unsetenv(k)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.True(t, cfg.LogDevelopment)

	pc := cfg.Pool()
	assert.Equal(t, "postgres://u:p@localhost:5432/db", pc.DSN)
	assert.Equal(t, "paranoid", pc.ApplicationName)
	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, 30*time.Second, pc.StatementTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Config{AppName: "x", Storage: "redis", MaxConns: 1, LogLevel: "info"}
	assert.ErrorContains(t, cfg.Validate(), "Storage")

	cfg = Config{AppName: "x", Storage: StorageMemory, MaxConns: 2, MinConns: 3, LogLevel: "info"}
	assert.ErrorContains(t, cfg.Validate(), "MinConns")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, int64(50*1024*1024), cfg.UploadMaxBytes)
	assert.Equal(t, 10*time.Minute, cfg.UploadTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "bkpconnect.events", cfg.EventsExchange)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "JWT_SECRET=from-file\nSTORE_DRIVER=postgres\nUPLOAD_TIMEOUT=30s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("WS_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.UploadTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.WSAllowedOrigins)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Broker.PersistTimeout)
	assert.Equal(t, 32, cfg.Broker.MaxChainDepth)
	assert.Equal(t, 10*time.Second, cfg.TextGen.Timeout)
	assert.Equal(t, 2, cfg.TextGen.MaxAttempts)
	assert.False(t, cfg.NeedsRedis())
}

func TestFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eldercare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: redis
redis:
  addr: redis:6379
broker:
  persist_timeout: 250ms
textgen:
  provider: anthropic
  max_attempts: 3
`), 0o600))
	t.Setenv("ELDERCARE_TEXTGEN_MAX_ATTEMPTS", "4")
	t.Setenv("ELDERCARE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Broker.PersistTimeout)
	assert.Equal(t, ProviderAnthropic, cfg.TextGen.Provider)
	assert.Equal(t, 4, cfg.TextGen.MaxAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.NeedsRedis())
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	t.Setenv("ELDERCARE_STORE_DRIVER", "postgres")
	t.Setenv("ELDERCARE_TEXTGEN_PROVIDER", "gemini")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "textgen.provider")
}

func TestYAMLMasksSecrets(t *testing.T) {
	t.Setenv("ELDERCARE_TEXTGEN_API_KEY", "sk-secret")
	cfg, err := Load("")
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sk-secret")
	assert.Equal(t, "sk-secret", cfg.TextGen.APIKey)

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "****", back.TextGen.APIKey)
	assert.Equal(t, cfg.Broker.PersistTimeout, back.Broker.PersistTimeout)
}

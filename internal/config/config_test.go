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
	for _, k := range []string{
		"FLOWSTATE_ROOT", "FLOWSTATE_STORE", "FLOWSTATE_LLM_PROVIDER", "FLOWSTATE_LLM_MODEL",
		"FLOWSTATE_LLM_BASE_URL", "FLOWSTATE_ADDR", "FLOWSTATE_LOG_LEVEL", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendDocstore, cfg.Store.Backend)
	assert.Equal(t, ProviderNone, cfg.LLM.Provider)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 256, cfg.Server.MaxSessions)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout())
	require.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Store.Backend = BackendSQLite
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.APIKey = "g-test"
	cfg.LLM.Timeout = "15s"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, loaded.Store.Backend)
	assert.Equal(t, ProviderGemini, loaded.LLM.Provider)
	assert.Equal(t, "g-test", loaded.LLM.APIKey)
	assert.Equal(t, 15*time.Second, loaded.LLMTimeout())
	assert.Equal(t, "gemini-2.5-flash", loaded.LLMModel())
	assert.Equal(t, filepath.Join(loaded.Store.Root, "flowstate.db"), loaded.SQLitePath())
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLOWSTATE_ROOT", "/tmp/fs-root")
	t.Setenv("FLOWSTATE_STORE", "SQLite")
	t.Setenv("FLOWSTATE_ADDR", ":9999")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fs-root", cfg.Store.Root)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLMBaseURL())
}

func TestExplicitProviderKeepsItsOwnKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLOWSTATE_LLM_PROVIDER", "gemini")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GEMINI_API_KEY", "g-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "g-env", cfg.LLM.APIKey)
}

func TestParseErrorIsReported(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cfg := DefaultConfig()
	cfg.Store.Backend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "invalid store backend")

	cfg = DefaultConfig()
	cfg.LLM.Provider = ProviderOpenAI
	assert.ErrorContains(t, cfg.Validate(), "needs an API key")

	cfg.LLM.BaseURL = "http://localhost:11434/v1"
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	assert.ErrorContains(t, cfg.Validate(), "invalid LLM provider")

	cfg = DefaultConfig()
	cfg.Server.MaxSessions = 0
	assert.ErrorContains(t, cfg.Validate(), "max_sessions")

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	assert.ErrorContains(t, cfg.Validate(), "invalid log level")
}

func TestRedactedMasksKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"
	assert.Equal(t, "****", cfg.Redacted().LLM.APIKey)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
}

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
	for _, key := range boundKeys {
		for _, name := range envAliases[key] {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.App.HTTPAddr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "apikey", cfg.Auth.Header)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-5-nano", cfg.AI.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.APIURL)
	assert.Empty(t, cfg.AI.APIKey)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout())
	assert.Equal(t, 20*time.Second, cfg.Mothership.Timeout())
	assert.Equal(t, "data/current_positions.json", cfg.Store.PositionsPath)
	assert.Equal(t, "data/trading_history.json", cfg.Store.HistoryPath)
	assert.Empty(t, cfg.Store.AuditDBPath)
	assert.Zero(t, cfg.AI.BreakerThreshold)
}

func TestLoadFileAndLegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "  secret-key  ")
	t.Setenv("CHATGPT_API_KEY", "sk-test")
	t.Setenv("MOTHERSHIP_URL", "http://mothership.local/")

	path := writeConfig(t, `
app:
  log_level: debug
  http_addr: ":9000"
ai:
  timeout_seconds: 15
mothership:
  api_key: from-file
store:
  positions_path: /tmp/p.json
  history_path: /tmp/h.json
  audit_db_path: /tmp/audit.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, "secret-key", cfg.Auth.APIKey)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, 15*time.Second, cfg.AI.Timeout())
	assert.Equal(t, "http://mothership.local", cfg.Mothership.URL)
	assert.Equal(t, "from-file", cfg.Mothership.APIKey)
	assert.Equal(t, "/tmp/audit.db", cfg.Store.AuditDBPath)
}

func TestPrefixedEnvWinsOverAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "legacy")
	t.Setenv("TICKAGENT_AUTH_API_KEY", "prefixed")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Auth.APIKey)
}

func TestGeminiModelDefault(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "ai:\n  provider: Gemini\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Empty(t, cfg.AI.APIURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"unknown provider": "ai:\n  provider: claude-local\n",
		"relative url":     "mothership:\n  url: not-a-url\n",
		"same paths":       "store:\n  positions_path: a.json\n  history_path: a.json\n",
		"negative rate":    "http:\n  rate_limit_per_sec: -1\n",
		"empty api key":    "auth:\n  api_key: \"\"\n",
		"breaker no wait":  "ai:\n  breaker_threshold: 3\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := Config{
		Auth:       AuthConfig{APIKey: "abcdef123456"},
		AI:         AIConfig{APIKey: "sk-0000wxyz"},
		Mothership: MothershipConfig{APIKey: ""},
	}
	red := cfg.Redacted()
	assert.Equal(t, "****3456", red.Auth.APIKey)
	assert.Equal(t, "****wxyz", red.AI.APIKey)
	assert.Equal(t, "(unset)", red.Mothership.APIKey)
	assert.Equal(t, "abcdef123456", cfg.Auth.APIKey)
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	LoadDotEnv(filepath.Join(t.TempDir(), ".env"))

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TICKAGENT_TEST_ONLY=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TICKAGENT_TEST_ONLY") })
	LoadDotEnv(envPath)
	assert.Equal(t, "loaded", os.Getenv("TICKAGENT_TEST_ONLY"))
}

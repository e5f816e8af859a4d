package config

import (
	"strings"
	"time"
)

// Config is the single immutable configuration built at process start and
// handed to every component constructor.
type Config struct {
	App        AppConfig        `toml:"app"`
	Auth       AuthConfig       `toml:"auth"`
	HTTP       HTTPConfig       `toml:"http"`
	AI         AIConfig         `toml:"ai"`
	Mothership MothershipConfig `toml:"mothership"`
	Store      StoreConfig      `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// AuthConfig holds the shared secret inbound callers must present.
type AuthConfig struct {
	APIKey string `toml:"api_key"`
	Header string `toml:"header"`
}

// HTTPConfig tunes the inbound boundary. RateLimitPerSec <= 0 disables limiting.
type HTTPConfig struct {
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
	RateBurst       int     `toml:"rate_burst"`
}

// AIConfig selects the recommendation provider. An empty APIKey is valid and
// makes every tick use the STAY fallback.
type AIConfig struct {
	Provider       string  `toml:"provider"` // openai | gemini
	APIKey         string  `toml:"api_key"`
	APIURL         string  `toml:"api_url"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	PromptPath     string  `toml:"prompt_path"`

	// BreakerThreshold consecutive provider failures skip the assistant for
	// BreakerCooldownSeconds. Zero disables the breaker.
	BreakerThreshold       int `toml:"breaker_threshold"`
	BreakerCooldownSeconds int `toml:"breaker_cooldown_seconds"`
}

func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (a AIConfig) BreakerCooldown() time.Duration {
	return time.Duration(a.BreakerCooldownSeconds) * time.Second
}

// ProviderName returns the normalised provider identifier.
func (a AIConfig) ProviderName() string {
	return strings.ToLower(strings.TrimSpace(a.Provider))
}

// MothershipConfig describes the remote trade-execution endpoint.
type MothershipConfig struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (m MothershipConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// StoreConfig points at the two JSON documents and the optional audit db.
type StoreConfig struct {
	PositionsPath string `toml:"positions_path"`
	HistoryPath   string `toml:"history_path"`
	AuditDBPath   string `toml:"audit_db_path"`
}

package config

import (
	"fmt"
	"net/url"
	"strings"
)

func validate(c *Config) error {
	if err := c.Auth.validate(); err != nil {
		return err
	}
	if err := c.HTTP.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Mothership.validate(); err != nil {
		return err
	}
	return c.Store.validate()
}

func (a *AuthConfig) validate() error {
	if strings.TrimSpace(a.APIKey) == "" {
		return fmt.Errorf("auth.api_key cannot be empty")
	}
	if strings.TrimSpace(a.Header) == "" {
		return fmt.Errorf("auth.header cannot be empty")
	}
	return nil
}

func (h *HTTPConfig) validate() error {
	if h.RateLimitPerSec < 0 {
		return fmt.Errorf("http.rate_limit_per_sec must be >= 0")
	}
	if h.RateBurst <= 0 {
		return fmt.Errorf("http.rate_burst must be > 0")
	}
	return nil
}

func (a *AIConfig) validate() error {
	switch a.ProviderName() {
	case "openai":
		if strings.TrimSpace(a.APIURL) == "" {
			return fmt.Errorf("ai.api_url is required for provider openai")
		}
	case "gemini":
	default:
		return fmt.Errorf("ai.provider must be openai or gemini, got %q", a.Provider)
	}
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("ai.model cannot be empty")
	}
	if a.TimeoutSeconds <= 0 {
		return fmt.Errorf("ai.timeout_seconds must be > 0")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be within [0, 2]")
	}
	if a.BreakerThreshold < 0 || a.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("ai.breaker_threshold and ai.breaker_cooldown_seconds must be >= 0")
	}
	if a.BreakerThreshold > 0 && a.BreakerCooldownSeconds == 0 {
		return fmt.Errorf("ai.breaker_cooldown_seconds must be > 0 when the breaker is enabled")
	}
	return nil
}

func (m *MothershipConfig) validate() error {
	raw := strings.TrimSpace(m.URL)
	if raw == "" {
		return fmt.Errorf("mothership.url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("mothership.url is not an absolute URL: %q", raw)
	}
	if m.TimeoutSeconds <= 0 {
		return fmt.Errorf("mothership.timeout_seconds must be > 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.PositionsPath) == "" {
		return fmt.Errorf("store.positions_path cannot be empty")
	}
	if strings.TrimSpace(s.HistoryPath) == "" {
		return fmt.Errorf("store.history_path cannot be empty")
	}
	if s.PositionsPath == s.HistoryPath {
		return fmt.Errorf("store.positions_path and store.history_path must differ")
	}
	return nil
}

package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"tickagent/internal/config"
	"tickagent/internal/recommend"
)

// StartupSummary is printed once before the server starts listening.
type StartupSummary struct {
	Env        string
	HTTPAddr   string
	AuthHeader string
	APIKey     string
	RateLimit  string

	Provider   string
	Model      string
	PromptPath string

	MothershipURL string
	MothershipKey string

	PositionsPath string
	HistoryPath   string
	AuditPath     string
}

type providerNamer interface {
	ProviderID() string
}

func newStartupSummary(cfg *config.Config, rec recommend.Recommender) *StartupSummary {
	red := cfg.Redacted()
	s := &StartupSummary{
		Env:           red.App.Env,
		HTTPAddr:      red.App.HTTPAddr,
		AuthHeader:    red.Auth.Header,
		APIKey:        red.Auth.APIKey,
		RateLimit:     "disabled",
		Provider:      "none",
		Model:         red.AI.Model,
		PromptPath:    red.AI.PromptPath,
		MothershipURL: red.Mothership.URL,
		MothershipKey: red.Mothership.APIKey,
		PositionsPath: red.Store.PositionsPath,
		HistoryPath:   red.Store.HistoryPath,
		AuditPath:     red.Store.AuditDBPath,
	}
	if red.HTTP.RateLimitPerSec > 0 {
		s.RateLimit = fmt.Sprintf("%g/s burst %d", red.HTTP.RateLimitPerSec, red.HTTP.RateBurst)
	}
	if pn, ok := rec.(providerNamer); ok {
		s.Provider = pn.ProviderID()
	}
	return s
}

func (s *StartupSummary) Print() {
	s.WriteTo(os.Stdout)
}

func (s *StartupSummary) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	title := "STARTUP SUMMARY"
	b.WriteString(strings.Repeat("=", 64) + "\n")
	fmt.Fprintf(&b, "%*s\n", 32+len(title)/2, title)
	b.WriteString(strings.Repeat("=", 64) + "\n")

	section(&b, "HTTP",
		"env", s.Env,
		"listen", s.HTTPAddr,
		"auth header", s.AuthHeader,
		"api key", s.APIKey,
		"tick rate limit", s.RateLimit,
	)
	section(&b, "RECOMMENDATIONS",
		"provider", s.Provider,
		"model", s.Model,
		"prompts", orDash(s.PromptPath),
	)
	section(&b, "MOTHERSHIP",
		"url", s.MothershipURL,
		"x-api-key", s.MothershipKey,
	)
	section(&b, "STORAGE",
		"positions", s.PositionsPath,
		"history", s.HistoryPath,
		"audit db", orDash(s.AuditPath),
	)
	b.WriteString(strings.Repeat("=", 64) + "\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func section(b *strings.Builder, name string, kv ...string) {
	fmt.Fprintf(b, "[%s]\n", name)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(b, "  %-16s %s\n", kv[i]+":", kv[i+1])
	}
	b.WriteString("\n")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

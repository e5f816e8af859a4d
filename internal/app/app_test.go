package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"tickagent/internal/config"
	"tickagent/internal/recommend"
	"tickagent/internal/store"
	"tickagent/internal/tick"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T, mothershipURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App:  config.AppConfig{Env: "test", LogLevel: "error", HTTPAddr: "127.0.0.1:0"},
		Auth: config.AuthConfig{APIKey: "k", Header: "apikey"},
		HTTP: config.HTTPConfig{RateBurst: 1},
		AI:   config.AIConfig{Provider: "openai", TimeoutSeconds: 1, Temperature: 0.2},
		Mothership: config.MothershipConfig{
			URL:            mothershipURL,
			APIKey:         "m-key",
			TimeoutSeconds: 2,
		},
		Store: config.StoreConfig{
			PositionsPath: filepath.Join(dir, "current_positions.json"),
			HistoryPath:   filepath.Join(dir, "trading_history.json"),
			AuditDBPath:   filepath.Join(dir, "audit.db"),
		},
	}
}

func TestBuildAndServeTickEndToEnd(t *testing.T) {
	var submitted map[string]any
	ms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/make_trade", r.URL.Path)
		assert.Equal(t, "m-key", r.Header.Get("x-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &submitted))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"accepted","Positions":[{"ticker":"X","quantity":12,"purchase_price":101}]}`))
	}))
	defer ms.Close()

	cfg := testConfig(t, ms.URL)
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	defer closeAudit(a.audit)

	payload := `{"Positions":[{"ticker":"X","quantity":10,"purchase_price":100}],
		"Market_Summary":[{"ticker":"X","current_price":110,"category":"low"}],
		"market_history":[]}`
	req := httptest.NewRequest(http.MethodPost, "/tick/abc", strings.NewReader(payload))
	req.Header.Set("apikey", "k")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "success", out["result"])
	assert.Equal(t, 200.0, out["http_status_mothership"])
	assert.Equal(t, []any{map[string]any{"action": "STAY", "ticker": "X", "quantity": 0.0}}, out["decisions"])

	assert.Equal(t, "abc", submitted["id"])

	snap := store.NewSnapshot(cfg.Store.PositionsPath).Load()
	require.Len(t, snap, 1)
	assert.Equal(t, 12, snap[0].Quantity)
	require.NotNil(t, snap[0].CurrentPrice)
	assert.Equal(t, 110.0, *snap[0].CurrentPrice)

	hist := store.NewHistory(cfg.Store.HistoryPath).Load()
	require.Len(t, hist, 1)
	assert.Equal(t, recommend.FallbackRationale, hist[0].Rationale)

	entries, err := a.audit.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].TradeID)
	assert.Equal(t, "fallback", entries[0].Source)
}

type stubRecommender struct{}

func (stubRecommender) Recommend(context.Context, tick.Payload) recommend.Recommendation {
	return recommend.Recommendation{Trades: []tick.Trade{}, Rationale: "stub", Source: recommend.SourceAssistant}
}

func TestBuilderHooksAndSummary(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Store.AuditDBPath = ""
	b := NewAppBuilder(cfg, WithRecommender(func(context.Context, config.AIConfig) recommend.Recommender {
		return stubRecommender{}
	}))
	a, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Nil(t, a.audit)

	var buf bytes.Buffer
	_, err = a.Summary.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "provider:")
	assert.Contains(t, out, "none")
	assert.NotContains(t, out, "m-key")
	assert.Contains(t, out, "audit db:")
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Store.AuditDBPath = ""
	a, err := NewApp(cfg)
	require.NoError(t, err)
	a.Summary = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}

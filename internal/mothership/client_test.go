package mothership

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tickagent/internal/config"
	"tickagent/internal/tick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(config.MothershipConfig{URL: url, APIKey: "secret-x", TimeoutSeconds: 2})
	require.NoError(t, err)
	return c
}

func TestSubmitPostsTradesWithKey(t *testing.T) {
	var (
		gotPath   string
		gotKey    string
		gotType   string
		gotBody   map[string]any
		gotMethod string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","Positions":[{"ticker":"X","quantity":12,"purchase_price":101.5}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/")
	resp, err := c.Submit(context.Background(), "trade-7", []tick.Trade{{Action: tick.ActionBuy, Ticker: "X", Quantity: 2}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/make_trade", gotPath)
	assert.Equal(t, "secret-x", gotKey)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "trade-7", gotBody["id"])
	trades := gotBody["trades"].([]any)
	require.Len(t, trades, 1)
	assert.Equal(t, "BUY", trades[0].(map[string]any)["action"])

	assert.True(t, resp.OK())
	assert.Equal(t, "ok", resp.Body["status"])
	assert.NotContains(t, resp.Body, "_http_status")

	positions, ok, err := resp.Positions()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []tick.Position{{Ticker: "X", Quantity: 12, PurchasePrice: 101.5}}, positions)
}

func TestSubmitEmptyTradesSendsArray(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Submit(context.Background(), "t", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t","trades":[]}`, raw)
}

func TestSubmitNonJSONBodyIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Submit(context.Background(), "t", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.False(t, resp.OK())
	assert.Equal(t, map[string]any{"error": "Non-JSON response from mothership (status 502)"}, resp.Body)

	_, ok, err := resp.Positions()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitNonObjectJSONIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Submit(context.Background(), "t", nil)
	require.NoError(t, err)
	assert.Equal(t, "Non-JSON response from mothership (status 200)", resp.Body["error"])
}

func TestSubmitUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Submit(context.Background(), "t", nil)
	require.Error(t, err)
	var tErr *TransportError
	assert.True(t, errors.As(err, &tErr))
}

func TestSubmitTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL)
	c.SetHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})
	_, err := c.Submit(context.Background(), "t", nil)
	var tErr *TransportError
	assert.True(t, errors.As(err, &tErr))
}

func TestPositionsNullIsError(t *testing.T) {
	_, ok, err := Response{Status: 200, Body: map[string]any{"Positions": nil}}.Positions()
	assert.True(t, ok)
	assert.Error(t, err)
}

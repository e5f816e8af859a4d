package mothership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tickagent/internal/config"
	"tickagent/internal/logger"
	"tickagent/internal/tick"
)

const (
	makeTradePath   = "/make_trade"
	apiKeyHeader    = "x-api-key"
	maxResponseBody = 1 << 20
)

// Submitter forwards a tick's trades to the service of record.
type Submitter interface {
	Submit(ctx context.Context, tradeID string, trades []tick.Trade) (Response, error)
}

// TransportError means no HTTP response was obtained at all (timeout, DNS,
// refused connection). It is the one submission failure that fails a tick.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mothership unreachable (%s): %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client posts to <base_url>/make_trade. One attempt per call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
}

type submitPayload struct {
	ID     string       `json:"id"`
	Trades []tick.Trade `json:"trades"`
}

func NewClient(cfg config.MothershipConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, fmt.Errorf("mothership.url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse mothership.url: %w", err)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) endpoint() string {
	base := *c.baseURL
	base.Path = strings.TrimSuffix(base.Path, "/") + makeTradePath
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""
	return base.String()
}

// Submit never inspects the status code: any HTTP response, including 4xx
// and 5xx, is returned as data for the caller to branch on.
func (c *Client) Submit(ctx context.Context, tradeID string, trades []tick.Trade) (Response, error) {
	if c == nil || c.httpClient == nil {
		return Response{}, fmt.Errorf("mothership client not initialised")
	}
	if trades == nil {
		trades = []tick.Trade{}
	}
	buf, err := json.Marshal(submitPayload{ID: tradeID, Trades: trades})
	if err != nil {
		return Response{}, fmt.Errorf("marshal trades: %w", err)
	}
	endpoint := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return Response{}, fmt.Errorf("build mothership request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	logger.Debugf("mothership: POST %s trade_id=%s trades=%d key=%s", endpoint, tradeID, len(trades), logger.Mask(c.apiKey))
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		// Headers arrived but the body broke off; still a transport failure.
		return Response{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	out := Response{Status: resp.StatusCode, Body: parseBody(resp.StatusCode, data)}
	logger.Infof("mothership: trade_id=%s status=%d elapsed=%s", tradeID, out.Status, time.Since(start).Round(time.Millisecond))
	return out, nil
}

func parseBody(status int, data []byte) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		return map[string]any{
			"error": fmt.Sprintf("Non-JSON response from mothership (status %d)", status),
		}
	}
	return body
}

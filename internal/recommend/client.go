package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tickagent/internal/config"
	"tickagent/internal/logger"
	"tickagent/internal/pkg/circuit"
	"tickagent/internal/tick"
)

const (
	FallbackRationale     = "Fallback: STAY on all positions because AI was unavailable."
	MissingRationale      = "No rationale provided."
	defaultRecommendLimit = 60 * time.Second
)

// Client turns a tick payload into trades. It never fails: every problem
// with the assistant resolves to the STAY fallback.
type Client struct {
	provider    Provider
	initErr     error
	prompts     PromptSet
	timeout     time.Duration
	temperature float64
	breaker     *circuit.Breaker
}

type Option func(*Client)

func WithPrompts(set PromptSet) Option {
	return func(c *Client) { c.prompts = set }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithBreaker skips the provider while b is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// NewClient wraps an already built provider. A nil provider is allowed and
// means every call falls back.
func NewClient(p Provider, opts ...Option) *Client {
	c := &Client{
		provider:    p,
		prompts:     DefaultPromptSet(),
		timeout:     defaultRecommendLimit,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig picks the provider named in cfg. Missing credentials and
// provider construction failures are remembered, not returned, so the
// service still starts and serves fallback trades.
func NewFromConfig(ctx context.Context, cfg config.AIConfig) *Client {
	opts := []Option{WithTimeout(cfg.Timeout()), WithTemperature(cfg.Temperature)}
	if cfg.BreakerThreshold > 0 {
		opts = append(opts, WithBreaker(circuit.New("assistant", cfg.BreakerThreshold, cfg.BreakerCooldown())))
	}
	set, err := LoadPromptSet(cfg.PromptPath)
	if err != nil {
		logger.Warnf("recommend: %v, using built-in prompts", err)
	}
	opts = append(opts, WithPrompts(set))

	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warnf("recommend: no %s api key configured, every tick will use the STAY fallback", cfg.ProviderName())
		c := NewClient(nil, opts...)
		c.initErr = ErrNoCredentials
		return c
	}
	var (
		p       Provider
		initErr error
	)
	switch cfg.ProviderName() {
	case "gemini":
		gc, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.APIURL, cfg.Timeout())
		if err != nil {
			initErr = err
		} else {
			p = gc
		}
	case "openai":
		p = NewOpenAIChatClient(cfg.APIURL, cfg.APIKey, cfg.Model, cfg.Timeout())
	default:
		initErr = fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	if initErr != nil {
		logger.Errorf("recommend: provider setup failed: %v", initErr)
	}
	c := NewClient(p, opts...)
	c.initErr = initErr
	return c
}

// ProviderID names the active provider, or "none".
func (c *Client) ProviderID() string {
	if c == nil || c.provider == nil {
		return "none"
	}
	return c.provider.ID()
}

func (c *Client) Recommend(ctx context.Context, payload tick.Payload) Recommendation {
	if c == nil {
		return Fallback(payload, "recommend client not configured")
	}
	if c.provider == nil {
		reason := ErrNoCredentials.Error()
		if c.initErr != nil {
			reason = c.initErr.Error()
		}
		return Fallback(payload, reason)
	}

	if !c.breaker.Allow() {
		return c.fallback(payload, ErrCircuitOpen)
	}

	prompt := c.prompts.build(payload, c.temperature)
	prompt.TradeID = tradeIDFrom(ctx)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	call, err := c.provider.ProposeTrades(callCtx, prompt)
	if err != nil && !errors.Is(err, ErrNoToolCall) {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
		}
		return c.fallback(payload, err)
	}
	logger.Debugf("recommend: %s answered in %s", c.provider.ID(), time.Since(start).Round(time.Millisecond))

	if call.Name != "" && call.Name != ToolName {
		return c.fallback(payload, fmt.Errorf("unexpected structured call %q", call.Name))
	}
	rec, err := parseArguments(call.Arguments)
	if err != nil {
		return c.fallback(payload, err)
	}
	return rec
}

func (c *Client) fallback(payload tick.Payload, err error) Recommendation {
	logger.Warnf("recommend: %s failed, using fallback: %v", c.ProviderID(), err)
	return Fallback(payload, err.Error())
}

func parseArguments(args string) (Recommendation, error) {
	doc, err := checkArguments(args)
	if err != nil {
		return Recommendation{}, err
	}
	trades := []tick.Trade{}
	if raw, ok := doc["trades"]; ok {
		b, err := json.Marshal(raw)
		if err != nil {
			return Recommendation{}, fmt.Errorf("re-encode trades: %w", err)
		}
		if err := json.Unmarshal(b, &trades); err != nil {
			return Recommendation{}, fmt.Errorf("decode trades: %w", err)
		}
	}
	rationale := MissingRationale
	if r, ok := doc["rationale"].(string); ok {
		rationale = r
	}
	return Recommendation{Trades: trades, Rationale: rationale, Source: SourceAssistant}, nil
}

// Fallback is one STAY of quantity 0 per payload position, in payload order.
func Fallback(payload tick.Payload, reason string) Recommendation {
	trades := make([]tick.Trade, 0, len(payload.Positions))
	for _, p := range payload.Positions {
		trades = append(trades, tick.Trade{Action: tick.ActionStay, Ticker: p.Ticker, Quantity: 0})
	}
	return Recommendation{
		Trades:    trades,
		Rationale: FallbackRationale,
		Source:    SourceFallback,
		Reason:    reason,
	}
}

package recommend

import (
	"context"
	"errors"

	"tickagent/internal/tick"
)

// Source records where a Recommendation came from.
type Source string

const (
	SourceAssistant Source = "assistant"
	SourceFallback  Source = "fallback"
)

// Recommendation is the outcome of one tick's recommendation step. Trades is
// never nil. Reason explains a fallback and is empty otherwise.
type Recommendation struct {
	Trades    []tick.Trade
	Rationale string
	Source    Source
	Reason    string
}

// Prompt is everything a provider needs for one structured call.
type Prompt struct {
	System          string
	User            string
	ToolName        string
	ToolDescription string
	Temperature     float64
	TradeID         string
}

// ToolCall is the first structured call the assistant returned. Arguments
// is the JSON-encoded argument object.
type ToolCall struct {
	Name      string
	Arguments string
}

// Provider performs exactly one assistant request per call.
type Provider interface {
	ID() string
	ProposeTrades(ctx context.Context, p Prompt) (ToolCall, error)
}

// Recommender is what the tick pipeline depends on.
type Recommender interface {
	Recommend(ctx context.Context, payload tick.Payload) Recommendation
}

var (
	ErrNoToolCall    = errors.New("assistant returned no structured call")
	ErrNoCredentials = errors.New("no assistant credential configured")
	ErrCircuitOpen   = errors.New("assistant circuit open after repeated failures")
)

type tradeIDKey struct{}

// WithTradeID tags ctx so provider traffic can be correlated in the LLM log.
func WithTradeID(ctx context.Context, tradeID string) context.Context {
	return context.WithValue(ctx, tradeIDKey{}, tradeID)
}

func tradeIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(tradeIDKey{}).(string)
	return id
}

package tick

import (
	"encoding/json"
	"fmt"
)

// Position is one holding. CurrentPrice is nil when the tick carried no
// Market_Summary price for the ticker; it is always emitted (as null) so the
// snapshot file keeps a stable shape.
type Position struct {
	Ticker        string   `json:"ticker"`
	Quantity      int      `json:"quantity"`
	PurchasePrice float64  `json:"purchase_price"`
	CurrentPrice  *float64 `json:"current_price"`
}

type MarketSummaryRow struct {
	Ticker       string  `json:"ticker"`
	CurrentPrice float64 `json:"current_price"`
	Category     string  `json:"category"`
}

// MarketHistoryRow is accepted and validated but never used for P&L or
// recommendations.
type MarketHistoryRow struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
	Day    string  `json:"day"`
}

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionStay Action = "STAY"
)

func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionStay:
		return true
	}
	return false
}

type Trade struct {
	Action   Action `json:"action"`
	Ticker   string `json:"ticker"`
	Quantity int    `json:"quantity"`
}

// Payload is the body of POST /tick/:trade_id once it passed Validate.
type Payload struct {
	Positions     []Position         `json:"Positions"`
	MarketSummary []MarketSummaryRow `json:"Market_Summary"`
	MarketHistory []MarketHistoryRow `json:"market_history"`
	News          string             `json:"News,omitempty"`
}

// HistoryEntry is one record of the trade history file.
type HistoryEntry struct {
	AIRecommendations []Trade `json:"ai_recommendations"`
	Rationale         string  `json:"rationale"`
}

type Summary struct {
	PositionsEvaluated int     `json:"positions_evaluated"`
	UnrealizedPnL      float64 `json:"unrealized_pnl"`
}

// Result is what a processed tick reports back to the caller.
type Result struct {
	Summary              Summary        `json:"summary"`
	Decisions            []Trade        `json:"decisions"`
	MothershipResponse   map[string]any `json:"mothership_response"`
	HTTPStatusMothership *int           `json:"http_status_mothership"`
}

// PriceMap indexes Market_Summary by ticker. Later rows win on duplicates.
func PriceMap(rows []MarketSummaryRow) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Ticker] = r.CurrentPrice
	}
	return out
}

// Decode parses a validated request body. Numeric fields that cannot be
// coerced surface as *FieldError.
func Decode(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("decode tick payload: %w", err)
	}
	return p, nil
}

package engine

import (
	"tickagent/internal/tick"

	"github.com/shopspring/decimal"
)

const pnlPlaces = 4

// ComputeSummary sums (current - purchase) * quantity over positions that
// have a price. Unpriced positions are skipped and not counted.
func ComputeSummary(positions []tick.Position, prices map[string]float64) tick.Summary {
	total := decimal.Zero
	evaluated := 0
	for _, pos := range positions {
		current, ok := prices[pos.Ticker]
		if !ok {
			continue
		}
		diff := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(pos.PurchasePrice))
		total = total.Add(diff.Mul(decimal.NewFromInt(int64(pos.Quantity))))
		evaluated++
	}
	pnl, _ := total.Round(pnlPlaces).Float64()
	return tick.Summary{PositionsEvaluated: evaluated, UnrealizedPnL: pnl}
}

// Enrich copies positions with this tick's price attached, or nil when the
// ticker has none.
func Enrich(positions []tick.Position, prices map[string]float64) []tick.Position {
	out := make([]tick.Position, 0, len(positions))
	for _, pos := range positions {
		row := tick.Position{
			Ticker:        pos.Ticker,
			Quantity:      pos.Quantity,
			PurchasePrice: pos.PurchasePrice,
		}
		if price, ok := prices[pos.Ticker]; ok {
			p := price
			row.CurrentPrice = &p
		}
		out = append(out, row)
	}
	return out
}

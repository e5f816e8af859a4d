package tick

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldError reports a payload value that passed presence validation but
// cannot be used as the number the pipeline needs.
type FieldError struct {
	Field string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: cannot convert %v (%T) to a number", e.Field, e.Value, e.Value)
}

func coerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func coerceFloat64(field string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, nil
		}
	}
	return 0, &FieldError{Field: field, Value: v}
}

// coerceInt truncates toward zero, so 15.0 and "15" both become 15.
func coerceInt(field string, v any) (int, error) {
	f, err := coerceFloat64(field, v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FieldError{Field: field, Value: v}
	}
	return int(f), nil
}

func decodeObject(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func requireField(raw map[string]any, field string) (any, error) {
	v, ok := raw[field]
	if !ok {
		return nil, &FieldError{Field: field, Value: nil}
	}
	return v, nil
}

func (p *Position) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	ticker, err := requireField(raw, "ticker")
	if err != nil {
		return err
	}
	qty, err := requireField(raw, "quantity")
	if err != nil {
		return err
	}
	purchase, err := requireField(raw, "purchase_price")
	if err != nil {
		return err
	}

	out := Position{Ticker: coerceString(ticker)}
	if out.Quantity, err = coerceInt("quantity", qty); err != nil {
		return err
	}
	if out.PurchasePrice, err = coerceFloat64("purchase_price", purchase); err != nil {
		return err
	}
	if cp, ok := raw["current_price"]; ok && cp != nil {
		price, err := coerceFloat64("current_price", cp)
		if err != nil {
			return err
		}
		out.CurrentPrice = &price
	}
	*p = out
	return nil
}

func (r *MarketSummaryRow) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	price, err := requireField(raw, "current_price")
	if err != nil {
		return err
	}
	out := MarketSummaryRow{
		Ticker:   coerceString(raw["ticker"]),
		Category: coerceString(raw["category"]),
	}
	if out.CurrentPrice, err = coerceFloat64("current_price", price); err != nil {
		return err
	}
	*r = out
	return nil
}

// UnmarshalJSON never fails on content: history rows are carried, not used.
func (r *MarketHistoryRow) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	price, _ := coerceFloat64("price", raw["price"])
	*r = MarketHistoryRow{
		Ticker: coerceString(raw["ticker"]),
		Price:  price,
		Day:    coerceString(raw["day"]),
	}
	return nil
}

// UnmarshalJSON goes through a key map first, so a repeated top-level key
// resolves to its last value the same way Validate sees it.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Payload
	lists := []struct {
		key  string
		dest any
	}{
		{"Positions", &out.Positions},
		{"Market_Summary", &out.MarketSummary},
		{"market_history", &out.MarketHistory},
	}
	for _, l := range lists {
		v, ok := raw[l.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, l.dest); err != nil {
			return fmt.Errorf("%s: %w", l.key, err)
		}
	}
	if v, ok := raw["News"]; ok {
		var news any
		if err := json.Unmarshal(v, &news); err != nil {
			return fmt.Errorf("News: %w", err)
		}
		out.News = coerceString(news)
	}
	*p = out
	return nil
}

// UnmarshalJSON accepts whole-number floats such as 5.0 for quantity.
func (t *Trade) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := Trade{
		Action: Action(coerceString(raw["action"])),
		Ticker: coerceString(raw["ticker"]),
	}
	if q, ok := raw["quantity"]; ok && q != nil {
		if out.Quantity, err = coerceInt("quantity", q); err != nil {
			return err
		}
	}
	*t = out
	return nil
}

package tick

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ValidationError carries the caller-facing message of a rejected payload.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type listRule struct {
	key    string
	fields []string
}

var listRules = []listRule{
	{key: "Positions", fields: []string{"ticker", "quantity", "purchase_price"}},
	{key: "Market_Summary", fields: []string{"ticker", "current_price", "category"}},
	{key: "market_history", fields: []string{"ticker", "price", "day"}},
}

// Validate checks presence and shape only; it stops at the first problem.
// Numeric ranges, duplicates and cross-list consistency are not checked.
func Validate(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return invalid("Payload must be a JSON object")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return invalid("Payload must be a JSON object")
	}
	for _, rule := range listRules {
		list := lastMember(root, rule.key)
		if !list.Exists() {
			return invalid("Missing required field: %s", rule.key)
		}
		if !list.IsArray() {
			return invalid("%s must be a list", rule.key)
		}
	}
	for _, rule := range listRules {
		if err := walkRows(rule, lastMember(root, rule.key)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateValue validates an already decoded document.
func ValidateValue(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return invalid("Payload must be a JSON object")
	}
	return Validate(raw)
}

func walkRows(rule listRule, list gjson.Result) error {
	idx := 0
	var rowErr error
	list.ForEach(func(_, row gjson.Result) bool {
		defer func() { idx++ }()
		if !row.IsObject() {
			rowErr = invalid("%s[%d] must be an object", rule.key, idx)
			return false
		}
		for _, field := range rule.fields {
			if !lastMember(row, field).Exists() {
				rowErr = invalid("%s[%d] missing '%s'", rule.key, idx, field)
				return false
			}
		}
		if rule.key == "market_history" && lastMember(row, "day").Type != gjson.String {
			rowErr = invalid("market_history.day must be a date string")
			return false
		}
		return true
	})
	return rowErr
}

// lastMember returns the value of key in obj. On duplicate keys the last one
// wins, matching encoding/json in Decode.
func lastMember(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
		}
		return true
	})
	return out
}

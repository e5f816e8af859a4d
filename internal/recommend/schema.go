package recommend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// toolParameters is the argument schema of propose_trades. The copy sent to
// the assistant requires both keys; the copy used to check replies does not,
// since a missing trades list reads as empty and a missing rationale is
// filled in.
func toolParameters(strict bool) map[string]any {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"trades": map[string]any{
				"type":        "array",
				"description": "List of trades to execute.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"action": map[string]any{
							"type":        "string",
							"enum":        []any{"BUY", "SELL", "STAY"},
							"description": "Type of trade",
						},
						"ticker": map[string]any{
							"type":        "string",
							"description": "Ticker symbol",
						},
						"quantity": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"description": "Number of shares, 0 is allowed for STAY",
						},
					},
					"required": []any{"action", "ticker", "quantity"},
				},
			},
			"rationale": map[string]any{
				"type":        "string",
				"description": "Short explanation of the strategy.",
			},
		},
	}
	if strict {
		params["required"] = []any{"trades", "rationale"}
	}
	return params
}

var (
	argsSchemaOnce sync.Once
	argsSchema     *jsonschema.Schema
	argsSchemaErr  error
)

func compiledArgsSchema() (*jsonschema.Schema, error) {
	argsSchemaOnce.Do(func() {
		raw, err := json.Marshal(toolParameters(false))
		if err != nil {
			argsSchemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("propose_trades.json", strings.NewReader(string(raw))); err != nil {
			argsSchemaErr = err
			return
		}
		argsSchema, argsSchemaErr = compiler.Compile("propose_trades.json")
	})
	return argsSchema, argsSchemaErr
}

// checkArguments runs the shape checks that decide between the assistant's
// answer and the fallback, returning the decoded document on success.
func checkArguments(args string) (map[string]any, error) {
	args = strings.TrimSpace(args)
	if !gjson.Valid(args) {
		return nil, fmt.Errorf("arguments are not valid JSON")
	}
	parsed := gjson.Parse(args)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("arguments are not a JSON object")
	}
	if trades := parsed.Get("trades"); trades.Exists() && !trades.IsArray() {
		return nil, fmt.Errorf("trades is not a list")
	}
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(args)))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	schema, err := compiledArgsSchema()
	if err != nil {
		return nil, fmt.Errorf("compile propose_trades schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("arguments violate propose_trades schema: %w", err)
	}
	return doc, nil
}

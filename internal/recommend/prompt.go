package recommend

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tickagent/internal/tick"

	"gopkg.in/yaml.v3"
)

const ToolName = "propose_trades"

const defaultSystemPrompt = `You are an AI trading assistant. You receive:
- The current portfolio positions
- Market prices and signals
- News or sentiment

Your job is to propose a *small number* of simple trades:
- BUY, SELL, or STAY
- A reasonable integer quantity
- Never trade symbols that are not in the incoming data.

Always return trades via the ` + "`propose_trades`" + ` tool only.
Keep the strategy conservative and explain your reasoning.`

const defaultToolDescription = "Propose trades for the next tick."

// PromptSet is the overridable text of the recommendation request.
type PromptSet struct {
	System          string `yaml:"system_prompt"`
	ToolDescription string `yaml:"tool_description"`
}

func DefaultPromptSet() PromptSet {
	return PromptSet{System: defaultSystemPrompt, ToolDescription: defaultToolDescription}
}

// LoadPromptSet reads overrides from a YAML file. Empty path or empty fields
// keep the built-in text; unknown keys are rejected.
func LoadPromptSet(path string) (PromptSet, error) {
	set := DefaultPromptSet()
	if strings.TrimSpace(path) == "" {
		return set, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read prompt file failed: %w", err)
	}
	var override PromptSet
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&override); err != nil && !errors.Is(err, io.EOF) {
		return set, fmt.Errorf("parse prompt file failed: %w", err)
	}
	if s := strings.TrimSpace(override.System); s != "" {
		set.System = s
	}
	if s := strings.TrimSpace(override.ToolDescription); s != "" {
		set.ToolDescription = s
	}
	return set, nil
}

// BuildUserMessage renders the tick as plain text: holdings, prices from
// Market_Summary and the news line when present. market_history is left out.
func BuildUserMessage(p tick.Payload) string {
	lines := []string{
		"Here is the current tick data.",
		"",
		"Positions:",
	}
	for _, pos := range p.Positions {
		lines = append(lines, fmt.Sprintf("- %s: %d shares", pos.Ticker, pos.Quantity))
	}
	lines = append(lines, "", "Prices:")
	for _, row := range p.MarketSummary {
		lines = append(lines, fmt.Sprintf("- %s: %s", row.Ticker, strconv.FormatFloat(row.CurrentPrice, 'f', -1, 64)))
	}
	if news := strings.TrimSpace(p.News); news != "" {
		lines = append(lines, "", "News / Sentiment:", news)
	}
	lines = append(lines, "", "Please propose a small set of trades using the tool.")
	return strings.Join(lines, "\n")
}

func (s PromptSet) build(p tick.Payload, temperature float64) Prompt {
	return Prompt{
		System:          s.System,
		User:            BuildUserMessage(p),
		ToolName:        ToolName,
		ToolDescription: s.ToolDescription,
		Temperature:     temperature,
	}
}

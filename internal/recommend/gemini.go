package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tickagent/internal/logger"

	"google.golang.org/genai"
)

// GeminiClient asks a Gemini model for the propose_trades function call.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient builds the SDK client. baseURL is only set in tests.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, timeout time.Duration) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoCredentials
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("initialise gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiClient) ID() string { return "gemini:" + g.model }

func proposeTradesDeclaration(description string) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ToolName,
		Description: description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"trades": {
					Type:        genai.TypeArray,
					Description: "List of trades to execute.",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"action": {
								Type:        genai.TypeString,
								Enum:        []string{"BUY", "SELL", "STAY"},
								Description: "Type of trade",
							},
							"ticker": {
								Type:        genai.TypeString,
								Description: "Ticker symbol",
							},
							"quantity": {
								Type:        genai.TypeInteger,
								Description: "Number of shares, 0 is allowed for STAY",
							},
						},
						Required: []string{"action", "ticker", "quantity"},
					},
				},
				"rationale": {
					Type:        genai.TypeString,
					Description: "Short explanation of the strategy.",
				},
			},
			Required: []string{"trades", "rationale"},
		},
	}
}

func (g *GeminiClient) ProposeTrades(ctx context.Context, p Prompt) (ToolCall, error) {
	if g == nil || g.client == nil {
		return ToolCall{}, fmt.Errorf("gemini client not initialised")
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	temp := float32(p.Temperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: p.System}}},
		Tools: []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{proposeTradesDeclaration(p.ToolDescription)}},
		},
		Temperature: &temp,
	}
	logger.LogLLMRequest(g.ID(), p.TradeID, p.System, p.User, "")

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), cfg)
	if err != nil {
		return ToolCall{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if raw, err := json.Marshal(resp); err == nil {
		logger.LogLLMResponse(g.ID(), p.TradeID, string(raw))
	}
	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return ToolCall{}, ErrNoToolCall
	}
	args, err := json.Marshal(calls[0].Args)
	if err != nil {
		return ToolCall{}, fmt.Errorf("re-encode gemini function args: %w", err)
	}
	return ToolCall{Name: calls[0].Name, Arguments: string(args)}, nil
}

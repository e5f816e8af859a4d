package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tickagent/internal/logger"
)

// OpenAIChatClient talks to any OpenAI-compatible /chat/completions endpoint
// and asks for the propose_trades function. It never retries.
type OpenAIChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	httpClient *http.Client
}

func NewOpenAIChatClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIChatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIChatClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		Timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OpenAIChatClient) ID() string { return "openai:" + c.Model }

func (c *OpenAIChatClient) endpoint() string {
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	// Tolerate a configured URL that already names the route.
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools"`
	ToolChoice  string        `json:"tool_choice"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIChatClient) ProposeTrades(ctx context.Context, p Prompt) (ToolCall, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return ToolCall{}, ErrNoCredentials
	}
	body := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Tools: []chatTool{{
			Type: "function",
			Function: chatFunction{
				Name:        p.ToolName,
				Description: p.ToolDescription,
				Parameters:  toolParameters(true),
			},
		}},
		ToolChoice:  "auto",
		Temperature: p.Temperature,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return ToolCall{}, fmt.Errorf("marshal chat request: %w", err)
	}
	url := c.endpoint()

	hlog := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + logger.Mask(c.APIKey),
	}
	logger.Debugf("[AI] request: POST %s, headers=%v", url, hlog)
	logger.LogLLMRequest(c.ID(), p.TradeID, p.System, p.User, string(b))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return ToolCall{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpc := c.httpClient
	if httpc == nil {
		httpc = &http.Client{Timeout: c.Timeout}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return ToolCall{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ToolCall{}, fmt.Errorf("read chat response: %w", err)
	}
	logger.LogLLMResponse(c.ID(), p.TradeID, string(raw))

	if resp.StatusCode/100 != 2 {
		var eresp chatError
		_ = json.Unmarshal(raw, &eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return ToolCall{}, fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	}
	var r chatResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return ToolCall{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(r.Choices) == 0 {
		return ToolCall{}, fmt.Errorf("empty choices")
	}
	calls := r.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return ToolCall{}, ErrNoToolCall
	}
	return ToolCall{Name: calls[0].Function.Name, Arguments: calls[0].Function.Arguments}, nil
}

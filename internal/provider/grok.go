package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultGrokBaseURL is the xAI API endpoint.
const defaultGrokBaseURL = "https://api.x.ai/v1"

// DefaultGrokModel is used when a request does not name a model.
const DefaultGrokModel = "grok-2-latest"

// GrokClient calls the xAI chat completions API. The provider is an opaque
// remote service; this client only shuttles JSON.
type GrokClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewGrokClient constructs a GrokClient. baseURL falls back to the public
// endpoint when empty.
func NewGrokClient(apiKey, baseURL string) *GrokClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGrokBaseURL
	}
	return &GrokClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

type grokMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type grokRequest struct {
	Model     string        `json:"model"`
	Messages  []grokMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type grokResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete runs one chat completion. Cancellation and deadlines come from
// the caller's context.
func (c *GrokClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if c == nil || c.apiKey == "" {
		return Completion{}, ErrConfiguration
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultGrokModel
	}

	messages := make([]grokMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, grokMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, grokMessage{Role: "user", Content: req.Prompt})

	payload, errMarshal := json.Marshal(grokRequest{Model: model, Messages: messages, MaxTokens: req.MaxTokens})
	if errMarshal != nil {
		return Completion{}, fmt.Errorf("grok: encode request: %w", errMarshal)
	}

	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if errReq != nil {
		return Completion{}, fmt.Errorf("grok: build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, errDo := c.http.Do(httpReq)
	if errDo != nil {
		return Completion{}, fmt.Errorf("grok: request failed: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return Completion{}, fmt.Errorf("grok: read response: %w", errRead)
	}

	var parsed grokResponse
	if errUnmarshal := json.Unmarshal(body, &parsed); errUnmarshal != nil {
		return Completion{}, fmt.Errorf("grok: decode response (%d): %w", resp.StatusCode, errUnmarshal)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return Completion{}, fmt.Errorf("grok: %s (%d)", parsed.Error.Message, resp.StatusCode)
		}
		return Completion{}, fmt.Errorf("grok: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, fmt.Errorf("grok: empty response")
	}

	return Completion{
		Text:  parsed.Choices[0].Message.Content,
		Model: model,
		Usage: TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

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

// defaultGeminiBaseURL is the Google Generative Language API endpoint.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Default Gemini model names.
const (
	DefaultGeminiImageModel = "gemini-2.0-flash-image"
	DefaultGeminiVideoModel = "veo-3.0-fast"
)

// defaultVideoDurationSeconds is requested when a caller gives no duration.
const defaultVideoDurationSeconds = 5.0

// GeminiClient calls the Google Generative Language API for image and
// video generation. Opaque boundary; payloads pass through untouched.
type GeminiClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewGeminiClient constructs a GeminiClient. baseURL falls back to the
// public endpoint when empty.
func NewGeminiClient(apiKey, baseURL string) *GeminiClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiGenerateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImage produces one image for the prompt.
func (c *GeminiClient) GenerateImage(ctx context.Context, model, prompt string) (ImageResult, error) {
	if c == nil || c.apiKey == "" {
		return ImageResult{}, ErrConfiguration
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiImageModel
	}

	var req geminiGenerateRequest
	req.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	req.Contents[0].Parts = make([]struct {
		Text string `json:"text"`
	}, 1)
	req.Contents[0].Parts[0].Text = prompt

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	body, errDo := c.post(ctx, url, req)
	if errDo != nil {
		return ImageResult{}, errDo
	}

	var parsed geminiGenerateResponse
	if errUnmarshal := json.Unmarshal(body, &parsed); errUnmarshal != nil {
		return ImageResult{}, fmt.Errorf("gemini: decode response: %w", errUnmarshal)
	}
	if parsed.Error != nil {
		return ImageResult{}, fmt.Errorf("gemini: %s", parsed.Error.Message)
	}
	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return ImageResult{
					Model:    model,
					MimeType: part.InlineData.MimeType,
					Data:     part.InlineData.Data,
				}, nil
			}
		}
	}
	return ImageResult{}, fmt.Errorf("gemini: response carried no image data")
}

type geminiVideoRequest struct {
	Instances []struct {
		Prompt string `json:"prompt"`
	} `json:"instances"`
	Parameters struct {
		DurationSeconds float64 `json:"durationSeconds,omitempty"`
	} `json:"parameters"`
}

type geminiVideoResponse struct {
	Name  string `json:"name"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateVideo starts a provider-side video generation job and returns the
// operation reference; the front-end polls the provider directly.
func (c *GeminiClient) GenerateVideo(ctx context.Context, model, prompt string, durationSeconds float64) (VideoResult, error) {
	if c == nil || c.apiKey == "" {
		return VideoResult{}, ErrConfiguration
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiVideoModel
	}
	if durationSeconds <= 0 {
		durationSeconds = defaultVideoDurationSeconds
	}

	var req geminiVideoRequest
	req.Instances = make([]struct {
		Prompt string `json:"prompt"`
	}, 1)
	req.Instances[0].Prompt = prompt
	req.Parameters.DurationSeconds = durationSeconds

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, model)
	body, errDo := c.post(ctx, url, req)
	if errDo != nil {
		return VideoResult{}, errDo
	}

	var parsed geminiVideoResponse
	if errUnmarshal := json.Unmarshal(body, &parsed); errUnmarshal != nil {
		return VideoResult{}, fmt.Errorf("gemini: decode response: %w", errUnmarshal)
	}
	if parsed.Error != nil {
		return VideoResult{}, fmt.Errorf("gemini: %s", parsed.Error.Message)
	}
	if parsed.Name == "" {
		return VideoResult{}, fmt.Errorf("gemini: response carried no operation name")
	}
	return VideoResult{Model: model, OperationID: parsed.Name, DurationSeconds: durationSeconds}, nil
}

func (c *GeminiClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	encoded, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", errMarshal)
	}
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if errReq != nil {
		return nil, fmt.Errorf("gemini: build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, errDo := c.http.Do(httpReq)
	if errDo != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, fmt.Errorf("gemini: read response: %w", errRead)
	}
	// Non-200 bodies carry an error object the callers surface.
	return body, nil
}

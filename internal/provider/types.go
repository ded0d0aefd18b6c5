package provider

import "errors"

// ErrConfiguration indicates a provider API key is not configured.
var ErrConfiguration = errors.New("provider: api key not configured")

// TokenUsage reports the token counts of a completion call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the result of a text generation call.
type Completion struct {
	Text  string
	Model string
	Usage TokenUsage
}

// CompletionRequest describes a text generation call.
type CompletionRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

// ImageResult is the result of an image generation call.
type ImageResult struct {
	Model    string
	MimeType string
	// Data is the base64-encoded image payload, passed through opaquely.
	Data string
}

// VideoResult is the result of a video generation call.
type VideoResult struct {
	Model string
	// OperationID references the provider-side long-running job.
	OperationID string
	// DurationSeconds is the requested output duration.
	DurationSeconds float64
}

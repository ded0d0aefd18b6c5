package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGrokCompleteMissingKey(t *testing.T) {
	client := NewGrokClient("", "")
	if _, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestGrokCompleteParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected authorization %q", got)
		}
		var req grokRequest
		if errDecode := json.NewDecoder(r.Body).Decode(&req); errDecode != nil {
			t.Fatalf("decode request: %v", errDecode)
		}
		if req.Model != "grok-2-latest" {
			t.Fatalf("expected default model, got %q", req.Model)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "a catchy hook"}}},
			"usage":   map[string]int{"prompt_tokens": 42, "completion_tokens": 17},
		})
	}))
	defer server.Close()

	client := NewGrokClient("test-key", server.URL)
	completion, err := client.Complete(context.Background(), CompletionRequest{Prompt: "write a hook"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if completion.Text != "a catchy hook" {
		t.Fatalf("unexpected text %q", completion.Text)
	}
	if completion.Usage.InputTokens != 42 || completion.Usage.OutputTokens != 17 {
		t.Fatalf("unexpected usage %+v", completion.Usage)
	}
}

func TestGrokCompleteSurfacesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "rate limited"}})
	}))
	defer server.Close()

	client := NewGrokClient("test-key", server.URL)
	if _, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"}); err == nil {
		t.Fatal("expected provider error surfaced")
	}
}

func TestGeminiGenerateImageMissingKey(t *testing.T) {
	client := NewGeminiClient("", "")
	if _, err := client.GenerateImage(context.Background(), "", "a product shot"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestGeminiGenerateImageParsesInlineData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Fatalf("unexpected api key header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]string{"mimeType": "image/png", "data": "aW1hZ2U="},
					}},
				},
			}},
		})
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", server.URL)
	result, err := client.GenerateImage(context.Background(), "", "a product shot")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.MimeType != "image/png" || result.Data != "aW1hZ2U=" {
		t.Fatalf("unexpected result %+v", result)
	}
}

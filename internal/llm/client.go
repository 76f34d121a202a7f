// Package llm provides a minimal client for OpenAI-compatible chat
// completions APIs. The critic and prompt refiner agents use it for text
// and vision requests; image generation has its own client in internal/gen.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrRateLimited indicates the API returned HTTP 429. Callers may retry
// after the delay reported by [RetryDelay].
var ErrRateLimited = errors.New("llm: rate limited")

// ErrNoChoices indicates the API returned a well-formed response with an
// empty choices array.
var ErrNoChoices = errors.New("llm: no choices in response")

// HTTPError is a non-2xx API response.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm: http %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// Is reports rate-limit errors as [ErrRateLimited].
func (e *HTTPError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// RetryDelay returns the server-suggested backoff for a rate-limited
// request, or zero when err carries no such hint.
func RetryDelay(err error) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.RetryAfter
	}
	return 0
}

// Part is one element of a multimodal message.
type Part struct {
	Text     string
	ImageURL string
}

// Message is a single chat turn. Plain-text messages set Text; vision
// messages use Parts instead.
type Message struct {
	Role  string
	Text  string
	Parts []Part
}

// ChatRequest describes one completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSONMode asks the API for a JSON object response.
	JSONMode bool
}

// Usage reports token consumption for a completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the assistant turn returned by [Client.Complete].
type ChatResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a chat completions client. A nil logger discards logs.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
}

// Available reports whether the client is configured with credentials.
// Agents fall back to rule-based behavior when it returns false.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Complete sends a chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := map[string]any{
		"model":    req.Model,
		"messages": convertMessages(req.Messages),
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.JSONMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("llm request", "model", req.Model, "endpoint", endpoint, "messages", len(req.Messages))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			httpErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		c.logger.Warn("llm error response", "status", resp.StatusCode, "model", req.Model)
		return nil, httpErr
	}

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	c.logger.Debug("llm response",
		"model", req.Model,
		"finish_reason", oaiResp.Choices[0].FinishReason,
		"total_tokens", oaiResp.Usage.TotalTokens)

	return &ChatResponse{
		Content:      oaiResp.Choices[0].Message.Content,
		FinishReason: oaiResp.Choices[0].FinishReason,
		Usage:        oaiResp.Usage,
	}, nil
}

func convertMessages(msgs []Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		entry := map[string]any{"role": m.Role}
		if len(m.Parts) == 0 {
			entry["content"] = m.Text
		} else {
			parts := make([]map[string]any, 0, len(m.Parts))
			for _, p := range m.Parts {
				if p.ImageURL != "" {
					parts = append(parts, map[string]any{
						"type":      "image_url",
						"image_url": map[string]any{"url": p.ImageURL},
					})
				} else if p.Text != "" {
					parts = append(parts, map[string]any{"type": "text", "text": p.Text})
				}
			}
			entry["content"] = parts
		}
		out = append(out, entry)
	}
	return out
}

// EncodeImageFile reads an image from disk and returns it as a base64 data
// URI suitable for a vision message part.
func EncodeImageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".webp":
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

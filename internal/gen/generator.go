// Package gen produces the raw images of a pack and turns selected variants
// into final deliverables. Generation goes through the Gemini REST API with
// a model fallback chain; a placeholder generator covers offline runs.
package gen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrAllModelsFailed indicates every model in the fallback chain failed.
var ErrAllModelsFailed = errors.New("gen: all image models failed")

// ErrNoImageInResponse indicates the API answered without inline image data.
var ErrNoImageInResponse = errors.New("gen: no image found in API response")

// Request describes one image to generate.
type Request struct {
	Prompt string
	Width  int
	Height int
	Seed   int64
}

// ImageGenerator produces a single image for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, req Request) (image.Image, error)
}

// Client generates images through the Gemini generateContent REST API,
// walking a model chain from highest quality to cheapest. A rate-limited
// model sleeps for the server-suggested delay, then the chain moves on.
type Client struct {
	baseURL string
	apiKey  string
	models  []string
	http    *http.Client
	logger  *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewClient creates a generation client with the given model chain.
func NewClient(baseURL, apiKey string, models []string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		models:  models,
		http:    &http.Client{Timeout: 300 * time.Second},
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Available reports whether the client is configured with credentials.
func (c *Client) Available() bool {
	return c.apiKey != "" && len(c.models) > 0
}

// Generate tries each model in the chain until one returns an image. The
// result is resized to the requested dimensions when the model disagrees.
func (c *Client) Generate(ctx context.Context, req Request) (image.Image, error) {
	requestID := uuid.NewString()
	var lastErr error

	for _, model := range c.models {
		c.logger.Info("calling image model", "model", model, "request_id", requestID)

		img, err := c.generateOnce(ctx, model, req)
		if err == nil {
			if b := img.Bounds(); b.Dx() != req.Width || b.Dy() != req.Height {
				img = imaging.Resize(img, req.Width, req.Height, imaging.Lanczos)
			}
			return img, nil
		}

		lastErr = err
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusTooManyRequests {
			c.logger.Warn("quota hit, falling back to next model",
				"model", model, "retry_delay", apiErr.retryDelay, "request_id", requestID)
			if apiErr.retryDelay > 0 {
				c.sleep(ctx, apiErr.retryDelay)
			}
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("image model failed", "model", model, "error", err, "request_id", requestID)
	}
	return nil, fmt.Errorf("%w: last error: %v", ErrAllModelsFailed, lastErr)
}

type apiError struct {
	status     int
	body       string
	retryDelay time.Duration
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gen: http %d: %s", e.status, e.body)
}

func (c *Client) generateOnce(ctx context.Context, model string, req Request) (image.Image, error) {
	genConfig := map[string]any{
		"responseModalities": []string{"IMAGE"},
	}
	if req.Seed != 0 {
		genConfig["seed"] = req.Seed
	}
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": req.Prompt}}},
		},
		"generationConfig": genConfig,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{
			status:     resp.StatusCode,
			body:       string(respBody[:min(len(respBody), 300)]),
			retryDelay: parseRetryInfo(respBody),
		}
	}

	return extractImage(respBody)
}

// extractImage pulls the first decodable inline image out of a
// generateContent response.
func extractImage(body []byte) (image.Image, error) {
	var resp struct {
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
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				continue
			}
			img, _, err := image.Decode(bytes.NewReader(raw))
			if err != nil {
				continue
			}
			return img, nil
		}
	}
	return nil, ErrNoImageInResponse
}

// parseRetryInfo extracts the RetryInfo delay from a Gemini error payload.
func parseRetryInfo(body []byte) time.Duration {
	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return 0
	}
	for _, d := range errResp.Error.Details {
		if !strings.HasSuffix(d.Type, "RetryInfo") {
			continue
		}
		if secs, err := strconv.ParseFloat(strings.TrimSuffix(d.RetryDelay, "s"), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// PlaceholderGenerator returns flat dark-blue placeholder images without any
// API calls. Dry-run workflows use it so downstream stages still have real
// files to work with.
type PlaceholderGenerator struct{}

func (PlaceholderGenerator) Generate(_ context.Context, req Request) (image.Image, error) {
	return imaging.New(req.Width, req.Height, color.NRGBA{R: 64, G: 64, B: 96, A: 255}), nil
}

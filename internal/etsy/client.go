// Package etsy publishes finished packs to the Etsy v3 marketplace API.
//
// The package covers the full publishing flow: rendering listing photos
// from the finished overlays, zipping delivery archives per screen type,
// generating listing metadata, and driving the linear upload sequence
// (draft listing, photos, digital files, tags, publish). [Pipeline] ties
// the stages together behind the workflow's finishing hook.
package etsy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"packforge/internal/config"
)

// DefaultBaseURL is the production Etsy v3 API base.
const DefaultBaseURL = "https://openapi.etsy.com/v3"

// DigitalTaxonomyID is the Etsy taxonomy category for digital downloads.
const DigitalTaxonomyID = 1656

const (
	// minRequestInterval spaces requests to stay under the 10 req/s
	// per-shop rate limit.
	minRequestInterval = 110 * time.Millisecond

	// maxUploadMB is Etsy's per-file limit for digital uploads.
	maxUploadMB = 250

	maxTitleLen = 140
	maxTags     = 13
	maxTagLen   = 20
)

// Sentinel errors for marketplace API failures.
var (
	// ErrRateLimited indicates the API returned 429.
	ErrRateLimited = errors.New("etsy: rate limited")

	// ErrUnauthorized indicates the access token was rejected.
	ErrUnauthorized = errors.New("etsy: authentication failed")

	// ErrNotConfigured indicates required credentials are missing.
	ErrNotConfigured = errors.New("etsy: credentials not configured")

	// ErrFileTooLarge indicates a digital file exceeds the upload limit.
	ErrFileTooLarge = errors.New("etsy: file exceeds upload limit")
)

// APIError is a non-2xx response from the Etsy API.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("etsy: API request failed (status %d): %s", e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels so callers can branch
// with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Listing is the subset of Etsy's listing resource the uploader needs.
type Listing struct {
	ListingID int64  `json:"listing_id"`
	Title     string `json:"title"`
	State     string `json:"state"`
}

// DraftListing holds the fields for creating a new draft listing.
type DraftListing struct {
	Title       string
	Description string
	Price       float64
	Quantity    int
	TaxonomyID  int
}

// Client talks to the Etsy v3 API. It enforces a minimum interval between
// requests and retries once on 429 after the server-suggested delay.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	shopID      int64

	http   *http.Client
	logger *slog.Logger

	mu   sync.Mutex
	last time.Time

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a marketplace client from credentials. An empty baseURL
// selects [DefaultBaseURL].
func NewClient(baseURL string, cfg config.EtsyConfig, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		shopID:      cfg.ShopID,
		http:        &http.Client{Timeout: 120 * time.Second},
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Available reports whether all required credentials are set.
func (c *Client) Available() bool {
	return c.apiKey != "" && c.accessToken != "" && c.shopID != 0
}

// CreateDraftListing creates a draft digital-download listing and returns it.
func (c *Client) CreateDraftListing(ctx context.Context, d DraftListing) (*Listing, error) {
	if d.Quantity <= 0 {
		d.Quantity = 999
	}
	if d.TaxonomyID <= 0 {
		d.TaxonomyID = DigitalTaxonomyID
	}

	body := map[string]any{
		"title":       truncate(d.Title, maxTitleLen),
		"description": d.Description,
		"price":       d.Price,
		"quantity":    d.Quantity,
		"state":       "draft",
		"taxonomy_id": d.TaxonomyID,
		"who_made":    "i_did",
		"when_made":   "made_to_order",
		"is_supply":   false,
		"type":        "download",
	}

	var listing Listing
	path := fmt.Sprintf("/application/shops/%d/listings", c.shopID)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &listing); err != nil {
		return nil, err
	}

	c.logger.Info("created draft listing", "listing_id", listing.ListingID)
	return &listing, nil
}

// UploadListingImage uploads one listing photo. Rank 1 is the main image.
func (c *Client) UploadListingImage(ctx context.Context, listingID int64, imagePath string, rank int) error {
	path := fmt.Sprintf("/application/shops/%d/listings/%d/images", c.shopID, listingID)
	fields := map[string]string{"rank": strconv.Itoa(rank)}

	if err := c.doMultipart(ctx, path, "image", imagePath, fields, nil); err != nil {
		return err
	}
	c.logger.Debug("uploaded listing image", "file", filepath.Base(imagePath), "rank", rank)
	return nil
}

// UploadDigitalFile uploads one downloadable file to a listing.
func (c *Client) UploadDigitalFile(ctx context.Context, listingID int64, filePath, name string, rank int) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("etsy: digital file not found: %w", err)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > maxUploadMB {
		return fmt.Errorf("%w: %s is %.1fMB (max %dMB)",
			ErrFileTooLarge, filepath.Base(filePath), sizeMB, maxUploadMB)
	}

	if name == "" {
		name = filepath.Base(filePath)
	}
	path := fmt.Sprintf("/application/shops/%d/listings/%d/files", c.shopID, listingID)
	fields := map[string]string{"name": name, "rank": strconv.Itoa(rank)}

	if err := c.doMultipart(ctx, path, "file", filePath, fields, nil); err != nil {
		return err
	}
	c.logger.Debug("uploaded digital file", "file", filepath.Base(filePath), "size_mb", fmt.Sprintf("%.1f", sizeMB))
	return nil
}

// UpdateListing patches listing fields and returns the updated listing.
func (c *Client) UpdateListing(ctx context.Context, listingID int64, fields map[string]any) (*Listing, error) {
	var listing Listing
	path := fmt.Sprintf("/application/shops/%d/listings/%d", c.shopID, listingID)
	if err := c.doJSON(ctx, http.MethodPut, path, fields, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// AddTags sets the listing tags, clamped to Etsy's 13-tag and 20-character
// limits.
func (c *Client) AddTags(ctx context.Context, listingID int64, tags []string) error {
	if len(tags) > maxTags {
		c.logger.Warn("too many tags, truncating", "count", len(tags), "max", maxTags)
		tags = tags[:maxTags]
	}
	clamped := make([]string, len(tags))
	for i, tag := range tags {
		clamped[i] = truncate(tag, maxTagLen)
	}

	_, err := c.UpdateListing(ctx, listingID, map[string]any{"tags": clamped})
	return err
}

// Publish flips a draft listing to active.
func (c *Client) Publish(ctx context.Context, listingID int64) (*Listing, error) {
	listing, err := c.UpdateListing(ctx, listingID, map[string]any{"state": "active"})
	if err != nil {
		return nil, err
	}
	c.logger.Info("published listing", "listing_id", listingID, "state", listing.State)
	return listing, nil
}

// ListingURL returns the public storefront URL for a listing.
func (c *Client) ListingURL(listingID int64, slug string) string {
	if slug != "" {
		return fmt.Sprintf("https://www.etsy.com/listing/%d/%s", listingID, slug)
	}
	return fmt.Sprintf("https://www.etsy.com/listing/%d", listingID)
}

// doJSON sends a JSON request and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("etsy: marshal request: %w", err)
	}

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	return c.send(ctx, build, out)
}

// doMultipart uploads a file under fieldName together with plain form fields.
func (c *Client) doMultipart(ctx context.Context, path, fieldName, filePath string, fields map[string]string, out any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("etsy: read upload file: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(fieldName, filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("etsy: build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("etsy: build multipart body: %w", err)
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return fmt.Errorf("etsy: build multipart body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("etsy: build multipart body: %w", err)
	}

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}
	return c.send(ctx, build, out)
}

// send issues the request with rate limiting and a single retry after the
// suggested delay when the API answers 429.
func (c *Client) send(ctx context.Context, build func() (*http.Request, error), out any) error {
	for attempt := 0; ; attempt++ {
		if err := c.waitInterval(ctx); err != nil {
			return err
		}

		req, err := build()
		if err != nil {
			return fmt.Errorf("etsy: build request: %w", err)
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.accessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("etsy: request failed: %w", err)
		}

		apiErr := c.checkStatus(resp)
		if apiErr == nil {
			defer resp.Body.Close()
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("etsy: decode response: %w", err)
			}
			return nil
		}
		resp.Body.Close()

		if attempt == 0 && errors.Is(apiErr, ErrRateLimited) && apiErr.RetryAfter > 0 {
			c.logger.Warn("rate limited, retrying", "retry_after", apiErr.RetryAfter)
			if err := c.sleep(ctx, apiErr.RetryAfter); err != nil {
				return err
			}
			continue
		}
		return apiErr
	}
}

// waitInterval blocks until the minimum spacing since the previous request
// has elapsed.
func (c *Client) waitInterval(ctx context.Context) error {
	c.mu.Lock()
	wait := minRequestInterval - time.Since(c.last)
	c.last = time.Now()
	c.mu.Unlock()

	if wait > 0 {
		return c.sleep(ctx, wait)
	}
	return nil
}

// checkStatus converts a non-2xx response into an [APIError], nil otherwise.
func (c *Client) checkStatus(resp *http.Response) *APIError {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = 60 * time.Second
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
		apiErr.Message = fmt.Sprintf("rate limit exceeded, retry after %s", apiErr.RetryAfter)
		return apiErr
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		apiErr.Message = parsed.Error
	} else {
		apiErr.Message = string(body)
	}
	return apiErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

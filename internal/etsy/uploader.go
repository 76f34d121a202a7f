package etsy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"packforge/internal/output"
	"packforge/internal/packfs"
)

// UploadResult summarizes one completed listing upload.
type UploadResult struct {
	ListingID      int64
	ListingURL     string
	State          string
	PhotosUploaded int
	FilesUploaded  int
}

// Uploader drives the linear upload sequence for one pack: draft listing,
// listing photos, digital files, tags, publish. Individual photo and file
// failures are reported and skipped; a failed publish leaves the listing
// in draft state rather than failing the run.
type Uploader struct {
	client  *Client
	printer *output.Printer
	logger  *slog.Logger
}

// NewUploader wires an uploader to a marketplace client.
func NewUploader(client *Client, printer *output.Printer, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uploader{client: client, printer: printer, logger: logger}
}

// Upload publishes one pack as a marketplace listing from its rendered
// listing photos and delivery archives.
func (u *Uploader) Upload(ctx context.Context, packName, packDir string, meta Metadata) (*UploadResult, error) {
	if !u.client.Available() {
		return nil, ErrNotConfigured
	}

	listingDir := filepath.Join(packDir, packfs.ListingDir)
	deliveryDir := filepath.Join(packDir, packfs.DeliveryDir)

	photos, _ := filepath.Glob(filepath.Join(listingDir, "*.jpg"))
	sort.Strings(photos)
	archives, _ := filepath.Glob(filepath.Join(deliveryDir, "*.zip"))
	sort.Strings(archives)

	if len(archives) == 0 {
		return nil, fmt.Errorf("no delivery archives found in %s", deliveryDir)
	}

	u.printer.Stage("etsy", fmt.Sprintf("creating draft listing %q ($%.2f)", meta.Title, meta.Price))
	listing, err := u.client.CreateDraftListing(ctx, DraftListing{
		Title:       meta.Title,
		Description: meta.Description,
		Price:       meta.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("create draft listing: %w", err)
	}

	result := &UploadResult{ListingID: listing.ListingID, State: "draft"}

	u.printer.Stage("etsy", fmt.Sprintf("uploading %d listing photo(s)", len(photos)))
	for i, photo := range photos {
		if err := u.client.UploadListingImage(ctx, listing.ListingID, photo, i+1); err != nil {
			u.printer.Errorf("photo upload failed: %s: %v", filepath.Base(photo), err)
			continue
		}
		result.PhotosUploaded++
	}

	u.printer.Stage("etsy", fmt.Sprintf("uploading %d digital file(s)", len(archives)))
	for i, archive := range archives {
		name := archiveDisplayName(archive)
		if err := u.client.UploadDigitalFile(ctx, listing.ListingID, archive, name, i+1); err != nil {
			u.printer.Errorf("file upload failed: %s: %v", filepath.Base(archive), err)
			continue
		}
		result.FilesUploaded++
	}

	if err := u.client.AddTags(ctx, listing.ListingID, meta.Tags); err != nil {
		u.printer.Errorf("failed to add tags: %v", err)
	}

	published, err := u.client.Publish(ctx, listing.ListingID)
	if err != nil {
		u.printer.Errorf("failed to publish, listing stays in draft: %v", err)
	} else {
		result.State = published.State
	}

	result.ListingURL = u.client.ListingURL(listing.ListingID, meta.Slug)

	u.printer.Successf("listing %d %s: %s (%d photos, %d files)",
		result.ListingID, result.State, result.ListingURL,
		result.PhotosUploaded, result.FilesUploaded)
	u.logger.Info("upload complete",
		"pack", packName,
		"listing_id", result.ListingID,
		"state", result.State,
		"photos", result.PhotosUploaded,
		"files", result.FilesUploaded)

	return result, nil
}

// archiveDisplayName turns "thumbnail_background.zip" into a buyer-facing
// "Thumbnail Background".
func archiveDisplayName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return titleWords(stem)
}

package etsy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"packforge/internal/config"
	"packforge/internal/output"
	"packforge/internal/packfs"
	"packforge/internal/rubric"
	"packforge/internal/state"
)

// Pipeline runs the marketplace finishing stages for a completed workflow:
// listing photos, delivery archives, and optionally the listing upload.
// It satisfies the workflow's finishing hook.
type Pipeline struct {
	// Client is the marketplace API client; only needed for uploads.
	Client *Client

	// BasePrice is the starting listing price before adjustments.
	BasePrice float64

	Printer *output.Printer
	Logger  *slog.Logger
}

// NewPipeline builds the finishing pipeline from application config.
func NewPipeline(cfg config.EtsyConfig, printer *output.Printer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		Client:    NewClient("", cfg, logger),
		BasePrice: cfg.BasePrice,
		Printer:   printer,
		Logger:    logger,
	}
}

// Finish renders listing photos and delivery archives for the pack, then
// uploads the listing when requested. Packaging always runs; the upload is
// skipped with a notice when credentials are missing.
func (p *Pipeline) Finish(ctx context.Context, packDir string, cfg *config.PackConfig, st *state.WorkflowState, upload bool) error {
	packName := filepath.Base(packDir)

	p.Printer.Stage("etsy", "rendering listing photos")
	photos, err := RenderListingPhotos(packName, packDir, cfg, p.Logger)
	if err != nil {
		return fmt.Errorf("render listing photos: %w", err)
	}
	p.Printer.Infof("rendered %d listing photo(s)", photos)

	errs, warnings := rubric.ValidateListingPhotos(filepath.Join(packDir, packfs.ListingDir))
	for _, issue := range errs {
		p.Printer.Warnf("listing photo issue: %s", issue)
	}
	for _, warning := range warnings {
		p.Logger.Warn("listing photo warning", "warning", warning)
	}

	p.Printer.Stage("etsy", "packaging delivery archives")
	archives, err := BuildDeliveryArchives(packName, packDir, cfg, p.Logger)
	if err != nil {
		return fmt.Errorf("build delivery archives: %w", err)
	}
	p.Printer.Infof("packaged %d delivery archive(s)", len(archives))

	if !upload {
		p.Printer.Infof("marketplace upload skipped")
		return nil
	}
	if !p.Client.Available() {
		p.Printer.Warnf("marketplace upload requested but credentials are not configured")
		return ErrNotConfigured
	}

	meta := BuildMetadata(packName, cfg, st, p.BasePrice)
	uploader := NewUploader(p.Client, p.Printer, p.Logger)
	if _, err := uploader.Upload(ctx, packName, packDir, meta); err != nil {
		return fmt.Errorf("upload listing: %w", err)
	}
	return nil
}

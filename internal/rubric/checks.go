package rubric

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"packforge/internal/packfs"
)

// Deliverable and marketplace limits enforced by the automated checker.
const (
	// OverlayWidth and OverlayHeight are the fixed deliverable resolution
	// for finished overlays.
	OverlayWidth  = 1920
	OverlayHeight = 1080

	// ListingMinPixels is the minimum pixel count required on the shorter
	// side of a listing photo.
	ListingMinPixels = 2000

	// ListingSoftLimitMB is the recommended maximum listing photo size;
	// exceeding it is a warning. ListingHardLimitMB is the hard limit;
	// exceeding it is an error.
	ListingSoftLimitMB = 1.0
	ListingHardLimitMB = 2.0

	// MaxArchives is the maximum number of delivery archives per pack.
	// ArchiveLimitMB is the hard per-archive size cap; exceeding it is a
	// critical, ship-blocking issue.
	MaxArchives    = 5
	ArchiveLimitMB = 20.0
)

// issuePenalty is deducted from 10 per detected issue when computing the
// automated score.
const issuePenalty = 0.5

// ValidateOverlays checks that every finished overlay in finalDir is exactly
// the deliverable resolution. A missing directory or an empty one is itself
// an issue: finished overlays are a required artifact, not an optional one.
func ValidateOverlays(finalDir string) []string {
	var issues []string

	if _, err := os.Stat(finalDir); err != nil {
		return []string{fmt.Sprintf("final directory not found: %s", finalDir)}
	}

	paths, _ := filepath.Glob(filepath.Join(finalDir, "*.png"))
	if len(paths) == 0 {
		return []string{fmt.Sprintf("no overlay PNG files found in %s", finalDir)}
	}

	sort.Strings(paths)
	for _, p := range paths {
		w, h, err := imageSize(p)
		if err != nil {
			issues = append(issues, fmt.Sprintf("failed to read %s: %v", filepath.Base(p), err))
			continue
		}
		if w != OverlayWidth || h != OverlayHeight {
			issues = append(issues, fmt.Sprintf(
				"overlay wrong resolution: %s is %dx%d, expected %dx%d",
				filepath.Base(p), w, h, OverlayWidth, OverlayHeight))
		}
	}

	return issues
}

// ValidateListingPhotos checks marketplace listing photos in listingDir.
//
// Each photo must be at least ListingMinPixels on its shorter side, and the
// first photo in sort order must be landscape or square (portrait first
// photos make poor thumbnails; this is an error, not a warning). Photo sizes
// above the soft limit are warnings; above the hard limit, errors.
//
// A missing directory or an empty one is not an issue: listing photos are
// produced by a later pipeline stage, and "not yet produced" must be
// distinguished from "produced but invalid".
func ValidateListingPhotos(listingDir string) (errs, warnings []string) {
	if _, err := os.Stat(listingDir); err != nil {
		return nil, nil
	}

	paths, _ := filepath.Glob(filepath.Join(listingDir, "*.jpg"))
	if len(paths) == 0 {
		return nil, nil
	}
	sort.Strings(paths)

	for i, p := range paths {
		name := filepath.Base(p)

		w, h, err := imageSize(p)
		if err != nil {
			errs = append(errs, fmt.Sprintf("failed to validate %s: %v", name, err))
			continue
		}

		if w < ListingMinPixels || h < ListingMinPixels {
			errs = append(errs, fmt.Sprintf(
				"%s: too small %dx%d, minimum %dpx on shorter side",
				name, w, h, ListingMinPixels))
		}

		if i == 0 && w < h {
			errs = append(errs, fmt.Sprintf(
				"%s: first listing photo should be landscape or square (current: %dx%d)",
				name, w, h))
		}

		sizeMB := fileSizeMB(p)
		if sizeMB > ListingHardLimitMB {
			errs = append(errs, fmt.Sprintf(
				"%s: size %.1fMB exceeds the %.0fMB limit", name, sizeMB, ListingHardLimitMB))
		} else if sizeMB > ListingSoftLimitMB {
			warnings = append(warnings, fmt.Sprintf(
				"%s: size %.1fMB above the recommended %.0fMB", name, sizeMB, ListingSoftLimitMB))
		}
	}

	return errs, warnings
}

// ValidateArchives checks delivery archives in deliveryDir: at most
// MaxArchives files, each within the per-archive size cap. Missing or empty
// directories pass, matching the listing-photo policy for not-yet-produced
// artifacts.
func ValidateArchives(deliveryDir string) []string {
	if _, err := os.Stat(deliveryDir); err != nil {
		return nil
	}

	paths, _ := filepath.Glob(filepath.Join(deliveryDir, "*.zip"))
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)

	var issues []string
	if len(paths) > MaxArchives {
		issues = append(issues, fmt.Sprintf(
			"too many delivery archives: %d found, maximum %d", len(paths), MaxArchives))
	}

	for _, p := range paths {
		sizeMB := fileSizeMB(p)
		if sizeMB > ArchiveLimitMB {
			issues = append(issues, fmt.Sprintf(
				"%s: size %.1fMB exceeds the %.0fMB limit", filepath.Base(p), sizeMB, ArchiveLimitMB))
		}
	}

	return issues
}

// CriticalIssues runs the subset of inspections whose failures block
// shipping regardless of score: a missing or empty final directory, any
// wrong-resolution overlay, and any oversized delivery archive.
func CriticalIssues(packDir string) []string {
	var critical []string

	finalDir := filepath.Join(packDir, packfs.FinalDir)
	if _, err := os.Stat(finalDir); err != nil {
		return []string{fmt.Sprintf("missing %s/ directory", packfs.FinalDir)}
	}

	paths, _ := filepath.Glob(filepath.Join(finalDir, "*.png"))
	if len(paths) == 0 {
		critical = append(critical, fmt.Sprintf("no overlay PNG files found in %s/", packfs.FinalDir))
	}

	for _, issue := range ValidateOverlays(finalDir) {
		if strings.Contains(strings.ToLower(issue), "wrong resolution") {
			critical = append(critical, "CRITICAL: "+issue)
		}
	}

	for _, issue := range ValidateArchives(filepath.Join(packDir, packfs.DeliveryDir)) {
		if strings.Contains(strings.ToLower(issue), "exceeds") {
			critical = append(critical, "CRITICAL: "+issue)
		}
	}

	return critical
}

// AutomatedScore computes the deterministic technical score for a pack:
// 10 minus half a point per issue, floored at zero. Listing-photo warnings
// do not count toward the penalty. Returns the score and the full issue list.
func AutomatedScore(packDir string) (float64, []string) {
	var all []string

	all = append(all, ValidateOverlays(filepath.Join(packDir, packfs.FinalDir))...)

	listingErrs, _ := ValidateListingPhotos(filepath.Join(packDir, packfs.ListingDir))
	all = append(all, listingErrs...)

	all = append(all, ValidateArchives(filepath.Join(packDir, packfs.DeliveryDir))...)

	score := 10.0 - float64(len(all))*issuePenalty
	if score < 0 {
		score = 0.0
	}

	return score, all
}

func imageSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func fileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}

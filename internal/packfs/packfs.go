// Package packfs defines the on-disk layout of a pack directory.
//
// Every pack lives under the packs root and uses the same numbered
// subdirectories so the pipeline stages can find each other's output:
//
//	01_raw/      raw generated variants
//	02_selected/ variants chosen for post-processing
//	03_final/    finished overlays at deliverable resolution
//	04_mockups/  labeled preview renders
//	05_listing/  marketplace listing photos (JPG)
//	06_delivery/ downloadable delivery archives (ZIP)
//	qa/          workflow state and per-round reports
package packfs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Pack subdirectory names, ordered for human clarity.
const (
	RawDir      = "01_raw"
	SelectedDir = "02_selected"
	FinalDir    = "03_final"
	MockupsDir  = "04_mockups"
	ListingDir  = "05_listing"
	DeliveryDir = "06_delivery"
	QADir       = "qa"
)

// RootEnv overrides the packs root directory when set.
const RootEnv = "PACKFORGE_PACKS_ROOT"

// Root returns the base directory holding all packs. Defaults to "packs"
// relative to the working directory; PACKFORGE_PACKS_ROOT overrides.
func Root() string {
	if root := os.Getenv(RootEnv); root != "" {
		return root
	}
	return "packs"
}

// PackDir returns the directory for a named pack under the packs root.
func PackDir(packName string) string {
	return filepath.Join(Root(), packName)
}

// EnsureDir creates the directory (and parents) if missing.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", path, err)
	}
	return nil
}

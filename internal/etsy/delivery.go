package etsy

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"packforge/internal/config"
	"packforge/internal/packfs"
	"packforge/internal/rubric"
)

// maxVariantsPerArchive caps how many variants of one screen type ship in
// the delivery archive.
const maxVariantsPerArchive = 3

// screenTypePrefixes maps a final-image filename prefix to its screen type.
var screenTypePrefixes = map[string]string{
	"starting":  "starting",
	"live":      "live",
	"brb":       "brb",
	"ending":    "ending",
	"thumbnail": "thumbnail_background",
}

// ExtractScreenType returns the screen type for a final-image filename, or
// "" when the prefix is not recognized.
func ExtractScreenType(filename string) string {
	lower := strings.ToLower(filename)
	for prefix, kind := range screenTypePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return kind
		}
	}
	return ""
}

// groupFinalImages groups the final PNGs by screen type, sorted within each
// group. Unrecognized filenames are skipped.
func groupFinalImages(finalDir string) (map[string][]string, error) {
	paths, err := filepath.Glob(filepath.Join(finalDir, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	grouped := make(map[string][]string)
	for _, p := range paths {
		if kind := ExtractScreenType(filepath.Base(p)); kind != "" {
			grouped[kind] = append(grouped[kind], p)
		}
	}
	return grouped, nil
}

// BuildDeliveryArchives packages the final overlays into one ZIP per screen
// type under 06_delivery, each holding up to three variants plus a setup
// README, followed by a master README for the whole pack. Archives that
// break the marketplace size or count limits fail the build.
func BuildDeliveryArchives(packName, packDir string, cfg *config.PackConfig, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	finalDir := filepath.Join(packDir, packfs.FinalDir)
	deliveryDir := filepath.Join(packDir, packfs.DeliveryDir)

	if _, err := os.Stat(finalDir); err != nil {
		return nil, fmt.Errorf("final directory not found: %s", finalDir)
	}

	grouped, err := groupFinalImages(finalDir)
	if err != nil {
		return nil, err
	}
	if len(grouped) == 0 {
		logger.Warn("no final images to package for delivery")
		return nil, nil
	}

	if err := os.RemoveAll(deliveryDir); err != nil {
		return nil, fmt.Errorf("clear delivery dir: %w", err)
	}
	if err := packfs.EnsureDir(deliveryDir); err != nil {
		return nil, err
	}

	kinds := make([]string, 0, len(grouped))
	for kind := range grouped {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var archives []string
	totalFiles := 0
	for _, kind := range kinds {
		files := grouped[kind]
		if len(files) > maxVariantsPerArchive {
			files = files[:maxVariantsPerArchive]
		}
		zipPath := filepath.Join(deliveryDir, kind+".zip")
		if err := writeScreenTypeArchive(zipPath, packName, kind, files, cfg); err != nil {
			return nil, fmt.Errorf("create archive for %s: %w", kind, err)
		}
		archives = append(archives, zipPath)
		totalFiles += len(files)
		logger.Info("created delivery archive", "archive", filepath.Base(zipPath), "variants", len(files))
	}

	masterPath := filepath.Join(deliveryDir, "README.txt")
	if err := os.WriteFile(masterPath, []byte(masterReadme(packName, cfg, totalFiles)), 0644); err != nil {
		return nil, fmt.Errorf("write master README: %w", err)
	}

	if issues := rubric.ValidateArchives(deliveryDir); len(issues) > 0 {
		return nil, fmt.Errorf("delivery archives failed validation: %s", strings.Join(issues, "; "))
	}

	logger.Info("delivery packaging complete", "archives", len(archives))
	return archives, nil
}

// writeScreenTypeArchive writes one screen type's ZIP: variants renamed to
// a stable numbered scheme plus a README.txt.
func writeScreenTypeArchive(zipPath, packName, kind string, files []string, cfg *config.PackConfig) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, src := range files {
		name := fmt.Sprintf("%s_v%d.png", kind, i+1)
		if err := addFileToZip(zw, src, name); err != nil {
			zw.Close()
			return err
		}
	}

	readme, err := zw.Create("README.txt")
	if err != nil {
		zw.Close()
		return err
	}
	if _, err := io.WriteString(readme, screenTypeReadme(packName, kind, cfg, len(files))); err != nil {
		zw.Close()
		return err
	}

	return zw.Close()
}

func addFileToZip(zw *zip.Writer, srcPath, name string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

// screenTypeReadme renders the per-archive setup instructions.
func screenTypeReadme(packName, kind string, cfg *config.PackConfig, variants int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", titleWords(packName), titleWords(kind))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	fmt.Fprintf(&b, "This archive contains %d variant(s) of the %s screen.\n\n", variants, titleWords(kind))

	b.WriteString("Setup (OBS Studio):\n")
	b.WriteString("  1. Extract this ZIP to a folder you keep.\n")
	b.WriteString("  2. In OBS, add an Image Source to your scene.\n")
	b.WriteString("  3. Browse to your favorite variant PNG.\n")
	b.WriteString("  4. Fit the image to the canvas (right-click > Transform > Fit to screen).\n")
	b.WriteString("  5. Layer your alerts, webcam, and text on top.\n\n")

	fmt.Fprintf(&b, "Specifications:\n  Resolution: %dx%d\n  Format: PNG\n\n",
		cfg.Resolution.Width, cfg.Resolution.Height)

	b.WriteString("License: personal and commercial streaming use.\n")
	b.WriteString("No resale or redistribution of the files.\n")
	return b.String()
}

// masterReadme renders the top-level README shipped next to the archives.
func masterReadme(packName string, cfg *config.PackConfig, totalFiles int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - Stream Overlay Pack\n", titleWords(packName))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Theme: %s\n", cfg.Theme)
	fmt.Fprintf(&b, "Resolution: %dx%d\n", cfg.Resolution.Width, cfg.Resolution.Height)
	fmt.Fprintf(&b, "Total files: %d PNG overlays across %d screen-type archives.\n\n", totalFiles, len(cfg.Prompts))
	b.WriteString("Each ZIP holds one screen type with its own README and setup steps.\n")
	b.WriteString("Questions or issues? Message us through the shop anytime.\n")
	return b.String()
}

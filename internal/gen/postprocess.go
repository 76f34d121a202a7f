package gen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"packforge/internal/config"
	"packforge/internal/packfs"
)

// PostprocessSelected resizes every selected image to the pack resolution
// under 03_final, renumbering variants per screen type, then renders labeled
// mockups for the screen types configured with mockup text.
func PostprocessSelected(cfg *config.PackConfig, packDir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	selectedDir := filepath.Join(packDir, packfs.SelectedDir)
	finalDir := filepath.Join(packDir, packfs.FinalDir)
	mockupsDir := filepath.Join(packDir, packfs.MockupsDir)
	if err := packfs.EnsureDir(finalDir); err != nil {
		return err
	}
	if err := packfs.EnsureDir(mockupsDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(selectedDir)
	if err != nil {
		return fmt.Errorf("read selected dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	counters := make(map[string]int)
	for _, name := range names {
		kind := screenType(name)
		counters[kind]++

		img, err := imaging.Open(filepath.Join(selectedDir, name))
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		resized := imaging.Resize(img, cfg.Resolution.Width, cfg.Resolution.Height, imaging.Lanczos)

		dest := filepath.Join(finalDir, cfg.Output.FileName(kind, counters[kind]))
		if err := imaging.Save(resized, dest); err != nil {
			return fmt.Errorf("save %s: %w", dest, err)
		}
		logger.Debug("saved final image", "path", dest)
	}

	if len(cfg.Output.MockupTexts) > 0 {
		if err := createMockups(cfg, finalDir, mockupsDir, logger); err != nil {
			return err
		}
	}

	logger.Info("postprocess finished", "pack", filepath.Base(packDir), "images", len(names))
	return nil
}

// screenType derives the screen type from a variant filename, dropping the
// trailing index.
func screenType(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	if idx := strings.LastIndex(stem, "_"); idx > 0 {
		return stem[:idx]
	}
	return stem
}

// createMockups stamps a text label onto the first final image of each
// configured screen type and writes the result to 04_mockups.
func createMockups(cfg *config.PackConfig, finalDir, mockupsDir string, logger *slog.Logger) error {
	kinds := make([]string, 0, len(cfg.Output.MockupTexts))
	for kind := range cfg.Output.MockupTexts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		matches, err := filepath.Glob(filepath.Join(finalDir, kind+"_*.png"))
		if err != nil || len(matches) == 0 {
			logger.Warn("no final image found for mockup", "kind", kind)
			continue
		}
		sort.Strings(matches)

		src, err := imaging.Open(matches[0])
		if err != nil {
			return fmt.Errorf("open mockup source: %w", err)
		}

		label := cfg.Output.MockupTexts[kind]
		if label == "" {
			label = strings.ToUpper(kind[:1]) + kind[1:]
		}

		dest := filepath.Join(mockupsDir, "mockup_"+kind+".png")
		if err := imaging.Save(stampLabel(src, label), dest); err != nil {
			return fmt.Errorf("save mockup %s: %w", dest, err)
		}
		logger.Debug("saved mockup", "path", dest)
	}
	return nil
}

// stampLabel draws a dark badge with white text over the top-left corner.
func stampLabel(src image.Image, label string) image.Image {
	canvas := imaging.Clone(src)

	badge := image.Rect(20, 20, 220, 80)
	draw.Draw(canvas, badge, &image.Uniform{C: color.NRGBA{A: 160}}, image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(30, 50),
	}
	drawer.DrawString(label)
	return canvas
}

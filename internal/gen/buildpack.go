package gen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"packforge/internal/config"
	"packforge/internal/packfs"
)

// BuildPack generates numVariants raw images per screen type into 01_raw.
// Prompt templates may reference {theme} and {kind}. A non-zero seed makes
// generation reproducible, with each variant offset from the base seed.
func BuildPack(ctx context.Context, generator ImageGenerator, cfg *config.PackConfig, packDir string, numVariants int, seed int64, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rawDir := filepath.Join(packDir, packfs.RawDir)
	if err := packfs.EnsureDir(rawDir); err != nil {
		return err
	}

	kinds := make([]string, 0, len(cfg.Prompts))
	for kind := range cfg.Prompts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		prompt := ExpandPrompt(cfg.Prompts[kind], cfg.Theme, kind)
		for idx := 1; idx <= numVariants; idx++ {
			logger.Info("generating variant", "kind", kind, "variant", idx)
			req := Request{
				Prompt: prompt,
				Width:  cfg.Resolution.Width,
				Height: cfg.Resolution.Height,
			}
			if seed != 0 {
				req.Seed = seed + int64(idx-1)
			}
			img, err := generator.Generate(ctx, req)
			if err != nil {
				return fmt.Errorf("generate %s variant %d: %w", kind, idx, err)
			}

			dest := filepath.Join(rawDir, cfg.Output.FileName(kind, idx))
			if err := imaging.Save(img, dest); err != nil {
				return fmt.Errorf("save %s: %w", dest, err)
			}
		}
	}

	logger.Info("generation finished", "pack", filepath.Base(packDir))
	return nil
}

// ExpandPrompt substitutes the {theme} and {kind} placeholders of a prompt
// template.
func ExpandPrompt(template, theme, kind string) string {
	expanded := strings.ReplaceAll(template, "{theme}", theme)
	return strings.ReplaceAll(expanded, "{kind}", kind)
}

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resolution is the target size for generated and final images.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// OutputSpec holds naming and mockup rules for exported images.
type OutputSpec struct {
	// FilenamePattern names final images. Supports the placeholders
	// {kind} and {index:02d}. Default: "{kind}_{index:02d}.png".
	FilenamePattern string `yaml:"filename_pattern"`

	// MockupTexts maps screen type to an overlay label; when present, a
	// labeled mockup render is produced for each listed kind.
	MockupTexts map[string]string `yaml:"mockup_texts,omitempty"`
}

// FileName expands the filename pattern for a screen type and 1-based index.
func (o OutputSpec) FileName(kind string, index int) string {
	pattern := o.FilenamePattern
	if pattern == "" {
		pattern = "{kind}_{index:02d}.png"
	}
	name := strings.ReplaceAll(pattern, "{kind}", kind)
	name = strings.ReplaceAll(name, "{index:02d}", fmt.Sprintf("%02d", index))
	return name
}

// BrandTokens is the structured style descriptor steering generation
// consistency across rounds.
type BrandTokens struct {
	// Nil color lists are omitted on save so they reload as nil, keeping
	// saved configs round-trip stable.
	PrimaryColors   []string `yaml:"primary_colors,omitempty" json:"primary_colors"`
	SecondaryColors []string `yaml:"secondary_colors,omitempty" json:"secondary_colors"`
	Texture         string   `yaml:"texture" json:"texture"`
	Composition     string   `yaml:"composition" json:"composition"`
	Lighting        string   `yaml:"lighting" json:"lighting"`
	Mood            string   `yaml:"mood" json:"mood"`
}

// PackConfig is the per-pack configuration stored as config.yaml in the
// pack directory.
type PackConfig struct {
	// Theme describes the pack's visual theme, e.g. "neon cyberpunk
	// cityscape". Required.
	Theme string `yaml:"theme"`

	// Prompts maps screen type (starting, live, brb, ending,
	// thumbnail_background) to its generation prompt template. Required.
	Prompts map[string]string `yaml:"prompts"`

	// Resolution is the deliverable size. Required.
	Resolution Resolution `yaml:"resolution"`

	// Output holds naming and mockup rules.
	Output OutputSpec `yaml:"output"`

	// BrandTokens steers style consistency; initialized from theme
	// defaults on the first round when absent.
	BrandTokens *BrandTokens `yaml:"brand_tokens,omitempty"`
}

// LoadPack reads and validates a pack's config.yaml.
//
// Missing theme, prompts, or resolution are configuration errors: fatal,
// reported immediately, no fallback.
func LoadPack(path string) (*PackConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack config: %w", err)
	}

	var cfg PackConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pack config: %w", err)
	}

	if cfg.Theme == "" {
		return nil, fmt.Errorf("pack config %s: missing required field: theme", path)
	}
	if len(cfg.Prompts) == 0 {
		return nil, fmt.Errorf("pack config %s: missing required field: prompts", path)
	}
	if cfg.Resolution.Width <= 0 || cfg.Resolution.Height <= 0 {
		return nil, fmt.Errorf("pack config %s: missing or invalid resolution", path)
	}

	return &cfg, nil
}

// SavePack writes the pack config back to config.yaml atomically. The
// round executor uses this to persist refined prompts and brand tokens
// between rounds.
func SavePack(path string, cfg *PackConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal pack config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write pack config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write pack config: %w", err)
	}

	return nil
}

// Package config provides configuration loading for packforge.
//
// Two layers of configuration exist:
//
//   - Application settings ([Config]) loaded via Viper with environment
//     variable overrides. These cover workflow defaults, LLM and image-model
//     endpoints, and marketplace credentials. See [Load].
//   - Per-pack settings ([PackConfig]) stored as config.yaml inside each
//     pack directory, covering theme, prompts, resolution, and brand tokens.
//     See [LoadPack].
//
// Application configuration priority (highest to lowest):
//  1. Environment variables (PACKFORGE_ prefix)
//  2. Config file specified by PACKFORGE_CONFIG_PATH
//  3. ./packforge.yaml
//  4. [Default] defaults
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	// Workflow holds multi-round workflow defaults.
	Workflow WorkflowConfig `mapstructure:"workflow"`

	// LLM configures the chat-completions endpoint used by the critic and
	// the refinement agents.
	LLM LLMConfig `mapstructure:"llm"`

	// Images configures the image-generation backend chain.
	Images ImagesConfig `mapstructure:"images"`

	// Etsy configures the marketplace publisher.
	Etsy EtsyConfig `mapstructure:"etsy"`
}

// WorkflowConfig holds the multi-round control parameters.
type WorkflowConfig struct {
	// MaxRounds is the round budget. Default: 3.
	MaxRounds int `mapstructure:"max_rounds"`

	// QualityThreshold is the overall score required to pass, 0-10.
	// Default: 8.5.
	QualityThreshold float64 `mapstructure:"quality_threshold"`
}

// LLMConfig configures the OpenAI-compatible chat-completions client.
type LLMConfig struct {
	// BaseURL is the API base, e.g. "https://api.openai.com/v1".
	BaseURL string `mapstructure:"base_url"`

	// APIKey authenticates requests. Usually set via PACKFORGE_LLM_API_KEY.
	// When empty, the refinement agents fall back to their rule-based
	// implementations and the critic degrades to automated-only evaluation.
	APIKey string `mapstructure:"api_key"`

	// CriticModel evaluates packs; RefinerModel rewrites prompts and brand
	// tokens. The critic typically warrants the stronger model.
	CriticModel  string `mapstructure:"critic_model"`
	RefinerModel string `mapstructure:"refiner_model"`

	// MaxTokens caps completion length. Default: 2000.
	MaxTokens int `mapstructure:"max_tokens"`
}

// ImagesConfig configures image generation.
type ImagesConfig struct {
	// BaseURL is the image-model API base.
	BaseURL string `mapstructure:"base_url"`

	// APIKey authenticates requests. Usually set via PACKFORGE_IMAGES_API_KEY.
	APIKey string `mapstructure:"api_key"`

	// Models is the ordered fallback chain of image model identifiers.
	// The generator tries each in turn, honoring rate-limit backoff, and
	// fails only when the whole chain is exhausted.
	Models []string `mapstructure:"models"`
}

// EtsyConfig configures the marketplace upload stage.
type EtsyConfig struct {
	// APIKey and AccessToken authenticate against the Etsy v3 API.
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`

	// ShopID is the numeric shop identifier listings are created under.
	ShopID int64 `mapstructure:"shop_id"`

	// BasePrice is the starting price in USD before per-screen-type
	// adjustments. Default: 9.99.
	BasePrice float64 `mapstructure:"base_price"`
}

// Default returns a [Config] populated with workable defaults. Only
// credentials must come from the environment or a config file.
func Default() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			MaxRounds:        3,
			QualityThreshold: 8.5,
		},
		LLM: LLMConfig{
			BaseURL:      "https://api.openai.com/v1",
			CriticModel:  "gpt-4o",
			RefinerModel: "gpt-4o-mini",
			MaxTokens:    2000,
		},
		Images: ImagesConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Models: []string{
				"gemini-3-pro-image-preview",
				"gemini-2.5-flash-image",
			},
		},
		Etsy: EtsyConfig{
			BasePrice: 9.99,
		},
	}
}

// Load reads the application configuration: defaults first, then an
// optional packforge.yaml, then PACKFORGE_* environment overrides
// (e.g. PACKFORGE_LLM_API_KEY, PACKFORGE_WORKFLOW_MAX_ROUNDS).
func Load() (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("workflow.max_rounds", defaults.Workflow.MaxRounds)
	v.SetDefault("workflow.quality_threshold", defaults.Workflow.QualityThreshold)
	v.SetDefault("llm.base_url", defaults.LLM.BaseURL)
	v.SetDefault("llm.critic_model", defaults.LLM.CriticModel)
	v.SetDefault("llm.refiner_model", defaults.LLM.RefinerModel)
	v.SetDefault("llm.max_tokens", defaults.LLM.MaxTokens)
	v.SetDefault("images.base_url", defaults.Images.BaseURL)
	v.SetDefault("images.models", defaults.Images.Models)
	v.SetDefault("etsy.base_price", defaults.Etsy.BasePrice)

	v.SetEnvPrefix("PACKFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credential keys have no defaults, so viper must be told about them
	// explicitly or AutomaticEnv never surfaces their env values during
	// Unmarshal.
	for _, key := range []string{
		"llm.api_key",
		"images.api_key",
		"etsy.api_key",
		"etsy.access_token",
		"etsy.shop_id",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path := os.Getenv("PACKFORGE_CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("packforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// Missing config file is fine; defaults plus env are enough.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

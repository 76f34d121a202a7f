package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Workflow.MaxRounds)
	assert.Equal(t, 8.5, cfg.Workflow.QualityThreshold)
	assert.Equal(t, "gpt-4o", cfg.LLM.CriticModel)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.RefinerModel)
	assert.Len(t, cfg.Images.Models, 2)
	assert.Equal(t, 9.99, cfg.Etsy.BasePrice)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PACKFORGE_WORKFLOW_MAX_ROUNDS", "5")
	t.Setenv("PACKFORGE_LLM_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Workflow.MaxRounds)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	// Untouched values keep their defaults.
	assert.Equal(t, 8.5, cfg.Workflow.QualityThreshold)
}

// Credential keys carry no defaults, so env binding for them is easy to
// lose; every credential channel must survive a round trip through Load.
func TestLoad_CredentialEnvKeys(t *testing.T) {
	t.Setenv("PACKFORGE_LLM_API_KEY", "sk-llm")
	t.Setenv("PACKFORGE_IMAGES_API_KEY", "sk-images")
	t.Setenv("PACKFORGE_ETSY_API_KEY", "sk-etsy")
	t.Setenv("PACKFORGE_ETSY_ACCESS_TOKEN", "tok-etsy")
	t.Setenv("PACKFORGE_ETSY_SHOP_ID", "1234567")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-llm", cfg.LLM.APIKey)
	assert.Equal(t, "sk-images", cfg.Images.APIKey)
	assert.Equal(t, "sk-etsy", cfg.Etsy.APIKey)
	assert.Equal(t, "tok-etsy", cfg.Etsy.AccessToken)
	assert.Equal(t, int64(1234567), cfg.Etsy.ShopID)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := t.TempDir() + "/packforge.yaml"
	writeFile(t, path, `
workflow:
  max_rounds: 4
  quality_threshold: 9.0
llm:
  critic_model: gpt-5-mini
`)
	t.Setenv("PACKFORGE_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workflow.MaxRounds)
	assert.Equal(t, 9.0, cfg.Workflow.QualityThreshold)
	assert.Equal(t, "gpt-5-mini", cfg.LLM.CriticModel)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.RefinerModel)
}

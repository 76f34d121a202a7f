package cli

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packforge/internal/config"
	"packforge/internal/output"
	"packforge/internal/packfs"
	"packforge/internal/state"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return &App{
		Config:  config.Default(),
		Printer: output.NewPrinterWithWriter(buf),
		Logger:  NewLogger(false),
	}, buf
}

// setupPack creates a pack under a temporary packs root and returns its
// directory.
func setupPack(t *testing.T, packName string, width, height int) string {
	t.Helper()

	root := t.TempDir()
	t.Setenv(packfs.RootEnv, root)

	packDir := filepath.Join(root, packName)
	require.NoError(t, os.MkdirAll(packDir, 0755))

	cfg := &config.PackConfig{
		Theme: "neon cyberpunk",
		Prompts: map[string]string{
			"starting": "{theme} starting screen",
			"brb":      "{theme} brb screen",
		},
		Resolution: config.Resolution{Width: width, Height: height},
	}
	require.NoError(t, config.SavePack(filepath.Join(packDir, "config.yaml"), cfg))
	return packDir
}

func writeFinal(t *testing.T, packDir, name string, width, height int) {
	t.Helper()
	finalDir := filepath.Join(packDir, packfs.FinalDir)
	require.NoError(t, os.MkdirAll(finalDir, 0755))
	img := imaging.New(width, height, color.NRGBA{R: 20, G: 20, B: 60, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(finalDir, name)))
}

func TestBuildCommandDryRun(t *testing.T) {
	packDir := setupPack(t, "neon_pack", 192, 108)
	app, _ := newTestApp(t)

	result := RunWithConfig(app, []string{"build", "neon_pack", "--dry-run", "--variants", "2"})
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.ExitCode)

	raw, _ := filepath.Glob(filepath.Join(packDir, packfs.RawDir, "*.png"))
	assert.Len(t, raw, 4)
}

func TestBuildCommandUnknownPack(t *testing.T) {
	t.Setenv(packfs.RootEnv, t.TempDir())
	app, buf := newTestApp(t)

	result := RunWithConfig(app, []string{"build", "missing_pack", "--dry-run"})
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "pack config")
}

func TestPostprocessCommand(t *testing.T) {
	packDir := setupPack(t, "neon_pack", 192, 108)
	app, _ := newTestApp(t)

	require.Equal(t, 0, RunWithConfig(app, []string{"build", "neon_pack", "--dry-run"}).ExitCode)

	result := RunWithConfig(app, []string{"postprocess", "neon_pack"})
	assert.Equal(t, 0, result.ExitCode)

	finals, _ := filepath.Glob(filepath.Join(packDir, packfs.FinalDir, "*.png"))
	assert.Len(t, finals, 6)
}

func TestPostprocessCommandWithoutRawImages(t *testing.T) {
	setupPack(t, "neon_pack", 192, 108)
	app, buf := newTestApp(t)

	result := RunWithConfig(app, []string{"postprocess", "neon_pack"})
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "no raw images")
}

func TestCheckCommand(t *testing.T) {
	packDir := setupPack(t, "neon_pack", 1920, 1080)
	writeFinal(t, packDir, "starting_01.png", 1920, 1080)
	app, buf := newTestApp(t)

	result := RunWithConfig(app, []string{"check", "neon_pack"})
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, buf.String(), "all checks passed")
	assert.Contains(t, buf.String(), "10.0/10")
}

func TestCheckCommandFlagsWrongResolution(t *testing.T) {
	packDir := setupPack(t, "neon_pack", 1920, 1080)
	writeFinal(t, packDir, "starting_01.png", 640, 480)
	app, buf := newTestApp(t)

	result := RunWithConfig(app, []string{"check", "neon_pack"})
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "wrong resolution")
}

func TestRunCommandDryRun(t *testing.T) {
	packDir := setupPack(t, "neon_pack", 1920, 1080)
	app, buf := newTestApp(t)

	result := RunWithConfig(app, []string{"run", "neon_pack", "--dry-run", "--max-rounds", "1"})
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.ExitCode)

	st, err := state.NewStore(packDir).Load()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Len(t, st.Rounds, 1)
	assert.True(t, st.Completed)
	assert.Contains(t, buf.String(), "Round 01/01")

	// Dry runs skip the finishing stages.
	_, err = os.Stat(filepath.Join(packDir, packfs.DeliveryDir))
	assert.True(t, os.IsNotExist(err))
}

func TestRunCommandBlockedPackExitsNonZero(t *testing.T) {
	setupPack(t, "neon_pack", 192, 108)
	app, _ := newTestApp(t)

	// Finals below deliverable resolution trip the critical checks.
	result := RunWithConfig(app, []string{"run", "neon_pack", "--dry-run", "--max-rounds", "1"})
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunCommandUnknownPack(t *testing.T) {
	t.Setenv(packfs.RootEnv, t.TempDir())
	app, _ := newTestApp(t)

	result := RunWithConfig(app, []string{"run", "missing_pack", "--dry-run"})
	assert.Equal(t, 2, result.ExitCode)
}

func TestStatusCommand(t *testing.T) {
	packDir := setupPack(t, "neon_pack", 1920, 1080)
	app, buf := newTestApp(t)

	result := RunWithConfig(app, []string{"status", "neon_pack"})
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, buf.String(), "no workflow state")

	require.Equal(t, 0, RunWithConfig(app, []string{"run", "neon_pack", "--dry-run", "--max-rounds", "1"}).ExitCode)
	buf.Reset()

	result = RunWithConfig(app, []string{"status", "neon_pack"})
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, buf.String(), "rounds: 1/1")
	assert.Contains(t, buf.String(), "round 1:")
	assert.Contains(t, buf.String(), "completed:")

	_ = packDir
}

func TestStatusCommandUnknownPack(t *testing.T) {
	t.Setenv(packfs.RootEnv, t.TempDir())
	app, buf := newTestApp(t)

	result := RunWithConfig(app, []string{"status", "missing_pack"})
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "not found")
}

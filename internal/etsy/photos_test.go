package etsy

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packforge/internal/packfs"
)

func TestRenderListingPhotos(t *testing.T) {
	packDir := t.TempDir()
	for _, name := range []string{
		"starting_01.png", "brb_01.png", "ending_01.png", "thumbnail_background_01.png",
	} {
		writeFinalPNG(t, packDir, name)
	}

	count, err := RenderListingPhotos("neon_pack", packDir, metadataConfig(), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	listingDir := filepath.Join(packDir, packfs.ListingDir)
	expected := []string{
		"01_hero_showcase.jpg",
		"02_starting_screen_demo.jpg",
		"03_brb_screen_demo.jpg",
		"04_ending_screen_demo.jpg",
		"05_thumbnail_showcase.jpg",
		"06_all_screens_grid.jpg",
		"07_file_contents.jpg",
		"08_usage_guide.jpg",
	}
	for _, name := range expected {
		path := filepath.Join(listingDir, name)

		f, err := os.Open(path)
		require.NoError(t, err, name)
		cfg, format, err := image.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, name)

		assert.Equal(t, "jpeg", format, name)
		assert.Equal(t, listingSize, cfg.Width, name)
		assert.Equal(t, listingSize, cfg.Height, name)
	}
}

func TestRenderListingPhotosReplacesStaleOutput(t *testing.T) {
	packDir := t.TempDir()
	writeFinalPNG(t, packDir, "starting_01.png")

	listingDir := filepath.Join(packDir, packfs.ListingDir)
	require.NoError(t, os.MkdirAll(listingDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(listingDir, "stale.jpg"), []byte("old"), 0644))

	_, err := RenderListingPhotos("neon_pack", packDir, metadataConfig(), discardLogger())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(listingDir, "stale.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestRenderListingPhotosMissingFinalDir(t *testing.T) {
	_, err := RenderListingPhotos("neon_pack", t.TempDir(), metadataConfig(), discardLogger())
	assert.ErrorContains(t, err, "final directory not found")
}

func TestBrandColors(t *testing.T) {
	primary, secondary, accent := brandColors(metadataConfig())

	assert.Equal(t, color.NRGBA{R: 0xFF, G: 0x00, B: 0xFF, A: 255}, primary)
	assert.Equal(t, color.NRGBA{R: 0x1A, G: 0x0B, B: 0x2E, A: 255}, secondary)
	assert.Equal(t, color.NRGBA{R: 0x00, G: 0xFF, B: 0xFF, A: 255}, accent)

	p, s, a := brandColors(deliveryConfig())
	assert.Equal(t, parseHexColor(defaultPrimary), p)
	assert.Equal(t, parseHexColor(defaultSecondary), s)
	assert.Equal(t, parseHexColor(defaultAccent), a)
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0x4A, G: 0x90, B: 0xE2, A: 255}, parseHexColor("#4A90E2"))
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, parseHexColor("not-a-color"))
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, parseHexColor("#ZZZZZZ"))
}

func TestGradient(t *testing.T) {
	img := gradient(10, 10, color.NRGBA{A: 255}, color.NRGBA{R: 250, A: 255}, true)

	top := img.NRGBAAt(5, 0)
	bottom := img.NRGBAAt(5, 9)
	assert.Less(t, top.R, bottom.R)
}

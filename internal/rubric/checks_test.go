package rubric

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packforge/internal/packfs"
)

// writePNG writes a solid-color PNG of the given size.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x40
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// writeJPEG writes a solid-color JPEG of the given size, padded to at least
// minBytes so file-size checks can be exercised.
func writeJPEG(t *testing.T, path string, w, h int, minBytes int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 0x80, G: 0x20, B: 0x60, A: 0xFF})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	data := buf.Bytes()
	if len(data) < minBytes {
		// JPEG readers ignore trailing bytes after EOI.
		data = append(data, make([]byte, minBytes-len(data))...)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func writeBlob(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestValidateOverlays(t *testing.T) {
	t.Run("missing directory is an issue", func(t *testing.T) {
		issues := ValidateOverlays(filepath.Join(t.TempDir(), "nope"))
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "final directory not found")
	})

	t.Run("empty directory is an issue", func(t *testing.T) {
		dir := t.TempDir()
		issues := ValidateOverlays(dir)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "no overlay PNG files")
	})

	t.Run("correct resolution passes", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "starting_01.png"), OverlayWidth, OverlayHeight)
		assert.Empty(t, ValidateOverlays(dir))
	})

	t.Run("wrong resolution is flagged per file", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "starting_01.png"), OverlayWidth, OverlayHeight)
		writePNG(t, filepath.Join(dir, "brb_01.png"), 1280, 720)

		issues := ValidateOverlays(dir)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "brb_01.png")
		assert.Contains(t, issues[0], "1280x720")
	})
}

func TestValidateListingPhotos(t *testing.T) {
	t.Run("missing directory is not an issue", func(t *testing.T) {
		errs, warnings := ValidateListingPhotos(filepath.Join(t.TempDir(), "nope"))
		assert.Empty(t, errs)
		assert.Empty(t, warnings)
	})

	t.Run("empty directory is not an issue", func(t *testing.T) {
		errs, warnings := ValidateListingPhotos(t.TempDir())
		assert.Empty(t, errs)
		assert.Empty(t, warnings)
	})

	t.Run("undersized photo is an error", func(t *testing.T) {
		dir := t.TempDir()
		writeJPEG(t, filepath.Join(dir, "01_hero.jpg"), 2400, 2000, 0)
		writeJPEG(t, filepath.Join(dir, "02_demo.jpg"), 1200, 900, 0)

		errs, _ := ValidateListingPhotos(dir)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "02_demo.jpg")
		assert.Contains(t, errs[0], "too small")
	})

	t.Run("portrait first photo is an error", func(t *testing.T) {
		dir := t.TempDir()
		writeJPEG(t, filepath.Join(dir, "01_hero.jpg"), 2000, 2600, 0)

		errs, _ := ValidateListingPhotos(dir)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "landscape or square")
	})

	t.Run("size above soft limit is a warning, above hard limit an error", func(t *testing.T) {
		dir := t.TempDir()
		writeJPEG(t, filepath.Join(dir, "01_hero.jpg"), 2400, 2000, int(1.5*1024*1024))
		writeJPEG(t, filepath.Join(dir, "02_demo.jpg"), 2400, 2000, int(2.5*1024*1024))

		errs, warnings := ValidateListingPhotos(dir)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "01_hero.jpg")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "02_demo.jpg")
		assert.Contains(t, errs[0], "exceeds")
	})
}

func TestValidateArchives(t *testing.T) {
	t.Run("missing directory is not an issue", func(t *testing.T) {
		assert.Empty(t, ValidateArchives(filepath.Join(t.TempDir(), "nope")))
	})

	t.Run("too many archives", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
			writeBlob(t, filepath.Join(dir, name+".zip"), 128)
		}

		issues := ValidateArchives(dir)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "too many delivery archives")
	})

	t.Run("oversized archive", func(t *testing.T) {
		dir := t.TempDir()
		writeBlob(t, filepath.Join(dir, "overlays.zip"), 21*1024*1024)

		issues := ValidateArchives(dir)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "exceeds")
	})
}

func TestCriticalIssues(t *testing.T) {
	t.Run("missing final directory short-circuits", func(t *testing.T) {
		critical := CriticalIssues(t.TempDir())
		require.Len(t, critical, 1)
		assert.Contains(t, critical[0], packfs.FinalDir)
	})

	t.Run("wrong resolution and oversized archive are critical", func(t *testing.T) {
		packDir := t.TempDir()
		writePNG(t, filepath.Join(packDir, packfs.FinalDir, "live_01.png"), 800, 600)
		writeBlob(t, filepath.Join(packDir, packfs.DeliveryDir, "pack.zip"), 21*1024*1024)

		critical := CriticalIssues(packDir)
		require.Len(t, critical, 2)
		assert.Contains(t, critical[0], "wrong resolution")
		assert.Contains(t, critical[1], "exceeds")
	})

	t.Run("clean pack has no critical issues", func(t *testing.T) {
		packDir := t.TempDir()
		writePNG(t, filepath.Join(packDir, packfs.FinalDir, "live_01.png"), OverlayWidth, OverlayHeight)
		assert.Empty(t, CriticalIssues(packDir))
	})
}

func TestAutomatedScore(t *testing.T) {
	t.Run("clean pack scores ten", func(t *testing.T) {
		packDir := t.TempDir()
		writePNG(t, filepath.Join(packDir, packfs.FinalDir, "live_01.png"), OverlayWidth, OverlayHeight)

		score, issues := AutomatedScore(packDir)
		assert.Empty(t, issues)
		assert.Equal(t, 10.0, score)
	})

	t.Run("three issues score eight point five", func(t *testing.T) {
		packDir := t.TempDir()
		writePNG(t, filepath.Join(packDir, packfs.FinalDir, "live_01.png"), OverlayWidth, OverlayHeight)
		for _, name := range []string{"brb_01.png", "brb_02.png", "ending_01.png"} {
			writePNG(t, filepath.Join(packDir, packfs.FinalDir, name), 640, 360)
		}

		score, issues := AutomatedScore(packDir)
		require.Len(t, issues, 3)
		assert.Equal(t, 8.5, score)
	})

	t.Run("score floors at zero", func(t *testing.T) {
		packDir := t.TempDir()
		for i := 0; i < 25; i++ {
			name := fmt.Sprintf("variant_%02d.png", i+1)
			writePNG(t, filepath.Join(packDir, packfs.FinalDir, name), 320, 180)
		}

		score, issues := AutomatedScore(packDir)
		require.Len(t, issues, 25)
		assert.Equal(t, 0.0, score)
	})

	t.Run("listing warnings do not count toward the penalty", func(t *testing.T) {
		packDir := t.TempDir()
		writePNG(t, filepath.Join(packDir, packfs.FinalDir, "live_01.png"), OverlayWidth, OverlayHeight)
		writeJPEG(t, filepath.Join(packDir, packfs.ListingDir, "01_hero.jpg"), 2400, 2000, int(1.5*1024*1024))

		score, issues := AutomatedScore(packDir)
		assert.Empty(t, issues)
		assert.Equal(t, 10.0, score)
	})
}

package etsy

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"packforge/internal/config"
	"packforge/internal/packfs"
)

// Listing photos are square JPEGs sized for marketplace zoom.
const (
	listingSize = 2000
	jpegQuality = 95
)

// Fallback palette when brand tokens are absent.
var (
	defaultPrimary   = "#4A90E2"
	defaultSecondary = "#2C3E50"
	defaultAccent    = "#E74C3C"
)

// RenderListingPhotos renders the marketplace photo set into 05_listing:
// a hero showcase, per-screen demos, a thumbnail showcase, an all-screens
// grid, and two infographic cards. Returns the number of photos written.
func RenderListingPhotos(packName, packDir string, cfg *config.PackConfig, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	finalDir := filepath.Join(packDir, packfs.FinalDir)
	listingDir := filepath.Join(packDir, packfs.ListingDir)

	if _, err := os.Stat(finalDir); err != nil {
		return 0, fmt.Errorf("final directory not found: %s", finalDir)
	}
	if err := os.RemoveAll(listingDir); err != nil {
		return 0, fmt.Errorf("clear listing dir: %w", err)
	}
	if err := packfs.EnsureDir(listingDir); err != nil {
		return 0, err
	}

	primary, secondary, accent := brandColors(cfg)
	count := 0
	save := func(name string, img image.Image) error {
		path := filepath.Join(listingDir, name)
		if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		count++
		logger.Debug("saved listing photo", "photo", name)
		return nil
	}

	if err := save("01_hero_showcase.jpg", heroShowcase(packName, finalDir, primary, secondary)); err != nil {
		return count, err
	}

	for i, kind := range []string{"starting", "brb", "ending"} {
		name := fmt.Sprintf("%02d_%s_screen_demo.jpg", i+2, kind)
		if err := save(name, screenDemo(kind, finalDir, accent)); err != nil {
			return count, err
		}
	}

	if err := save("05_thumbnail_showcase.jpg", thumbnailShowcase(finalDir, primary, secondary)); err != nil {
		return count, err
	}
	if err := save("06_all_screens_grid.jpg", allScreensGrid(finalDir, secondary)); err != nil {
		return count, err
	}
	if err := save("07_file_contents.jpg", fileContentsCard(cfg, primary, secondary, accent)); err != nil {
		return count, err
	}
	if err := save("08_usage_guide.jpg", usageGuideCard(primary, secondary, accent)); err != nil {
		return count, err
	}

	logger.Info("listing photos complete", "photos", count)
	return count, nil
}

// heroShowcase renders the main listing image: gradient background, the
// first starting-screen overlay centered, pack title above and tagline below.
func heroShowcase(packName, finalDir string, primary, secondary color.NRGBA) image.Image {
	canvas := gradient(listingSize, listingSize, secondary, primary, true)

	if hero := firstFinal(finalDir, "starting"); hero != nil {
		fitted := imaging.Fit(hero, 1400, 1400, imaging.Lanczos)
		x := (listingSize - fitted.Bounds().Dx()) / 2
		y := (listingSize-fitted.Bounds().Dy())/2 - 100
		canvas = imaging.Overlay(canvas, fitted, image.Pt(x, y), 1.0)
	}

	canvas = drawCenteredText(canvas, titleWords(packName), listingSize/2, 150, 8, color.White)
	canvas = drawCenteredText(canvas, "Professional Stream Overlays", listingSize/2, 1850, 5, color.White)
	return canvas
}

// screenDemo renders one screen type framed on a dark editor-style canvas.
func screenDemo(kind, finalDir string, accent color.NRGBA) image.Image {
	canvas := imaging.New(listingSize, listingSize, color.NRGBA{R: 30, G: 30, B: 30, A: 255})

	if screen := firstFinal(finalDir, kind); screen != nil {
		fitted := imaging.Fit(screen, 1200, 675, imaging.Lanczos)
		w, h := fitted.Bounds().Dx(), fitted.Bounds().Dy()
		x := (listingSize - w) / 2
		y := (listingSize - h) / 2

		frame := imaging.New(w+20, h+20, accent)
		canvas = imaging.Overlay(canvas, frame, image.Pt(x-10, y-10), 1.0)
		canvas = imaging.Overlay(canvas, fitted, image.Pt(x, y), 1.0)
	}

	return drawCenteredText(canvas, titleWords(kind)+" Screen - In OBS Studio", listingSize/2, 150, 6, color.White)
}

// thumbnailShowcase highlights the thumbnail backgrounds.
func thumbnailShowcase(finalDir string, primary, secondary color.NRGBA) image.Image {
	canvas := gradient(listingSize, listingSize, primary, secondary, false)

	if thumb := firstFinal(finalDir, "thumbnail"); thumb != nil {
		fitted := imaging.Fit(thumb, 1400, 1400, imaging.Lanczos)
		x := (listingSize - fitted.Bounds().Dx()) / 2
		y := (listingSize-fitted.Bounds().Dy())/2 - 100
		canvas = imaging.Overlay(canvas, fitted, image.Pt(x, y), 1.0)
	}

	return drawCenteredText(canvas, "Thumbnail Backgrounds Included", listingSize/2, 1850, 5, color.White)
}

// allScreensGrid lays the four main screens out in a labeled 2x2 grid.
func allScreensGrid(finalDir string, background color.NRGBA) image.Image {
	canvas := imaging.New(listingSize, listingSize, background)

	kinds := []string{"starting", "brb", "ending", "thumbnail"}
	labels := []string{"Starting", "BRB", "Ending", "Thumbnail"}
	positions := []image.Point{{50, 150}, {1050, 150}, {50, 1050}, {1050, 1050}}

	for i, kind := range kinds {
		cell := firstFinal(finalDir, kind)
		var fitted image.Image
		if cell != nil {
			fitted = imaging.Fit(cell, 900, 900, imaging.Lanczos)
		} else {
			fitted = imaging.New(900, 506, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
		}
		canvas = imaging.Overlay(canvas, fitted, positions[i], 1.0)

		labelY := positions[i].Y + fitted.Bounds().Dy() + 50
		canvas = drawCenteredText(canvas, labels[i], positions[i].X+450, labelY, 4, color.White)
	}

	return drawCenteredText(canvas, "Complete Stream Pack - All Screens", listingSize/2, 80, 6, color.White)
}

// fileContentsCard lists the delivery archives buyers receive.
func fileContentsCard(cfg *config.PackConfig, primary, secondary, accent color.NRGBA) image.Image {
	canvas := gradient(listingSize, listingSize, secondary, primary, true)
	canvas = drawCenteredText(canvas, "What You'll Receive", listingSize/2, 250, 7, color.White)

	kinds := make([]string, 0, len(cfg.Prompts))
	for kind := range cfg.Prompts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	y := 600
	total := 0
	for _, kind := range kinds {
		line := kind + ".zip (up to 3 variants + README)"
		canvas = drawCenteredText(canvas, line, listingSize/2, y, 4, color.White)
		y += 180
		total += maxVariantsPerArchive
	}

	canvas = drawCenteredText(canvas, "Total: "+strconv.Itoa(total)+" High-Quality PNG Files", listingSize/2, 1700, 5, accent)
	return drawCenteredText(canvas, "Ready for OBS, Streamlabs & More", listingSize/2, 1840, 4, color.White)
}

// usageGuideCard renders the quick setup steps.
func usageGuideCard(primary, secondary, accent color.NRGBA) image.Image {
	canvas := gradient(listingSize, listingSize, primary, secondary, false)
	canvas = drawCenteredText(canvas, "Quick Setup Guide", listingSize/2, 250, 7, color.White)

	steps := []string{
		"1. Download & extract the ZIP files",
		"2. Open OBS Studio or Streamlabs",
		"3. Add Image Source, then Browse",
		"4. Select your favorite variant",
		"5. Add text overlays & customize",
		"6. Start streaming!",
	}
	y := 550
	for _, step := range steps {
		canvas = drawCenteredText(canvas, step, listingSize/2, y, 5, color.White)
		y += 200
	}

	return drawCenteredText(canvas, "Professional Results in Minutes", listingSize/2, 1850, 4, accent)
}

// firstFinal opens the first final image whose name starts with prefix,
// nil when none exists or decoding fails.
func firstFinal(finalDir, prefix string) image.Image {
	matches, _ := filepath.Glob(filepath.Join(finalDir, prefix+"*.png"))
	sort.Strings(matches)
	for _, m := range matches {
		if img, err := imaging.Open(m); err == nil {
			return img
		}
	}
	return nil
}

// brandColors extracts the palette from brand tokens, falling back to the
// default palette for missing entries.
func brandColors(cfg *config.PackConfig) (primary, secondary, accent color.NRGBA) {
	p, s, a := defaultPrimary, defaultSecondary, defaultAccent
	if tokens := cfg.BrandTokens; tokens != nil {
		if len(tokens.PrimaryColors) > 0 {
			p = tokens.PrimaryColors[0]
		}
		if len(tokens.PrimaryColors) > 1 {
			a = tokens.PrimaryColors[1]
		}
		if len(tokens.SecondaryColors) > 0 {
			s = tokens.SecondaryColors[0]
		}
	}
	return parseHexColor(p), parseHexColor(s), parseHexColor(a)
}

// parseHexColor converts "#RRGGBB" to a color, falling back to mid-gray on
// malformed input.
func parseHexColor(s string) color.NRGBA {
	if len(s) == 7 && s[0] == '#' {
		r, errR := strconv.ParseUint(s[1:3], 16, 8)
		g, errG := strconv.ParseUint(s[3:5], 16, 8)
		b, errB := strconv.ParseUint(s[5:7], 16, 8)
		if errR == nil && errG == nil && errB == nil {
			return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
		}
	}
	return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
}

// gradient fills a canvas with a linear blend between two colors.
func gradient(width, height int, from, to color.NRGBA, vertical bool) *image.NRGBA {
	img := imaging.New(width, height, color.NRGBA{A: 255})

	steps := height
	if !vertical {
		steps = width
	}
	for i := 0; i < steps; i++ {
		ratio := float64(i) / float64(steps)
		c := color.NRGBA{
			R: lerp(from.R, to.R, ratio),
			G: lerp(from.G, to.G, ratio),
			B: lerp(from.B, to.B, ratio),
			A: 255,
		}
		if vertical {
			for x := 0; x < width; x++ {
				img.SetNRGBA(x, i, c)
			}
		} else {
			for y := 0; y < height; y++ {
				img.SetNRGBA(i, y, c)
			}
		}
	}
	return img
}

func lerp(from, to uint8, ratio float64) uint8 {
	return uint8(float64(from) + (float64(to)-float64(from))*ratio)
}

// drawCenteredText rasterizes text at the base bitmap font size, scales it
// up, and overlays it centered on (cx, cy).
func drawCenteredText(dst *image.NRGBA, text string, cx, cy, scale int, col color.Color) *image.NRGBA {
	if text == "" || scale < 1 {
		return dst
	}

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	strip := image.NewNRGBA(image.Rect(0, 0, width+2, height+2))
	drawer := &font.Drawer{
		Dst:  strip,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(1, face.Metrics().Ascent.Ceil()+1),
	}
	drawer.DrawString(text)

	scaled := imaging.Resize(strip, strip.Bounds().Dx()*scale, strip.Bounds().Dy()*scale, imaging.NearestNeighbor)
	x := cx - scaled.Bounds().Dx()/2
	y := cy - scaled.Bounds().Dy()/2
	return imaging.Overlay(dst, scaled, image.Pt(x, y), 1.0)
}

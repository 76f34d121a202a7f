package etsy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"packforge/internal/config"
	"packforge/internal/state"
)

// baseTags are the always-relevant search keywords; theme-specific words are
// appended until the tag limit is reached.
var baseTags = []string{
	"stream overlay",
	"twitch overlay",
	"obs overlay",
	"gaming overlay",
	"youtube overlay",
	"streamlabs",
	"starting screen",
	"brb screen",
	"ending screen",
	"digital download",
	"instant download",
	"streamer graphics",
}

// premiumKeywords in a pack name add a price premium.
var premiumKeywords = []string{"premium", "pro", "deluxe", "ultimate"}

// standardScreenTypes is the screen-type count the base price assumes;
// larger packs price each extra type on top.
const standardScreenTypes = 4

// Metadata holds everything the uploader needs to fill in a listing.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Price       float64
	Slug        string
}

// BuildMetadata derives the complete listing metadata for a finished pack.
// The workflow state is optional; without it the quality bonus is skipped.
func BuildMetadata(packName string, cfg *config.PackConfig, st *state.WorkflowState, basePrice float64) Metadata {
	return Metadata{
		Title:       ListingTitle(packName, cfg),
		Description: ListingDescription(packName, cfg, st),
		Tags:        ListingTags(packName, cfg),
		Price:       ListingPrice(packName, cfg, st, basePrice),
		Slug:        ListingSlug(packName),
	}
}

// ListingTitle builds the search-facing listing title, capped at Etsy's
// 140-character limit.
func ListingTitle(packName string, cfg *config.PackConfig) string {
	theme := themeName(packName, cfg)

	title := fmt.Sprintf("Stream Overlay Pack - %s | Twitch YouTube OBS | Starting BRB Ending", theme)
	if len(title) > maxTitleLen {
		title = fmt.Sprintf(
			"Stream Overlay Pack - %s | Twitch YouTube OBS | Starting BRB Ending",
			truncate(theme, 27)+"...")
	}
	return truncate(title, maxTitleLen)
}

// ListingDescription builds a plain-text listing description covering the
// pack contents, theme, and delivery format.
func ListingDescription(packName string, cfg *config.PackConfig, st *state.WorkflowState) string {
	theme := themeName(packName, cfg)

	kinds := make([]string, 0, len(cfg.Prompts))
	for kind := range cfg.Prompts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var b strings.Builder
	fmt.Fprintf(&b, "Professional Stream Overlay Pack - %s\n\n", theme)
	b.WriteString("A complete set of stream overlays for Twitch, YouTube Gaming, and all major streaming platforms.\n\n")

	b.WriteString("Included screens:\n")
	for _, kind := range kinds {
		fmt.Fprintf(&b, "  - %s\n", titleWords(kind))
	}

	fmt.Fprintf(&b, "\nResolution: %dx%d PNG, ready for OBS Studio, Streamlabs, and XSplit.\n",
		cfg.Resolution.Width, cfg.Resolution.Height)

	if tokens := cfg.BrandTokens; tokens != nil {
		var style []string
		if tokens.Texture != "" {
			style = append(style, tokens.Texture)
		}
		if tokens.Lighting != "" {
			style = append(style, tokens.Lighting)
		}
		if len(style) > 0 {
			fmt.Fprintf(&b, "Style: %s\n", strings.Join(style, ", "))
		}
		if tokens.Mood != "" {
			fmt.Fprintf(&b, "Mood: %s\n", tokens.Mood)
		}
		if len(tokens.PrimaryColors) > 0 {
			colors := tokens.PrimaryColors
			if len(colors) > 3 {
				colors = colors[:3]
			}
			fmt.Fprintf(&b, "Color palette: %s\n", strings.Join(colors, ", "))
		}
	}

	if st != nil {
		if score, ok := st.LatestScore(); ok {
			fmt.Fprintf(&b, "\nQuality score: %.1f/10 after %d refinement round(s).\n", score, len(st.Rounds))
		}
	}

	b.WriteString("\nInstant digital download. Each screen type ships as its own ZIP with a setup README.\n")
	b.WriteString("License: personal and commercial streaming use; no resale or redistribution of the files.\n")

	return b.String()
}

// ListingTags builds up to 13 search tags of at most 20 characters each,
// starting from the base set and adding theme and mood words.
func ListingTags(packName string, cfg *config.PackConfig) []string {
	tags := make([]string, len(baseTags))
	copy(tags, baseTags)

	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		seen[tag] = true
	}
	add := func(word string) {
		word = truncate(strings.TrimSpace(word), maxTagLen)
		if len(word) > 3 && !seen[word] {
			tags = append(tags, word)
			seen[word] = true
		}
	}

	for _, word := range strings.Fields(strings.ToLower(strings.ReplaceAll(packName, "_", " "))) {
		if word != "pack" && word != "stream" {
			add(word)
		}
	}
	if cfg.BrandTokens != nil && cfg.BrandTokens.Mood != "" {
		for _, word := range strings.Split(strings.ToLower(cfg.BrandTokens.Mood), ",") {
			add(word)
		}
	}

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

// ListingPrice computes the listing price: the base price plus a surcharge
// per screen type beyond the standard four, a quality bonus from the final
// score, and a premium-theme bonus. Rounded to cents.
func ListingPrice(packName string, cfg *config.PackConfig, st *state.WorkflowState, basePrice float64) float64 {
	price := basePrice

	if extra := len(cfg.Prompts) - standardScreenTypes; extra > 0 {
		price += float64(extra) * 1.00
	}

	if st != nil {
		if score, ok := st.LatestScore(); ok {
			switch {
			case score >= 9.0:
				price += 5.00
			case score >= 8.5:
				price += 3.00
			case score >= 8.0:
				price += 1.00
			}
		}
	}

	lower := strings.ToLower(packName)
	for _, kw := range premiumKeywords {
		if strings.Contains(lower, kw) {
			price += 2.00
			break
		}
	}

	return math.Round(price*100) / 100
}

// ListingSlug builds the URL slug for the listing.
func ListingSlug(packName string) string {
	slug := strings.ToLower(strings.ReplaceAll(packName, "_", "-"))
	return slug + "-stream-overlay-pack"
}

// themeName picks the display theme: the config theme when it is more
// descriptive than the pack name, title-cased either way.
func themeName(packName string, cfg *config.PackConfig) string {
	name := titleWords(strings.ReplaceAll(packName, "_", " "))
	if len(cfg.Theme) > len(name) {
		return titleWords(cfg.Theme)
	}
	return name
}

// titleWords capitalizes the first letter of every word.
func titleWords(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

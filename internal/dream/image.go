package dream

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"dreamshare/pkg/ai"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/metrics"
)

const (
	imageWidth  = 1024
	imageHeight = 1024
)

// ImageSynthesizer tries each configured generator in order and falls
// back to an inline SVG placeholder, so every dream ends up with an
// image.
type ImageSynthesizer struct {
	providers []ai.ImageGenerator
}

func NewImageSynthesizer(providers ...ai.ImageGenerator) *ImageSynthesizer {
	var active []ai.ImageGenerator
	for _, p := range providers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &ImageSynthesizer{providers: active}
}

// Synthesize returns a data URI for the prompt. Provider failures are
// logged and skipped; the placeholder is the terminal fallback.
func (s *ImageSynthesizer) Synthesize(ctx context.Context, prompt string) string {
	for _, p := range s.providers {
		data, mime, err := p.Generate(ctx, prompt, imageWidth, imageHeight)
		if err != nil {
			logger.Warn("image generation failed",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		return fmt.Sprintf("data:%s;base64,%s", mime, encoded)
	}
	metrics.RecordFallback("image")
	return PlaceholderImage(prompt)
}

// placeholder color themes, first match on any word wins
var placeholderThemes = []struct {
	words  []string
	colors [2]string
}{
	{[]string{"nature", "forest", "tree", "green"}, [2]string{"#56ab2f", "#a8e6cf"}},
	{[]string{"ocean", "sea", "blue", "water"}, [2]string{"#2196F3", "#21CBF3"}},
	{[]string{"fire", "red", "warm", "sunset"}, [2]string{"#ff6b6b", "#ffa726"}},
	{[]string{"night", "dark", "moon", "star"}, [2]string{"#2c3e50", "#3498db"}},
}

// PlaceholderImage renders a gradient SVG themed by the prompt's words
// and returns it as a base64 data URI.
func PlaceholderImage(prompt string) string {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		words[w] = true
	}

	colors := [2]string{"#667eea", "#764ba2"}
	for _, theme := range placeholderThemes {
		if containsAny(words, theme.words) {
			colors = theme.colors
			break
		}
	}

	var elements []string
	if words["circle"] || words["moon"] {
		elements = append(elements, `<circle cx="512" cy="300" r="100" fill="white" opacity="0.4"/>`)
	}
	if words["star"] || words["night"] {
		elements = append(elements, `<polygon points="512,200 520,220 540,220 526,234 532,254 512,242 492,254 498,234 484,220 504,220" fill="white" opacity="0.6"/>`)
	}
	if words["cloud"] {
		elements = append(elements, `<ellipse cx="400" cy="250" rx="80" ry="40" fill="white" opacity="0.3"/>`)
	}
	if len(elements) == 0 {
		elements = []string{
			`<circle cx="512" cy="300" r="80" fill="white" opacity="0.3"/>`,
			`<circle cx="300" cy="500" r="60" fill="white" opacity="0.2"/>`,
			`<circle cx="700" cy="600" r="90" fill="white" opacity="0.25"/>`,
		}
	}

	caption := prompt
	if runes := []rune(caption); len(runes) > 60 {
		caption = string(runes[:60]) + " ..."
	}

	svg := fmt.Sprintf(`<svg width="1024" height="1024" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <linearGradient id="dreamGradient" x1="0%%" y1="0%%" x2="100%%" y2="100%%">
      <stop offset="0%%" style="stop-color:%s;stop-opacity:1" />
      <stop offset="100%%" style="stop-color:%s;stop-opacity:1" />
    </linearGradient>
  </defs>
  <rect width="1024" height="1024" fill="url(#dreamGradient)"/>
  %s
  <text x="512" y="450" font-family="Arial, sans-serif" font-size="32" fill="white" text-anchor="middle">🌙 Dream Vision 🌙</text>
  <text x="512" y="500" font-family="Arial, sans-serif" font-size="18" fill="white" text-anchor="middle">%s</text>
</svg>`, colors[0], colors[1], strings.Join(elements, "\n  "), html.EscapeString(caption))

	encoded := base64.StdEncoding.EncodeToString([]byte(svg))
	return "data:image/svg+xml;base64," + encoded
}

func containsAny(set map[string]bool, words []string) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

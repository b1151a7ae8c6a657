package dream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamshare/internal/models"
	"dreamshare/pkg/i18n"
)

func TestExportDream(t *testing.T) {
	translator, err := i18n.NewI18nSupport("fr")
	require.NoError(t, err)
	exporter := NewExporter(translator)

	dream := &models.Dream{
		Transcription:  "Je marchais dans une forêt enchantée.",
		ImprovedPrompt: "forêt enchantée, couleurs vives",
		GeneratedImage: "data:image/svg+xml;base64,PHN2Zy8+",
		Emotion:        EmotionMysterious,
		CreatedAt:      time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	out, err := exporter.Export(dream, "fr")
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "Je marchais dans une forêt enchantée.")
	assert.Contains(t, html, "forêt enchantée, couleurs vives")
	assert.Contains(t, html, `src="data:image/svg+xml;base64,PHN2Zy8+"`)
	assert.NotContains(t, html, "&#43;")
	assert.Contains(t, html, "14/03/2025")
	assert.Contains(t, html, "🔮")
	assert.Contains(t, html, "#8b5cf6")
}

func TestExportDreamWithoutOptionalFields(t *testing.T) {
	translator, err := i18n.NewI18nSupport("fr")
	require.NoError(t, err)
	exporter := NewExporter(translator)

	out, err := exporter.Export(&models.Dream{Transcription: "Un rêve sans image ni émotion."}, "en")
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "Un rêve sans image ni émotion.")
	assert.NotContains(t, html, "<img")
}

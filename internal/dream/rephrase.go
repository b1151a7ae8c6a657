package dream

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dreamshare/pkg/ai"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/metrics"
)

const (
	rephraseSystemPrompt = "Tu es un assistant qui transforme des récits de rêves en descriptions visuelles courtes et poétiques pour un générateur d'images. Réponds uniquement avec la description, en français, sans commentaire."
	rephraseTemperature  = 0.6
	rephraseMaxTokens    = 120
	maxPromptLen         = 120
	maxFallbackKeywords  = 2
)

// keywordScenes maps transcript keywords to visual fragments for the
// offline prompt. Order matters: the first two matches win.
var keywordScenes = []struct {
	keyword string
	scene   string
}{
	{"forêt", "forêt magique"},
	{"forest", "forêt enchantée"},
	{"arbre", "arbres lumineux"},
	{"jardin", "jardin coloré"},
	{"mer", "océan scintillant"},
	{"montagne", "montagnes majestueuses"},
	{"ville", "ville futuriste"},
	{"maison", "maison de conte"},
	{"animal", "créatures fantastiques"},
	{"voler", "vol onirique"},
	{"courir", "course magique"},
}

// PromptReformer rewrites a raw transcript into a short visual prompt.
type PromptReformer struct {
	llm ai.TextGenerator
}

func NewPromptReformer(llm ai.TextGenerator) *PromptReformer {
	return &PromptReformer{llm: llm}
}

// Reform asks the language model for a poetic visual description and
// falls back to keyword matching when the model is unavailable. The
// result is always capped at 120 characters.
func (r *PromptReformer) Reform(ctx context.Context, transcript string) string {
	if r.llm != nil {
		out, err := r.llm.Complete(ctx, ai.CompletionRequest{
			System:      rephraseSystemPrompt,
			User:        transcript,
			Temperature: rephraseTemperature,
			MaxTokens:   rephraseMaxTokens,
		})
		if err == nil && strings.TrimSpace(out) != "" {
			return truncatePrompt(strings.TrimSpace(out))
		}
		if err != nil {
			logger.Warn("prompt reformulation failed, using keyword fallback", zap.Error(err))
		}
	}
	metrics.RecordFallback("rephrase")
	return r.keywordFallback(transcript)
}

// keywordFallback builds a prompt from up to two recognized scene
// fragments plus a fixed style suffix.
func (r *PromptReformer) keywordFallback(transcript string) string {
	lower := strings.ToLower(transcript)
	var parts []string
	for _, ks := range keywordScenes {
		if strings.Contains(lower, ks.keyword) {
			parts = append(parts, ks.scene)
			if len(parts) == maxFallbackKeywords {
				break
			}
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "paysage de rêve surréaliste")
	}
	parts = append(parts, "couleurs vives")
	return truncatePrompt(strings.Join(parts, ", "))
}

func truncatePrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= maxPromptLen {
		return prompt
	}
	return string(runes[:maxPromptLen])
}

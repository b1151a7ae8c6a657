package dream

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"

	"dreamshare/pkg/ai"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/metrics"
)

// Dream emotion labels.
const (
	EmotionHappy      = "heureux"
	EmotionSad        = "triste"
	EmotionStressful  = "stressant"
	EmotionNeutral    = "neutre"
	EmotionExciting   = "excitant"
	EmotionMysterious = "mystérieux"
)

// EmotionInfo carries the display metadata of a label.
type EmotionInfo struct {
	Emoji string
	Color string
}

// Emotions lists every recognized label with its emoji and color.
var Emotions = map[string]EmotionInfo{
	EmotionHappy:      {Emoji: "😊", Color: "#10b981"},
	EmotionSad:        {Emoji: "😢", Color: "#6366f1"},
	EmotionStressful:  {Emoji: "😰", Color: "#f59e0b"},
	EmotionNeutral:    {Emoji: "😐", Color: "#6b7280"},
	EmotionExciting:   {Emoji: "🤩", Color: "#ef4444"},
	EmotionMysterious: {Emoji: "🔮", Color: "#8b5cf6"},
}

// EmotionResult is the outcome of classifying one transcript.
type EmotionResult struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Emoji      string  `json:"emoji"`
	Color      string  `json:"color"`
}

const emotionSystemPrompt = `Tu es un expert en analyse d'émotions de rêves. Analyse l'émotion dominante de ce rêve et réponds UNIQUEMENT avec un JSON valide selon ce format :

{
    "emotion": "heureux|triste|stressant|neutre|excitant|mystérieux",
    "confidence": 0.85,
    "reasoning": "Explication courte"
}

ÉMOTIONS DISPONIBLES :
- heureux : joie, bonheur, plaisir, satisfaction
- triste : tristesse, mélancolie, déception, chagrin
- stressant : peur, angoisse, cauchemar, danger réel
- neutre : quotidien, calme, banal, sans émotion forte
- excitant : aventure, action, sport, défi, compétition
- mystérieux : étrange, magique, surréel, inexplicable

IMPORTANT: Un combat de boxe = excitant (pas stressant). Une course = excitant. Un monstre qui attaque = stressant.

Réponds UNIQUEMENT en JSON, rien d'autre.`

// fallbackKeywords is checked in declaration order; the first matching
// keyword decides the label.
var fallbackKeywords = []struct {
	emotion  string
	keywords []string
}{
	{EmotionExciting, []string{"combat", "boxe", "course", "compétition", "sport", "match", "tournoi"}},
	{EmotionStressful, []string{"cauchemar", "monstre", "poursuivi", "attaqué", "peur", "terreur"}},
	{EmotionMysterious, []string{"magique", "vol", "voler", "transformé", "disparaître", "étrange"}},
	{EmotionHappy, []string{"joie", "rire", "bonheur", "merveilleux", "parfait", "génial"}},
	{EmotionSad, []string{"pleure", "larme", "triste", "mort", "perte", "abandon"}},
}

// EmotionClassifier tries the language model first, then the sentiment
// API, then plain keyword matching. It never fails.
type EmotionClassifier struct {
	llm       ai.TextGenerator
	sentiment ai.SentimentClassifier
}

func NewEmotionClassifier(llm ai.TextGenerator, sentiment ai.SentimentClassifier) *EmotionClassifier {
	return &EmotionClassifier{llm: llm, sentiment: sentiment}
}

func (c *EmotionClassifier) Classify(ctx context.Context, transcript string) EmotionResult {
	if strings.TrimSpace(transcript) == "" {
		return defaultResult()
	}

	if result, ok := c.classifyWithLLM(ctx, transcript); ok {
		return result
	}
	if result, ok := c.classifyWithSentiment(ctx, transcript); ok {
		return result
	}
	metrics.RecordFallback("emotion")
	return classifyWithKeywords(transcript)
}

func (c *EmotionClassifier) classifyWithLLM(ctx context.Context, transcript string) (EmotionResult, bool) {
	if c.llm == nil {
		return EmotionResult{}, false
	}
	out, err := c.llm.Complete(ctx, ai.CompletionRequest{
		System:      emotionSystemPrompt,
		User:        "Rêve: " + transcript,
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil {
		logger.Warn("llm emotion analysis failed", zap.Error(err))
		return EmotionResult{}, false
	}

	// Some models wrap the JSON in a markdown code fence.
	cleaned := strings.ReplaceAll(out, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var parsed struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		logger.Warn("llm emotion response was not valid JSON", zap.Error(err))
		return EmotionResult{}, false
	}

	emotion := parsed.Emotion
	confidence := parsed.Confidence
	if _, known := Emotions[emotion]; !known {
		emotion = EmotionNeutral
		confidence = 0.5
	}
	return buildResult(emotion, round2(confidence), "llm"), true
}

// classifyWithSentiment maps a coarse sentiment label onto the dream
// emotions and refines it with contextual keywords.
func (c *EmotionClassifier) classifyWithSentiment(ctx context.Context, transcript string) (EmotionResult, bool) {
	if c.sentiment == nil {
		return EmotionResult{}, false
	}
	label, score, err := c.sentiment.Classify(ctx, transcript)
	if err != nil {
		logger.Warn("sentiment analysis failed", zap.Error(err))
		return EmotionResult{}, false
	}

	emotion := EmotionNeutral
	switch strings.ToLower(label) {
	case "negative", "label_0":
		emotion = EmotionSad
	case "neutral", "label_1":
		emotion = EmotionNeutral
	case "positive", "label_2":
		emotion = EmotionHappy
	}

	lower := strings.ToLower(transcript)
	switch {
	case emotion == EmotionHappy && containsAnyWord(lower, "combat", "course", "aventure", "action"):
		emotion = EmotionExciting
	case emotion == EmotionSad && containsAnyWord(lower, "magique", "étrange", "surréel"):
		emotion = EmotionMysterious
	case containsAnyWord(lower, "cauchemar", "monstre", "peur", "terreur"):
		emotion = EmotionStressful
	}

	return buildResult(emotion, round2(score), "sentiment"), true
}

func classifyWithKeywords(transcript string) EmotionResult {
	lower := strings.ToLower(transcript)
	for _, group := range fallbackKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				return buildResult(group.emotion, 0.7, "keywords")
			}
		}
	}
	return defaultResult()
}

func defaultResult() EmotionResult {
	return buildResult(EmotionNeutral, 0.5, "default")
}

func buildResult(emotion string, confidence float64, method string) EmotionResult {
	info := Emotions[emotion]
	return EmotionResult{
		Emotion:    emotion,
		Confidence: confidence,
		Method:     method,
		Emoji:      info.Emoji,
		Color:      info.Color,
	}
}

func containsAnyWord(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DistributionLabels is the fixed label set of a dream's emotional
// breakdown.
var DistributionLabels = []string{"Joie", "Anxiété", "Tristesse", "Colère", "Peur", "Surprise", "Neutre"}

const distributionSystemPrompt = `Tu es un expert en analyse émotionnelle de rêves. Évalue l'intensité de chaque émotion dans ce rêve sur une échelle de 0 à 10 et réponds UNIQUEMENT avec un JSON valide :

{"Joie": 0, "Anxiété": 0, "Tristesse": 0, "Colère": 0, "Peur": 0, "Surprise": 0, "Neutre": 0}

Réponds UNIQUEMENT en JSON, rien d'autre.`

// distributionSeed maps a dominant emotion to the label that anchors
// the offline breakdown.
var distributionSeed = map[string]string{
	EmotionHappy:      "Joie",
	EmotionSad:        "Tristesse",
	EmotionStressful:  "Anxiété",
	EmotionNeutral:    "Neutre",
	EmotionExciting:   "Surprise",
	EmotionMysterious: "Surprise",
}

// Distribution scores the transcript against the seven breakdown labels
// and normalizes the result to percentages. When the language model is
// unavailable the dominant emotion from the keyword tier seeds the raw
// scores instead.
func (c *EmotionClassifier) Distribution(ctx context.Context, transcript string) map[string]int {
	if c.llm != nil {
		out, err := c.llm.Complete(ctx, ai.CompletionRequest{
			System:      distributionSystemPrompt,
			User:        "Rêve: " + transcript,
			Temperature: 0.3,
			MaxTokens:   200,
		})
		if err == nil {
			cleaned := strings.ReplaceAll(out, "```json", "")
			cleaned = strings.ReplaceAll(cleaned, "```", "")

			var raw map[string]float64
			if jsonErr := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &raw); jsonErr == nil {
				return NormalizeDistribution(raw)
			}
			logger.Warn("distribution response was not valid JSON")
		} else {
			logger.Warn("distribution analysis failed", zap.Error(err))
		}
	}

	metrics.RecordFallback("distribution")
	dominant := classifyWithKeywords(transcript)
	raw := map[string]float64{distributionSeed[dominant.Emotion]: dominant.Confidence * 10}
	return NormalizeDistribution(raw)
}

// NormalizeDistribution converts raw 0 to 10 scores into percentages
// summing to exactly 100. A lone nonzero score would otherwise swamp
// the rest, so the zero entries are lifted to 5 first. Any rounding
// remainder lands on the largest share; ties go to the earliest label.
func NormalizeDistribution(scores map[string]float64) map[string]int {
	adjusted := make(map[string]float64, len(DistributionLabels))
	nonZero := 0
	for _, label := range DistributionLabels {
		v := scores[label]
		adjusted[label] = v
		if v > 0 {
			nonZero++
		}
	}
	if nonZero == 1 {
		for label, v := range adjusted {
			if v == 0 {
				adjusted[label] = 5
			}
		}
	}

	scaled := make(map[string]float64, len(adjusted))
	total := 0.0
	for label, v := range adjusted {
		e := math.Exp(v / 10)
		scaled[label] = e
		total += e
	}

	result := make(map[string]int, len(scaled))
	sum := 0
	for _, label := range DistributionLabels {
		p := int(math.Round(scaled[label] / total * 100))
		result[label] = p
		sum += p
	}

	if correction := 100 - sum; correction != 0 {
		largest := DistributionLabels[0]
		for _, label := range DistributionLabels[1:] {
			if result[label] > result[largest] {
				largest = label
			}
		}
		result[largest] += correction
	}
	return result
}

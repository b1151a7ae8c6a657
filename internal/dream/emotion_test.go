package dream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmotionClassifierLLM(t *testing.T) {
	ctx := context.Background()

	t.Run("plain json response", func(t *testing.T) {
		c := NewEmotionClassifier(&stubLLM{out: `{"emotion": "excitant", "confidence": 0.91}`}, nil)
		result := c.Classify(ctx, "Une course effrénée dans les nuages")
		assert.Equal(t, EmotionExciting, result.Emotion)
		assert.Equal(t, 0.91, result.Confidence)
		assert.Equal(t, "llm", result.Method)
		assert.Equal(t, "🤩", result.Emoji)
		assert.Equal(t, "#ef4444", result.Color)
	})

	t.Run("code fenced json is tolerated", func(t *testing.T) {
		out := "```json\n{\"emotion\": \"mystérieux\", \"confidence\": 0.8}\n```"
		c := NewEmotionClassifier(&stubLLM{out: out}, nil)
		result := c.Classify(ctx, "Des brumes étranges flottaient")
		assert.Equal(t, EmotionMysterious, result.Emotion)
		assert.Equal(t, "llm", result.Method)
	})

	t.Run("unknown label degrades to neutre", func(t *testing.T) {
		c := NewEmotionClassifier(&stubLLM{out: `{"emotion": "furieux", "confidence": 0.9}`}, nil)
		result := c.Classify(ctx, "Un récit quelconque de rêve")
		assert.Equal(t, EmotionNeutral, result.Emotion)
		assert.Equal(t, 0.5, result.Confidence)
	})

	t.Run("invalid json falls through to next tier", func(t *testing.T) {
		c := NewEmotionClassifier(&stubLLM{out: "désolé, je ne peux pas"}, &stubSentiment{label: "positive", score: 0.88})
		result := c.Classify(ctx, "Un moment de pur bonheur")
		assert.Equal(t, "sentiment", result.Method)
	})
}

func TestEmotionClassifierSentiment(t *testing.T) {
	ctx := context.Background()
	llmDown := &stubLLM{err: errors.New("api down")}

	tests := []struct {
		name       string
		label      string
		transcript string
		want       string
	}{
		{"positive maps to heureux", "positive", "Un très beau moment paisible", EmotionHappy},
		{"negative maps to triste", "negative", "Tout était gris et lourd", EmotionSad},
		{"neutral maps to neutre", "neutral", "Une journée tout à fait banale", EmotionNeutral},
		{"raw label_2 maps to heureux", "LABEL_2", "Un très beau moment paisible", EmotionHappy},
		{"positive action becomes excitant", "positive", "Une grande aventure pleine d'action", EmotionExciting},
		{"negative magic becomes mystérieux", "negative", "Un monde magique et sombre", EmotionMysterious},
		{"nightmare words force stressant", "neutral", "Un cauchemar avec un monstre", EmotionStressful},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewEmotionClassifier(llmDown, &stubSentiment{label: tt.label, score: 0.8})
			result := c.Classify(ctx, tt.transcript)
			assert.Equal(t, tt.want, result.Emotion)
			assert.Equal(t, "sentiment", result.Method)
		})
	}
}

func TestEmotionClassifierKeywordFallback(t *testing.T) {
	ctx := context.Background()
	c := NewEmotionClassifier(nil, nil)

	tests := []struct {
		name       string
		transcript string
		want       string
		confidence float64
		method     string
	}{
		{"boxing is exciting", "Un combat de boxe intense", EmotionExciting, 0.7, "keywords"},
		{"nightmare is stressful", "Un cauchemar terrifiant", EmotionStressful, 0.7, "keywords"},
		{"flight is mysterious", "Je pouvais voler librement", EmotionMysterious, 0.7, "keywords"},
		{"laughter is happy", "On n'arrêtait pas de rire", EmotionHappy, 0.7, "keywords"},
		{"tears are sad", "Une larme coulait doucement", EmotionSad, 0.7, "keywords"},
		{"nothing recognized", "Une promenade quelconque", EmotionNeutral, 0.5, "default"},
		{"empty transcript", "   ", EmotionNeutral, 0.5, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(ctx, tt.transcript)
			assert.Equal(t, tt.want, result.Emotion)
			assert.Equal(t, tt.confidence, result.Confidence)
			assert.Equal(t, tt.method, result.Method)
		})
	}
}

func TestNormalizeDistribution(t *testing.T) {
	t.Run("always sums to one hundred", func(t *testing.T) {
		scores := map[string]float64{"Joie": 8, "Peur": 3, "Neutre": 2, "Surprise": 6}
		dist := NormalizeDistribution(scores)

		sum := 0
		for _, label := range DistributionLabels {
			sum += dist[label]
		}
		assert.Equal(t, 100, sum)
		assert.Greater(t, dist["Joie"], dist["Peur"])
	})

	t.Run("single nonzero score lifts the rest", func(t *testing.T) {
		dist := NormalizeDistribution(map[string]float64{"Joie": 10})
		assert.Equal(t, 22, dist["Joie"])
		for _, label := range DistributionLabels[1:] {
			assert.Equal(t, 13, dist[label])
		}
	})

	t.Run("all zero scores split evenly", func(t *testing.T) {
		dist := NormalizeDistribution(map[string]float64{})
		// 7 x 14 leaves a remainder of 2, assigned to the first label.
		assert.Equal(t, 16, dist["Joie"])
		for _, label := range DistributionLabels[1:] {
			assert.Equal(t, 14, dist[label])
		}
		sum := 0
		for _, v := range dist {
			sum += v
		}
		assert.Equal(t, 100, sum)
	})

	t.Run("llm scores drive the breakdown", func(t *testing.T) {
		c := NewEmotionClassifier(&stubLLM{out: `{"Joie": 9, "Peur": 2, "Neutre": 1}`}, nil)
		dist := c.Distribution(context.Background(), "Un rêve rempli de bonheur")
		sum := 0
		for _, v := range dist {
			sum += v
		}
		assert.Equal(t, 100, sum)
		assert.Greater(t, dist["Joie"], dist["Peur"])
	})

	t.Run("offline breakdown is seeded by the dominant emotion", func(t *testing.T) {
		c := NewEmotionClassifier(nil, nil)
		dist := c.Distribution(context.Background(), "Un cauchemar avec un monstre")
		sum := 0
		for _, v := range dist {
			sum += v
		}
		assert.Equal(t, 100, sum)
		for _, label := range DistributionLabels {
			if label == "Anxiété" {
				continue
			}
			assert.Greater(t, dist["Anxiété"], dist[label])
		}
	})

	t.Run("unknown labels are ignored", func(t *testing.T) {
		dist := NormalizeDistribution(map[string]float64{"Joie": 5, "Extase": 9})
		_, hasExtra := dist["Extase"]
		assert.False(t, hasExtra)
		assert.Len(t, dist, len(DistributionLabels))
	})
}

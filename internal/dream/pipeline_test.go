package dream

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamshare/pkg/ai"
)

type stubSTT struct {
	text string
	err  error
}

func (s *stubSTT) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return s.text, s.err
}

type stubLLM struct {
	out string
	err error
}

func (s *stubLLM) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	return s.out, s.err
}

type stubImage struct {
	data []byte
	mime string
	err  error
}

func (s *stubImage) Name() string { return "stub" }

func (s *stubImage) Generate(ctx context.Context, prompt string, width, height int) ([]byte, string, error) {
	return s.data, s.mime, s.err
}

type stubSentiment struct {
	label string
	score float64
	err   error
}

func (s *stubSentiment) Classify(ctx context.Context, text string) (string, float64, error) {
	return s.label, s.score, s.err
}

func TestAudioValidator(t *testing.T) {
	v := NewAudioValidator(10)

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  bool
	}{
		{"valid wav", "dream.wav", 1024, false},
		{"valid mp3 uppercase ext", "dream.MP3", 1024, false},
		{"valid webm", "recording.webm", 5 * 1024 * 1024, false},
		{"empty file", "dream.wav", 0, true},
		{"over size limit", "dream.wav", 11 * 1024 * 1024, true},
		{"unsupported extension", "dream.txt", 1024, true},
		{"no extension", "dream", 1024, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.filename, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTranscriberFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("provider result wins", func(t *testing.T) {
		tr := NewTranscriber(&stubSTT{text: "  J'ai rêvé d'un lac gelé.  "})
		assert.Equal(t, "J'ai rêvé d'un lac gelé.", tr.Transcribe(ctx, []byte("audio"), "dream.wav"))
	})

	t.Run("test filename gets the test transcript", func(t *testing.T) {
		tr := NewTranscriber(nil)
		got := tr.Transcribe(ctx, []byte("audio"), "my_test_recording.wav")
		assert.Equal(t, fallbackTranscriptTest, got)
	})

	t.Run("other filenames get the default transcript", func(t *testing.T) {
		tr := NewTranscriber(&stubSTT{err: errors.New("api down")})
		got := tr.Transcribe(ctx, []byte("audio"), "dream.wav")
		assert.Equal(t, fallbackTranscriptDefault, got)
	})

	t.Run("blank provider output falls back", func(t *testing.T) {
		tr := NewTranscriber(&stubSTT{text: "   "})
		got := tr.Transcribe(ctx, []byte("audio"), "dream.wav")
		assert.Equal(t, fallbackTranscriptDefault, got)
	})
}

func TestPromptReformer(t *testing.T) {
	ctx := context.Background()

	t.Run("llm output trimmed and capped", func(t *testing.T) {
		long := strings.Repeat("a", 150)
		r := NewPromptReformer(&stubLLM{out: long})
		got := r.Reform(ctx, "peu importe le récit ici")
		assert.Len(t, []rune(got), 120)
	})

	t.Run("keyword fallback picks two scenes", func(t *testing.T) {
		r := NewPromptReformer(&stubLLM{err: errors.New("api down")})
		got := r.Reform(ctx, "Je volais au-dessus d'une forêt près d'un jardin")
		assert.Equal(t, "forêt magique, jardin coloré, couleurs vives", got)
	})

	t.Run("no keywords means default scene", func(t *testing.T) {
		r := NewPromptReformer(nil)
		got := r.Reform(ctx, "quelque chose sans indices")
		assert.Equal(t, "paysage de rêve surréaliste, couleurs vives", got)
	})
}

func TestPlaceholderImage(t *testing.T) {
	decode := func(t *testing.T, uri string) string {
		t.Helper()
		require.True(t, strings.HasPrefix(uri, "data:image/svg+xml;base64,"))
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/svg+xml;base64,"))
		require.NoError(t, err)
		return string(raw)
	}

	t.Run("theme colors follow the prompt", func(t *testing.T) {
		svg := decode(t, PlaceholderImage("deep blue ocean waves"))
		assert.Contains(t, svg, "#2196F3")
		assert.Contains(t, svg, "#21CBF3")
	})

	t.Run("default gradient without theme words", func(t *testing.T) {
		svg := decode(t, PlaceholderImage("abstract dream"))
		assert.Contains(t, svg, "#667eea")
		assert.Contains(t, svg, "#764ba2")
	})

	t.Run("moon adds a circle, night adds a star", func(t *testing.T) {
		svg := decode(t, PlaceholderImage("moon over a night sky"))
		assert.Contains(t, svg, `<circle cx="512" cy="300" r="100"`)
		assert.Contains(t, svg, "<polygon")
	})

	t.Run("long captions are cut at sixty characters", func(t *testing.T) {
		long := strings.Repeat("x", 80)
		svg := decode(t, PlaceholderImage(long))
		assert.Contains(t, svg, strings.Repeat("x", 60)+" ...")
		assert.NotContains(t, svg, strings.Repeat("x", 61))
	})
}

func TestImageSynthesizerProviderChain(t *testing.T) {
	ctx := context.Background()
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 1100)...)

	t.Run("first working provider wins", func(t *testing.T) {
		s := NewImageSynthesizer(
			&stubImage{err: errors.New("quota exceeded")},
			&stubImage{data: png, mime: "image/png"},
		)
		uri := s.Synthesize(ctx, "une forêt enchantée")
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	})

	t.Run("all providers failing yields the placeholder", func(t *testing.T) {
		s := NewImageSynthesizer(&stubImage{err: errors.New("down")})
		uri := s.Synthesize(ctx, "une forêt enchantée")
		assert.True(t, strings.HasPrefix(uri, "data:image/svg+xml;base64,"))
	})

	t.Run("no providers at all", func(t *testing.T) {
		s := NewImageSynthesizer()
		uri := s.Synthesize(ctx, "rien ne marche")
		assert.True(t, strings.HasPrefix(uri, "data:image/svg+xml;base64,"))
	})
}

func TestPipelineDegradesToFallbacks(t *testing.T) {
	p := NewPipeline(
		NewAudioValidator(10),
		NewTranscriber(nil),
		NewPromptReformer(nil),
		NewImageSynthesizer(),
		NewEmotionClassifier(nil, nil),
	)

	result, err := p.Process(context.Background(), []byte("fake audio"), "dream.wav")
	require.NoError(t, err)

	assert.Equal(t, fallbackTranscriptDefault, result.Transcription)
	// "jardin" and "mer" (inside "merveilleux") are the first two matches.
	assert.Equal(t, "jardin coloré, océan scintillant, couleurs vives", result.ImprovedPrompt)
	assert.True(t, strings.HasPrefix(result.GeneratedImage, "data:image/svg+xml;base64,"))
	assert.Equal(t, EmotionHappy, result.Emotion.Emotion)
	assert.Equal(t, "keywords", result.Emotion.Method)
}

func TestPipelineRejectsInvalidAudio(t *testing.T) {
	p := NewPipeline(
		NewAudioValidator(1),
		NewTranscriber(nil),
		NewPromptReformer(nil),
		NewImageSynthesizer(),
		NewEmotionClassifier(nil, nil),
	)

	t.Run("oversized upload", func(t *testing.T) {
		_, err := p.Process(context.Background(), make([]byte, 2*1024*1024), "dream.wav")
		assert.Error(t, err)
	})

	t.Run("bad extension", func(t *testing.T) {
		_, err := p.Process(context.Background(), []byte("audio"), "dream.pdf")
		assert.Error(t, err)
	})
}

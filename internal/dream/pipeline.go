package dream

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dreamshare/pkg/logger"
)

// Result holds every artifact produced from one recording.
type Result struct {
	Transcription  string        `json:"transcription"`
	ImprovedPrompt string        `json:"improvedPrompt"`
	GeneratedImage string        `json:"generatedImage"`
	Emotion        EmotionResult `json:"emotion"`
}

// Pipeline chains validation, transcription, prompt reformulation,
// image synthesis and emotion analysis. Every stage past validation
// degrades instead of failing, so a valid upload always yields a full
// Result.
type Pipeline struct {
	validator   *AudioValidator
	transcriber *Transcriber
	reformer    *PromptReformer
	synthesizer *ImageSynthesizer
	classifier  *EmotionClassifier
}

func NewPipeline(
	validator *AudioValidator,
	transcriber *Transcriber,
	reformer *PromptReformer,
	synthesizer *ImageSynthesizer,
	classifier *EmotionClassifier,
) *Pipeline {
	return &Pipeline{
		validator:   validator,
		transcriber: transcriber,
		reformer:    reformer,
		synthesizer: synthesizer,
		classifier:  classifier,
	}
}

// Process runs the full chain. Image synthesis and emotion analysis
// only depend on earlier stages, not on each other, so they run
// concurrently.
func (p *Pipeline) Process(ctx context.Context, audio []byte, filename string) (*Result, error) {
	start := time.Now()
	if err := p.validator.Validate(filename, int64(len(audio))); err != nil {
		return nil, err
	}

	transcription := p.transcriber.Transcribe(ctx, audio, filename)
	prompt := p.reformer.Reform(ctx, transcription)

	result := &Result{
		Transcription:  transcription,
		ImprovedPrompt: prompt,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.GeneratedImage = p.synthesizer.Synthesize(ctx, prompt)
	}()
	go func() {
		defer wg.Done()
		result.Emotion = p.classifier.Classify(ctx, transcription)
	}()
	wg.Wait()

	logger.Info("dream processed",
		zap.String("file", filename),
		zap.String("emotion", result.Emotion.Emotion),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

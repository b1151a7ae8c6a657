package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIConfig configures the OpenAI-compatible capability endpoints.
// BaseURL may point at any compatible gateway (Groq, Mistral, ...).
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	WhisperModel string
	ChatModel    string
	Language     string
}

// OpenAIHandler implements SpeechToText and TextGenerator against an
// OpenAI-compatible API.
type OpenAIHandler struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *logrus.Logger
}

// NewOpenAIHandler creates a handler for the configured endpoint.
func NewOpenAIHandler(cfg OpenAIConfig, logger *logrus.Logger) *OpenAIHandler {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "fr"
	}
	return &OpenAIHandler{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}
}

// Transcribe sends the audio to the whisper endpoint.
func (h *OpenAIHandler) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if h.cfg.APIKey == "" {
		return "", fmt.Errorf("missing API key for speech-to-text")
	}
	resp, err := h.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    h.cfg.WhisperModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: h.cfg.Language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	h.logger.WithField("chars", len(resp.Text)).Debug("transcription completed")
	return resp.Text, nil
}

// Complete runs one chat completion.
func (h *OpenAIHandler) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if h.cfg.APIKey == "" {
		return "", fmt.Errorf("missing API key for text generation")
	}
	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: h.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIImageHandler is the paid image-generation provider, used between
// the free endpoint and the local placeholder when a key is configured.
type OpenAIImageHandler struct {
	client *openai.Client
	logger *logrus.Logger
}

// NewOpenAIImageHandler creates the paid image provider.
func NewOpenAIImageHandler(apiKey string, logger *logrus.Logger) *OpenAIImageHandler {
	return &OpenAIImageHandler{
		client: openai.NewClient(apiKey),
		logger: logger,
	}
}

func (h *OpenAIImageHandler) Name() string { return "openai" }

// Generate renders the prompt and returns decoded image bytes.
func (h *OpenAIImageHandler) Generate(ctx context.Context, prompt string, width, height int) ([]byte, string, error) {
	size := openai.CreateImageSize1024x1024
	if width <= 512 && height <= 512 {
		size = openai.CreateImageSize512x512
	}
	resp, err := h.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		N:              1,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, "", fmt.Errorf("image request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, "", fmt.Errorf("image request returned no data")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image payload: %w", err)
	}
	mime, ok := SniffImage(raw)
	if !ok {
		return nil, "", fmt.Errorf("image payload is not a recognized image")
	}
	h.logger.WithField("bytes", len(raw)).Debug("image generated")
	return raw, mime, nil
}

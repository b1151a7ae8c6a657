package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultSentimentURL = "https://api-inference.huggingface.co/models/cardiffnlp/twitter-xlm-roberta-base-sentiment"

// HuggingFaceHandler implements SentimentClassifier against the hosted
// inference API. The model answers one of negative/neutral/positive (or
// the LABEL_0/1/2 aliases some revisions emit).
type HuggingFaceHandler struct {
	client *http.Client
	apiKey string
	apiURL string
	logger *logrus.Logger
}

// NewHuggingFaceHandler creates the sentiment provider. An empty apiURL
// uses the public inference endpoint.
func NewHuggingFaceHandler(apiKey, apiURL string, logger *logrus.Logger) *HuggingFaceHandler {
	if apiURL == "" {
		apiURL = defaultSentimentURL
	}
	return &HuggingFaceHandler{
		client: &http.Client{Timeout: 10 * time.Second},
		apiKey: apiKey,
		apiURL: apiURL,
		logger: logger,
	}
}

type sentimentScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify returns the best-scoring 3-way sentiment label.
func (h *HuggingFaceHandler) Classify(ctx context.Context, text string) (string, float64, error) {
	if h.apiKey == "" {
		return "", 0, fmt.Errorf("missing API key for sentiment classification")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"inputs":  text,
		"options": map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("sentiment endpoint returned status %d", resp.StatusCode)
	}

	var results [][]sentimentScore
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", 0, fmt.Errorf("decoding sentiment response: %w", err)
	}
	if len(results) == 0 || len(results[0]) == 0 {
		return "", 0, fmt.Errorf("sentiment response is empty")
	}

	best := results[0][0]
	for _, s := range results[0][1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	h.logger.WithFields(logrus.Fields{"label": best.Label, "score": best.Score}).Debug("sentiment classified")
	return best.Label, best.Score, nil
}

package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

var promptCleaner = regexp.MustCompile(`[^\w\s,-]`)

// PollinationsHandler is the free hosted text-to-image provider. It tries
// a small set of URL variants in order; each response must pass the
// magic-number check before it is accepted.
type PollinationsHandler struct {
	client  *http.Client
	baseURL string
	logger  *logrus.Logger
}

// NewPollinationsHandler creates the free image provider. baseURL is
// overridable for tests; empty means the public endpoint.
func NewPollinationsHandler(baseURL string, logger *logrus.Logger) *PollinationsHandler {
	if baseURL == "" {
		baseURL = "https://pollinations.ai"
	}
	return &PollinationsHandler{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		logger:  logger,
	}
}

func (h *PollinationsHandler) Name() string { return "pollinations" }

// Generate fetches an image for the prompt. Special characters are
// stripped before URL-encoding, matching what the endpoint tolerates.
func (h *PollinationsHandler) Generate(ctx context.Context, prompt string, width, height int) ([]byte, string, error) {
	clean := promptCleaner.ReplaceAllString(prompt, "")
	encoded := url.PathEscape("dreamy surreal artistic: " + clean)

	urls := []string{
		fmt.Sprintf("%s/p/%s?width=%d&height=%d&nologo=true", h.baseURL, encoded, width, height),
		fmt.Sprintf("%s/prompt/%s?width=%d&height=%d", h.baseURL, encoded, width, height),
		fmt.Sprintf("%s/p/%s?width=512&height=512&nologo=true", h.baseURL, encoded),
	}

	var lastErr error
	for attempt, imageURL := range urls {
		raw, mime, err := h.fetch(ctx, imageURL)
		if err == nil {
			return raw, mime, nil
		}
		lastErr = err
		h.logger.WithError(err).WithField("attempt", attempt+1).Debug("image fetch failed")
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", fmt.Errorf("all image endpoints failed: %w", lastErr)
}

func (h *PollinationsHandler) fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "DreamShare/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	mime, ok := SniffImage(raw)
	if !ok {
		return nil, "", fmt.Errorf("response is not a valid image (%d bytes)", len(raw))
	}
	return raw, mime, nil
}

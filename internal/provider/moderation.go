package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Moderator is the engine's view of the content moderation provider.
type Moderator interface {
	Moderate(ctx context.Context, text string) (bool, error)
}

// ModerationClient checks text against the provider's moderation endpoint.
// Gameplay must not stall on moderation outages, so callers treat any error
// as not-flagged (fail open).
type ModerationClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewModerationClient(apiKey string, opts ...ModerationOption) *ModerationClient {
	c := &ModerationClient{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default().With("component", "moderation_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ModerationOption func(*ModerationClient)

func WithModerationEndpoint(baseURL string) ModerationOption {
	return func(c *ModerationClient) {
		c.baseURL = baseURL
	}
}

func WithModerationTimeout(timeout time.Duration) ModerationOption {
	return func(c *ModerationClient) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithModerationLogger(logger *slog.Logger) ModerationOption {
	return func(c *ModerationClient) {
		c.logger = logger
	}
}

// Moderate reports whether the text was flagged. Errors indicate provider
// trouble, not flagged content.
func (c *ModerationClient) Moderate(ctx context.Context, text string) (bool, error) {
	startTime := time.Now()

	body, err := json.Marshal(map[string]string{"input": text})
	if err != nil {
		return false, fmt.Errorf("marshaling moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/moderations", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("creating moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("reading moderation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, classifyStatus(resp.StatusCode, string(respBody))
	}

	var response struct {
		Results []struct {
			Flagged bool `json:"flagged"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return false, fmt.Errorf("parsing moderation response: %w", err)
	}

	flagged := len(response.Results) > 0 && response.Results[0].Flagged
	c.logger.Debug("moderation check completed",
		"flagged", flagged,
		"text_length", len(text),
		"duration_ms", time.Since(startTime).Milliseconds())
	return flagged, nil
}

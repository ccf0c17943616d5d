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

// ImageRequest is one illustration attempt against a specific model
// configuration from the cascade.
type ImageRequest struct {
	Prompt  string
	Model   string
	Size    string
	Quality string
	Style   string
}

// ImageGenerator is the illustration pipeline's view of the image provider.
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (string, error)
}

// ImageClient talks to an OpenAI-compatible image generation endpoint and
// returns a hosted URL for the result.
type ImageClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewImageClient(apiKey string, opts ...ImageOption) *ImageClient {
	c := &ImageClient{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: slog.Default().With("component", "image_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ImageOption func(*ImageClient)

func WithImageEndpoint(baseURL string) ImageOption {
	return func(c *ImageClient) {
		c.baseURL = baseURL
	}
}

func WithImageTimeout(timeout time.Duration) ImageOption {
	return func(c *ImageClient) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithImageLogger(logger *slog.Logger) ImageOption {
	return func(c *ImageClient) {
		c.logger = logger
	}
}

// Generate produces one image and returns its URL. All failures surface as
// classified provider errors; the caller decides whether to fall through to
// the next configuration.
func (c *ImageClient) Generate(ctx context.Context, r ImageRequest) (string, error) {
	startTime := time.Now()

	requestBody := map[string]any{
		"model":  r.Model,
		"prompt": r.Prompt,
		"n":      1,
	}
	if r.Size != "" {
		requestBody["size"] = r.Size
	}
	if r.Quality != "" {
		requestBody["quality"] = r.Quality
	}
	if r.Style != "" {
		requestBody["style"] = r.Style
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshaling image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading image response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var response struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing image response: %w", err)
	}
	if len(response.Data) == 0 || response.Data[0].URL == "" {
		return "", fmt.Errorf("%w: no image in response", ErrProviderUnavailable)
	}

	c.logger.Info("image generated",
		"model", r.Model,
		"prompt_length", len(r.Prompt),
		"duration_ms", time.Since(startTime).Milliseconds())
	return response.Data[0].URL, nil
}

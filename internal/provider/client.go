// Package provider holds the HTTP clients for the external generation
// services: text completion, content moderation and image generation. The
// clients never assume a reply is well-formed; structural interpretation of
// text completions belongs to the schema package.
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

	"golang.org/x/time/rate"
)

// Completion is one text-generation result plus its token cost.
type Completion struct {
	Text       string
	TokenCount int
}

// TextGenerator is the narration generator's view of the text provider.
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (Completion, error)
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type Option func(*Client)

func WithRetry(maxRetries int) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		transport := c.httpClient.Transport
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: transport,
		}
	}
}

func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

func WithEndpoint(baseURL, model string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
		c.model = model
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		apiKey:    apiKey,
		baseURL:   "https://api.openai.com/v1",
		model:     "gpt-4o-mini",
		maxTokens: 2048,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		maxRetries: 2,
		limiter:    rate.NewLimiter(rate.Limit(1), 3),
		logger:     slog.Default().With("component", "text_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("text client initialized",
		"base_url", c.baseURL,
		"model", c.model,
		"max_retries", c.maxRetries,
		"rate_limit", fmt.Sprintf("%v req/s", c.limiter.Limit()))

	return c
}

// Complete sends one system+user prompt pair and returns the raw completion
// text. Retries transient failures with linear backoff; credential and
// request-shape errors surface immediately.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	requestID := fmt.Sprintf("gen_%d", time.Now().UnixNano())
	startTime := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("rate limit wait: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			c.logger.Debug("retry backoff",
				"request_id", requestID,
				"attempt", attempt,
				"backoff_seconds", backoff.Seconds())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Completion{}, ctx.Err()
			}
		}

		attemptStart := time.Now()
		c.logger.Debug("attempting text generation request",
			"request_id", requestID,
			"attempt", attempt,
			"system_prompt_length", len(systemPrompt),
			"user_prompt_length", len(userPrompt),
			"model", c.model)

		completion, err := c.doRequest(ctx, systemPrompt, userPrompt)
		if err == nil {
			c.logger.Info("text generation successful",
				"request_id", requestID,
				"attempt", attempt,
				"duration_ms", time.Since(attemptStart).Milliseconds(),
				"response_length", len(completion.Text),
				"total_tokens", completion.TokenCount,
				"total_duration_ms", time.Since(startTime).Milliseconds())
			return completion, nil
		}

		lastErr = err
		if !retryable(err) {
			c.logger.Error("text generation failed with non-retryable error",
				"request_id", requestID,
				"attempt", attempt,
				"error", err)
			return Completion{}, err
		}
		c.logger.Warn("text generation failed, will retry",
			"request_id", requestID,
			"attempt", attempt,
			"error", err)
	}

	c.logger.Error("text generation failed after max retries",
		"request_id", requestID,
		"max_retries", c.maxRetries,
		"total_duration_ms", time.Since(startTime).Milliseconds(),
		"last_error", lastErr)
	return Completion{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens":      c.maxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return Completion{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Completion{}, classifyStatus(resp.StatusCode, string(respBody))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return Completion{}, fmt.Errorf("parsing response: %w", err)
	}
	if len(response.Choices) == 0 {
		return Completion{}, fmt.Errorf("%w: no choices in response", ErrProviderUnavailable)
	}

	return Completion{
		Text:       response.Choices[0].Message.Content,
		TokenCount: response.Usage.TotalTokens,
	}, nil
}

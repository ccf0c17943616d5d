// Package illustration obtains an image for a narration turn by cascading
// across model configurations, retrying the whole cascade with backoff and
// caching successful results. Illustration failure is never fatal to a
// turn: the caller gets an empty URL plus a classified error record.
package illustration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/provider"
)

// ModelConfig is one rung of the illustration cascade.
type ModelConfig struct {
	Model   string
	Size    string
	Quality string
	Style   string
}

// DefaultCascade orders configurations best quality first, decreasing
// capability and cost.
func DefaultCascade() []ModelConfig {
	return []ModelConfig{
		{Model: "dall-e-3", Size: "1024x1024", Quality: "hd", Style: "vivid"},
		{Model: "dall-e-3", Size: "1024x1024", Quality: "standard", Style: "natural"},
		{Model: "dall-e-2", Size: "512x512"},
	}
}

const (
	maxPromptLength = 4000
	defaultAttempts = 3
	defaultBackoff  = time.Second
)

// Disallowed-content terms checked before any prompt reaches the provider.
var blockedTerms = []string{
	"gore", "nude", "nudity", "nsfw", "explicit", "graphic violence",
}

// Sequences that break the provider's prompt formatting.
var breakingSequences = []string{"```", "\x00"}

// Illustration is the pipeline's result: a URL on success, or an empty URL
// with a classified error when every configuration failed.
type Illustration struct {
	URL string
	Err *game.ImageGenerationError
}

// Pipeline drives the configuration cascade.
type Pipeline struct {
	client      provider.ImageGenerator
	moderator   provider.Moderator
	cascade     []ModelConfig
	cache       *Cache
	group       singleflight.Group
	maxAttempts int
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

type PipelineOption func(*Pipeline)

func WithCascade(cascade []ModelConfig) PipelineOption {
	return func(p *Pipeline) {
		if len(cascade) > 0 {
			p.cascade = cascade
		}
	}
}

func WithCache(cache *Cache) PipelineOption {
	return func(p *Pipeline) {
		p.cache = cache
	}
}

// WithModerator enables a moderation check during prompt validation.
func WithModerator(m provider.Moderator) PipelineOption {
	return func(p *Pipeline) {
		p.moderator = m
	}
}

func WithAttempts(attempts int, backoffBase time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
		if backoffBase > 0 {
			p.backoffBase = backoffBase
		}
	}
}

func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func NewPipeline(client provider.ImageGenerator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:      client,
		cascade:     DefaultCascade(),
		cache:       NewCache(100, time.Hour),
		maxAttempts: defaultAttempts,
		backoffBase: defaultBackoff,
		sleep:       sleepCtx,
		logger:      slog.Default().With("component", "illustration_pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Obtain returns an illustration for the prompt, consulting the cache
// first. Concurrent requests for the same (prompt, style) share one
// provider call. Failure yields an empty URL and a classified error record,
// never an aborted turn.
func (p *Pipeline) Obtain(ctx context.Context, prompt, style string, adventure *game.AdventureDetails) Illustration {
	if strings.TrimSpace(prompt) == "" {
		return Illustration{Err: &game.ImageGenerationError{
			ErrorType:    game.ImageErrorUnknown,
			ErrorMessage: "empty image prompt",
			Timestamp:    time.Now().UTC(),
		}}
	}

	if url, ok := p.cache.Get(prompt, style); ok {
		return Illustration{URL: url}
	}

	key := cacheKey(prompt, style)
	result, _, _ := p.group.Do(key, func() (any, error) {
		// Re-check under singleflight: a concurrent caller may have
		// populated the cache while this call waited.
		if url, ok := p.cache.Get(prompt, style); ok {
			return Illustration{URL: url}, nil
		}
		ill := p.obtainWithRetry(ctx, prompt, style, adventure)
		if ill.URL != "" {
			p.cache.Set(prompt, style, ill.URL)
		}
		return ill, nil
	})
	return result.(Illustration)
}

// obtainWithRetry runs the whole cascade up to maxAttempts times with
// exponential backoff (base doubling per attempt).
func (p *Pipeline) obtainWithRetry(ctx context.Context, prompt, style string, adventure *game.AdventureDetails) Illustration {
	backoff := p.backoffBase
	var last Illustration
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			p.logger.Debug("retrying illustration cascade",
				"attempt", attempt,
				"backoff_seconds", backoff.Seconds())
			if err := p.sleep(ctx, backoff); err != nil {
				last.Err = classifyImageError(err, last.modelName())
				return last
			}
			backoff *= 2
		}

		last = p.runCascade(ctx, prompt, style, adventure)
		if last.URL != "" {
			return last
		}
	}
	p.logger.Warn("illustration failed after all attempts",
		"attempts", p.maxAttempts,
		"error_type", string(last.Err.ErrorType))
	return last
}

// runCascade tries each configuration in order, advancing on any failure.
func (p *Pipeline) runCascade(ctx context.Context, prompt, style string, adventure *game.AdventureDetails) Illustration {
	var lastErr error
	lastModel := ""
	for _, cfg := range p.cascade {
		enhanced := EnhancePrompt(prompt, style, adventure)
		lastModel = cfg.Model

		if err := p.validatePrompt(ctx, enhanced); err != nil {
			p.logger.Warn("prompt rejected before submission",
				"model", cfg.Model,
				"error", err)
			lastErr = err
			continue
		}

		url, err := p.client.Generate(ctx, provider.ImageRequest{
			Prompt:  enhanced,
			Model:   cfg.Model,
			Size:    cfg.Size,
			Quality: cfg.Quality,
			Style:   cfg.Style,
		})
		if err != nil {
			p.logger.Warn("illustration configuration failed, advancing",
				"model", cfg.Model,
				"error", err)
			lastErr = err
			continue
		}
		return Illustration{URL: url}
	}

	return Illustration{Err: classifyImageError(lastErr, lastModel)}
}

// validatePrompt enforces the submission rules: bounded length, no
// disallowed-content terms, no formatting-breaking sequences and an
// optional moderation check. Moderation outages fail open.
func (p *Pipeline) validatePrompt(ctx context.Context, prompt string) error {
	if len(prompt) > maxPromptLength {
		return fmt.Errorf("prompt too long (%d > %d)", len(prompt), maxPromptLength)
	}
	lower := strings.ToLower(prompt)
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return fmt.Errorf("prompt contains disallowed term %q", term)
		}
	}
	for _, seq := range breakingSequences {
		if strings.Contains(prompt, seq) {
			return errors.New("prompt contains formatting-breaking sequence")
		}
	}
	if p.moderator != nil {
		flagged, err := p.moderator.Moderate(ctx, prompt)
		if err != nil {
			p.logger.Warn("moderation unavailable for image prompt, failing open", "error", err)
		} else if flagged {
			return errors.New("prompt flagged by moderation")
		}
	}
	return nil
}

// EnhancePrompt applies the style prefix/suffix and, when adventure context
// is present, time-period/tone/environment modifiers.
func EnhancePrompt(prompt, style string, adventure *game.AdventureDetails) string {
	var b strings.Builder
	if prefix := stylePrefixes[style]; prefix != "" {
		b.WriteString(prefix)
	}
	b.WriteString(prompt)

	if adventure != nil {
		if tp := adventure.Setting.TimePeriod; tp != "" && tp != "unspecified" {
			fmt.Fprintf(&b, ", set in %s", tp)
		}
		if env := adventure.Setting.Environment; env != "" && env != "varied" {
			fmt.Fprintf(&b, ", %s environment", env)
		}
		if mod := toneModifiers[adventure.Style.Tone]; mod != "" {
			b.WriteString(mod)
		}
	}

	if suffix := styleSuffixes[style]; suffix != "" {
		b.WriteString(suffix)
	}
	return b.String()
}

var stylePrefixes = map[string]string{
	"fantasy_art":  "Fantasy art style: ",
	"comic":        "Comic book style: ",
	"watercolor":   "Watercolor painting of ",
	"photorealism": "Photorealistic render: ",
}

var styleSuffixes = map[string]string{
	"fantasy_art":  ", detailed digital painting, dramatic lighting",
	"comic":        ", bold ink lines, flat colors",
	"watercolor":   ", soft washes, textured paper",
	"photorealism": ", shallow depth of field, natural light",
}

var toneModifiers = map[string]string{
	"dark":         ", ominous shadows, muted palette",
	"lighthearted": ", bright colors, cheerful mood",
	"humorous":     ", whimsical details",
	"dramatic":     ", high contrast, cinematic framing",
}

func (i Illustration) modelName() string {
	if i.Err != nil {
		return i.Err.Model
	}
	return ""
}

// classifyImageError maps a provider failure to the error taxonomy carried
// on the turn record.
func classifyImageError(err error, model string) *game.ImageGenerationError {
	record := &game.ImageGenerationError{
		Model:     model,
		ErrorType: game.ImageErrorUnknown,
		Timestamp: time.Now().UTC(),
	}
	if err == nil {
		record.ErrorMessage = "no configuration produced an image"
		return record
	}
	record.ErrorMessage = err.Error()

	var reqErr *provider.RequestError
	var netErr net.Error
	switch {
	case errors.Is(err, provider.ErrRateLimited):
		record.ErrorType = game.ImageErrorRateLimit
	case errors.As(err, &reqErr):
		record.ErrorType = game.ImageErrorContentPolicy
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		record.ErrorType = game.ImageErrorNetwork
	}
	return record
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

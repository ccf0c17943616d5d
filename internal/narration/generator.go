// Package narration turns a composed prompt into a validated story
// continuation, absorbing malformed provider output and transient provider
// failures so a turn can always complete.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/prompt"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/provider"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/schema"
)

// DefaultFallbackNarration is substituted when the provider is unreachable
// and the caller supplied no alternative.
const DefaultFallbackNarration = "The AI encountered an error. Please try again."

// Result is one generation outcome. ProviderErr is set when a transient
// provider failure forced the fallback reply; the turn still completes.
type Result struct {
	Response    game.NarrationResponse
	Outcome     schema.ParseOutcome
	TokenCount  int
	ProviderErr error
}

// Generator calls the text provider and normalizes whatever comes back.
type Generator struct {
	client            provider.TextGenerator
	fallbackNarration string
	logger            *slog.Logger
}

type Option func(*Generator)

// WithFallbackNarration overrides the text substituted on provider outages.
func WithFallbackNarration(text string) Option {
	return func(g *Generator) {
		if text != "" {
			g.fallbackNarration = text
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

func NewGenerator(client provider.TextGenerator, opts ...Option) *Generator {
	g := &Generator{
		client:            client,
		fallbackNarration: DefaultFallbackNarration,
		logger:            slog.Default().With("component", "narration_generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a conforming narration reply for one turn.
//
// Malformed output is recovered locally and never surfaces as an error.
// Transient provider failures (rate limiting, timeouts, network) substitute
// the fallback narration so the turn completes; the underlying condition is
// reported in Result.ProviderErr. Credential and request-shape errors are
// returned to the caller: those are operator problems, not gameplay events.
func (g *Generator) Generate(ctx context.Context, p prompt.Prompt, currentLocation string) (Result, error) {
	completion, err := g.client.Complete(ctx, p.System+"\n\n"+p.Context, p.User)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrInvalidCredentials):
			return Result{}, fmt.Errorf("generating narration: %w", err)
		case isRequestError(err):
			return Result{}, fmt.Errorf("generating narration: %w", err)
		}

		g.logger.Warn("provider failure, substituting fallback narration",
			"location", currentLocation,
			"error", err)
		resp := game.NarrationResponse{
			Narration:    g.fallbackNarration,
			QuickActions: schema.DefaultQuickActions(),
		}
		return Result{Response: resp, Outcome: schema.ParseSynthetic, ProviderErr: err}, nil
	}

	resp, outcome := schema.ParseNarration(completion.Text, currentLocation)
	if outcome != schema.ParseStrict {
		g.logger.Warn("provider reply required recovery",
			"outcome", outcome.String(),
			"response_length", len(completion.Text))
	}

	// A validator pass can still leave narration empty (e.g. an object with
	// only quick_actions). Never hand an empty story to the player.
	if resp.Narration == "" {
		resp.Narration = schema.SyntheticNarration(currentLocation).Narration
	}

	g.logger.Info("narration generated",
		"outcome", outcome.String(),
		"narration_length", len(resp.Narration),
		"quick_actions", len(resp.QuickActions),
		"total_tokens", completion.TokenCount)

	return Result{Response: resp, Outcome: outcome, TokenCount: completion.TokenCount}, nil
}

// GenerateAdventure derives a full adventure definition from a free-text
// premise using the same generation path. When no structured data can be
// extracted at all, schema.ErrNoStructuredData is returned; supplying a
// stock fallback adventure is the caller's job.
func (g *Generator) GenerateAdventure(ctx context.Context, p prompt.Prompt) (game.AdventureDetails, error) {
	completion, err := g.client.Complete(ctx, p.System+"\n\n"+p.Context, p.User)
	if err != nil {
		return game.AdventureDetails{}, fmt.Errorf("generating adventure definition: %w", err)
	}

	adv, outcome, err := schema.ParseAdventure(completion.Text)
	if err != nil {
		g.logger.Error("adventure reply had no structured data",
			"response_length", len(completion.Text))
		return game.AdventureDetails{}, err
	}
	g.logger.Info("adventure definition generated",
		"outcome", outcome.String(),
		"title", adv.Title,
		"total_tokens", completion.TokenCount)
	return adv, nil
}

func isRequestError(err error) bool {
	var reqErr *provider.RequestError
	return errors.As(err, &reqErr)
}

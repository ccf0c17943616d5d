// Package engine orchestrates one game turn end to end: input checks,
// moderation, prompt composition, narration, world-state application and
// illustration, finishing with a persisted immutable turn record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/config"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/illustration"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/narration"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/prompt"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/provider"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/schema"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/storage"
)

// prologueInput is the synthetic player input recorded on turn zero.
const prologueInput = "BEGIN_ADVENTURE"

// genreStyles maps a session genre to the illustration art style.
var genreStyles = map[string]string{
	"fantasy": "fantasy_art",
	"sci-fi":  "photorealism",
	"horror":  "photorealism",
	"mystery": "comic",
}

// Engine drives the turn pipeline against its collaborators.
type Engine struct {
	store     *storage.SessionStore
	narrator  *narration.Generator
	images    *illustration.Pipeline
	moderator provider.Moderator
	limits    config.Limits
	logger    *slog.Logger
}

type Option func(*Engine)

// WithModerator enables the pre-generation moderation check on player
// input. Without one, input goes straight to composition.
func WithModerator(m provider.Moderator) Option {
	return func(e *Engine) {
		e.moderator = m
	}
}

func WithLimits(limits config.Limits) Option {
	return func(e *Engine) {
		e.limits = limits
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(store *storage.SessionStore, narrator *narration.Generator, images *illustration.Pipeline, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		narrator: narrator,
		images:   images,
		limits:   config.DefaultLimits(),
		logger:   slog.Default().With("component", "turn_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessTurn runs one player action through the full pipeline and persists
// the resulting turn. Player-facing rejections come back as *InputError;
// anything else is an operational failure.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, userID, input string) (game.TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return game.TurnResult{}, &InputError{Reason: ReasonEmpty, Message: "please enter an action"}
	}
	if n := utf8.RuneCountInString(input); n > e.limits.MaxInputLength {
		return game.TurnResult{}, &InputError{
			Reason:  ReasonTooLong,
			Message: fmt.Sprintf("input is %d characters, the limit is %d", n, e.limits.MaxInputLength),
		}
	}

	session, err := e.store.LoadSession(ctx, sessionID, userID)
	if err != nil {
		return game.TurnResult{}, err
	}
	if session.NextTurnNumber() >= e.limits.MaxTurnsPerSession {
		return game.TurnResult{}, &InputError{
			Reason:  ReasonTurnLimit,
			Message: "this adventure has reached its maximum length, start a new one to continue playing",
		}
	}

	sanitized := sanitizeInput(input)
	if sanitized == "" {
		return game.TurnResult{}, &InputError{Reason: ReasonEmpty, Message: "please enter an action"}
	}

	if err := e.moderateInput(ctx, session, sanitized); err != nil {
		return game.TurnResult{}, err
	}

	return e.generateTurn(ctx, session, sanitized)
}

// moderateInput checks the player's text when a moderator is configured
// and the session's safety filter is on. Moderation outages fail open: a
// safety-service hiccup must not stall the game, and the provider applies
// its own filters downstream.
func (e *Engine) moderateInput(ctx context.Context, session *game.Session, input string) error {
	if e.moderator == nil {
		return nil
	}
	if !session.SafetyFilter {
		e.logger.Debug("safety filter disabled, skipping moderation",
			"session_id", session.ID)
		return nil
	}
	mctx, cancel := context.WithTimeout(ctx, e.limits.ModerationTimeout)
	defer cancel()

	flagged, err := e.moderator.Moderate(mctx, input)
	if err != nil {
		e.logger.Warn("moderation unavailable, continuing without check", "error", err)
		return nil
	}
	if flagged {
		return &InputError{
			Reason:  ReasonFlagged,
			Message: "that action can't be used here, please try something else",
		}
	}
	return nil
}

// generateTurn runs composition, narration, state application and
// illustration for one already-validated input and persists the turn.
func (e *Engine) generateTurn(ctx context.Context, session *game.Session, input string) (game.TurnResult, error) {
	p := prompt.Compose(prompt.Context{
		Genre:       session.Genre,
		Adventure:   session.Adventure,
		World:       session.WorldState,
		History:     session.LastTurns(e.limits.HistoryTurns),
		PlayerInput: input,
	})

	nctx, cancel := context.WithTimeout(ctx, e.limits.NarrationTimeout)
	genStart := time.Now()
	result, err := e.narrator.Generate(nctx, p, session.WorldState.Location)
	cancel()
	if err != nil {
		return game.TurnResult{}, fmt.Errorf("processing turn: %w", err)
	}
	generationMS := time.Since(genStart).Milliseconds()

	next := game.ApplyChanges(session.WorldState, result.Response.StateChanges)
	diff := game.Diff(session.WorldState, next)

	ictx, cancel := context.WithTimeout(ctx, e.limits.IllustrationTimeout)
	imageStart := time.Now()
	ill := e.images.Obtain(ictx, result.Response.ImagePrompt, e.artStyle(session), session.Adventure)
	cancel()
	imageMS := time.Since(imageStart).Milliseconds()

	turn := game.Turn{
		ID:                 uuid.NewString(),
		TurnNumber:         session.NextTurnNumber(),
		PlayerInput:        input,
		Narration:          result.Response.Narration,
		ImagePrompt:        result.Response.ImagePrompt,
		ImageURL:           ill.URL,
		QuickActions:       result.Response.QuickActions,
		WorldStateSnapshot: next.Clone(),
		Timestamp:          time.Now().UTC(),
		Metadata: game.ProcessingMetadata{
			GenerationMS: generationMS,
			ImageMS:      imageMS,
			TokenCount:   result.TokenCount,
		},
		ImageError: ill.Err,
	}

	if err := e.store.SaveTurn(ctx, session, turn); err != nil {
		return game.TurnResult{}, fmt.Errorf("processing turn: %w", err)
	}

	e.logger.Info("turn processed",
		"session_id", session.ID,
		"turn_number", turn.TurnNumber,
		"outcome", result.Outcome.String(),
		"location", next.Location,
		"image_ok", ill.URL != "",
		"generation_ms", generationMS,
		"image_ms", imageMS)
	if result.ProviderErr != nil {
		e.logger.Warn("turn completed on fallback narration",
			"session_id", session.ID,
			"turn_number", turn.TurnNumber,
			"provider_error", result.ProviderErr)
	}

	return game.TurnResult{Turn: turn, Diff: diff}, nil
}

// CreateSession starts a new adventure and generates its prologue as turn
// zero. A supplied adventure definition is validated structurally first.
func (e *Engine) CreateSession(ctx context.Context, userID, genre string, adventure *game.AdventureDetails) (*game.Session, game.TurnResult, error) {
	if adventure != nil {
		if err := adventure.Validate(); err != nil {
			return nil, game.TurnResult{}, err
		}
	}

	session := game.NewSession(userID, genre, adventure)
	e.logger.Info("session created",
		"session_id", session.ID,
		"user_id", userID,
		"genre", genre,
		"custom_adventure", adventure != nil)

	result, err := e.generateTurn(ctx, session, prologueInput)
	if err != nil {
		return nil, game.TurnResult{}, fmt.Errorf("generating prologue: %w", err)
	}
	return session, result, nil
}

// CreateAdventureFromPrompt derives a full adventure definition from a
// player's free-text premise. When the provider reply yields no structured
// data at all, a stock adventure built around the premise is returned
// instead of an error.
func (e *Engine) CreateAdventureFromPrompt(ctx context.Context, premise, genre string) (*game.AdventureDetails, error) {
	premise = strings.TrimSpace(premise)
	if premise == "" {
		return nil, &InputError{Reason: ReasonEmpty, Message: "please describe your adventure"}
	}
	if n := utf8.RuneCountInString(premise); n > e.limits.MaxInputLength {
		return nil, &InputError{
			Reason:  ReasonTooLong,
			Message: fmt.Sprintf("premise is %d characters, the limit is %d", n, e.limits.MaxInputLength),
		}
	}

	nctx, cancel := context.WithTimeout(ctx, e.limits.NarrationTimeout)
	defer cancel()

	adv, err := e.narrator.GenerateAdventure(nctx, prompt.ComposeAdventure(premise, genre))
	if err != nil {
		if errors.Is(err, schema.ErrNoStructuredData) {
			e.logger.Warn("adventure derivation yielded no structured data, using stock adventure",
				"genre", genre)
			return stockAdventure(premise, genre), nil
		}
		return nil, fmt.Errorf("creating adventure: %w", err)
	}
	return &adv, nil
}

// SavedGames lists the user's stored sessions.
func (e *Engine) SavedGames(ctx context.Context, userID string) ([]storage.SavedGame, error) {
	return e.store.LoadSavedGames(ctx, userID)
}

// LoadSession fetches one of the user's sessions for resumption.
func (e *Engine) LoadSession(ctx context.Context, sessionID, userID string) (*game.Session, error) {
	return e.store.LoadSession(ctx, sessionID, userID)
}

func (e *Engine) artStyle(session *game.Session) string {
	if style, ok := genreStyles[session.Genre]; ok {
		return style
	}
	return "fantasy_art"
}

// stockAdventure is the generic definition substituted when derivation
// produced nothing usable. The premise survives as the description so the
// narration prompt still reflects the player's idea.
func stockAdventure(premise, genre string) *game.AdventureDetails {
	if genre == "" {
		genre = "fantasy"
	}
	return &game.AdventureDetails{
		Title:       "An Unexpected Journey",
		Description: premise,
		Setting: game.AdventureSetting{
			WorldDescription: fmt.Sprintf("A %s world shaped by the player's premise.", genre),
			TimePeriod:       "unspecified",
			Environment:      "varied",
			Locations:        []string{"the starting area"},
		},
		Characters: game.AdventureCast{
			PlayerRole: "an adventurer drawn into the story",
		},
		Plot: game.AdventurePlot{
			MainObjective:     "Uncover where the premise leads and see it through.",
			VictoryConditions: "The central mystery of the premise is resolved.",
		},
		Style: game.StylePreferences{
			Tone:       game.DefaultTone,
			Complexity: game.DefaultComplexity,
			Pacing:     game.DefaultPacing,
		},
	}
}

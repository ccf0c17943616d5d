// dungeon-server wires the turn pipeline against configured providers and
// runs an interactive adventure loop on stdin/stdout. It is bootstrap glue;
// serving the pipeline over a network transport is a separate concern.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/config"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/engine"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/illustration"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/narration"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/provider"
	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dungeon-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		genre   = flag.String("genre", "fantasy", "adventure genre")
		user    = flag.String("user", "local", "user id for session ownership")
		resume  = flag.String("resume", "", "session id to resume")
		premise = flag.String("premise", "", "derive a custom adventure from this premise")
		verbose = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	eng := buildEngine(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID, err := startOrResume(ctx, eng, *user, *genre, *resume, *premise)
	if err != nil {
		return err
	}

	return turnLoop(ctx, eng, sessionID, *user)
}

func buildEngine(cfg *config.Config) *engine.Engine {
	apiKey := cfg.Providers.APIKey

	text := provider.NewClient(apiKey,
		provider.WithEndpoint(cfg.Providers.TextBaseURL, cfg.Providers.TextModel),
		provider.WithRetry(cfg.Limits.MaxRetries),
		provider.WithTimeout(cfg.Limits.NarrationTimeout),
		provider.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize),
	)
	images := provider.NewImageClient(apiKey,
		provider.WithImageEndpoint(cfg.Providers.ImageBaseURL),
		provider.WithImageTimeout(cfg.Limits.IllustrationTimeout),
	)

	opts := []engine.Option{engine.WithLimits(cfg.Limits)}
	var moderator provider.Moderator
	if cfg.Providers.ModerationEnabled {
		moderator = provider.NewModerationClient(apiKey,
			provider.WithModerationEndpoint(cfg.Providers.ModerationBaseURL),
			provider.WithModerationTimeout(cfg.Limits.ModerationTimeout),
		)
		opts = append(opts, engine.WithModerator(moderator))
	}

	pipelineOpts := []illustration.PipelineOption{
		illustration.WithCache(illustration.NewCache(cfg.Limits.ImageCache.MaxEntries, cfg.Limits.ImageCache.TTL)),
	}
	if moderator != nil {
		pipelineOpts = append(pipelineOpts, illustration.WithModerator(moderator))
	}
	pipeline := illustration.NewPipeline(images, pipelineOpts...)

	store := storage.NewSessionStore(storage.NewFileSystem(cfg.Paths.DataDir))
	return engine.New(store, narration.NewGenerator(text), pipeline, opts...)
}

func startOrResume(ctx context.Context, eng *engine.Engine, user, genre, resume, premise string) (string, error) {
	if resume != "" {
		session, err := eng.LoadSession(ctx, resume, user)
		if err != nil {
			return "", err
		}
		if n := len(session.Turns); n > 0 {
			printTurn(session.Turns[n-1].Narration, session.Turns[n-1].QuickActions)
		}
		return session.ID, nil
	}

	var adventure *game.AdventureDetails
	if premise != "" {
		adv, err := eng.CreateAdventureFromPrompt(ctx, premise, genre)
		if err != nil {
			return "", err
		}
		adventure = adv
		fmt.Printf("=== %s ===\n", adv.Title)
	}

	session, result, err := eng.CreateSession(ctx, user, genre, adventure)
	if err != nil {
		return "", err
	}
	printTurn(result.Turn.Narration, result.Turn.QuickActions)
	return session.ID, nil
}

func turnLoop(ctx context.Context, eng *engine.Engine, sessionID, user string) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "quit" || input == "exit" {
			fmt.Printf("Session saved. Resume with -resume %s\n", sessionID)
			return nil
		}

		result, err := eng.ProcessTurn(ctx, sessionID, user, input)
		if err != nil {
			var inputErr *engine.InputError
			if errors.As(err, &inputErr) {
				fmt.Println(inputErr.Message)
				continue
			}
			return err
		}
		printTurn(result.Turn.Narration, result.Turn.QuickActions)
		if result.Turn.ImageURL != "" {
			fmt.Printf("[illustration] %s\n", result.Turn.ImageURL)
		}
	}
}

func printTurn(narrationText string, quickActions []string) {
	fmt.Printf("\n%s\n", narrationText)
	if len(quickActions) > 0 {
		fmt.Printf("\nSuggestions: %s\n", strings.Join(quickActions, " | "))
	}
	fmt.Println()
}

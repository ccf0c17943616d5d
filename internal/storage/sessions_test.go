package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	return NewSessionStore(NewFileSystem(t.TempDir()))
}

func testSession(userID string) *game.Session {
	s := game.NewSession(userID, "fantasy", nil)
	s.WorldState.Location = "The Rusty Anchor Tavern"
	return s
}

func TestSaveAndLoadSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("user-1")
	turn := game.Turn{
		ID:          "t1",
		TurnNumber:  0,
		PlayerInput: "BEGIN_ADVENTURE",
		Narration:   "You wake in a tavern.",
		WorldStateSnapshot: game.WorldState{
			Location:  "The Rusty Anchor Tavern",
			Inventory: []string{"rusty key"},
		},
		Timestamp: time.Now().UTC(),
	}

	if err := store.SaveTurn(ctx, session, turn); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	loaded, err := store.LoadSession(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if len(loaded.Turns) != 1 {
		t.Fatalf("loaded %d turns, want 1", len(loaded.Turns))
	}
	if loaded.Turns[0].Narration != "You wake in a tavern." {
		t.Errorf("narration = %q", loaded.Turns[0].Narration)
	}
	if loaded.WorldState.Location != "The Rusty Anchor Tavern" {
		t.Errorf("world state not advanced to snapshot: %q", loaded.WorldState.Location)
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadSession(context.Background(), "nope", "user-1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestLoadSessionWrongUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("user-1")
	if err := store.SaveTurn(ctx, session, game.Turn{ID: "t1"}); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	_, err := store.LoadSession(ctx, session.ID, "user-2")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("cross-user load: error = %v, want ErrSessionNotFound", err)
	}
}

func TestSaveTurnAppends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("user-1")
	for i := 0; i < 3; i++ {
		turn := game.Turn{TurnNumber: i}
		if err := store.SaveTurn(ctx, session, turn); err != nil {
			t.Fatalf("SaveTurn(%d) error = %v", i, err)
		}
	}

	loaded, err := store.LoadSession(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if len(loaded.Turns) != 3 {
		t.Errorf("loaded %d turns, want 3", len(loaded.Turns))
	}
	if loaded.Turns[2].TurnNumber != 2 {
		t.Errorf("last turn number = %d, want 2", loaded.Turns[2].TurnNumber)
	}
}

func TestLoadSavedGames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	genres := []string{"fantasy", "sci-fi", "horror"}
	for _, genre := range genres {
		session := game.NewSession("user-1", genre, nil)
		session.WorldState.Location = "somewhere in " + genre
		if err := store.SaveTurn(ctx, session, game.Turn{
			TurnNumber:         0,
			WorldStateSnapshot: session.WorldState,
		}); err != nil {
			t.Fatalf("SaveTurn(%s) error = %v", genre, err)
		}
	}
	// Another user's session must not leak into the listing.
	other := game.NewSession("user-2", "mystery", nil)
	if err := store.SaveTurn(ctx, other, game.Turn{}); err != nil {
		t.Fatalf("SaveTurn(other) error = %v", err)
	}

	games, err := store.LoadSavedGames(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadSavedGames() error = %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("listed %d games, want 3", len(games))
	}
	seen := make(map[string]bool)
	for _, g := range games {
		seen[g.Genre] = true
		if g.TurnCount != 1 {
			t.Errorf("genre %s: turn count = %d, want 1", g.Genre, g.TurnCount)
		}
	}
	for _, genre := range genres {
		if !seen[genre] {
			t.Errorf("genre %s missing from listing", genre)
		}
	}
}

func TestLoadSavedGamesEmpty(t *testing.T) {
	store := newTestStore(t)

	games, err := store.LoadSavedGames(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LoadSavedGames() error = %v", err)
	}
	if len(games) != 0 {
		t.Errorf("listed %d games, want 0", len(games))
	}
}

func TestLoadSavedGamesSkipsCorruptFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("user-1")
	if err := store.SaveTurn(ctx, session, game.Turn{}); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}
	if err := store.storage.Save(ctx, "sessions/user-1/broken.json", []byte("{not json")); err != nil {
		t.Fatalf("Save(corrupt) error = %v", err)
	}

	games, err := store.LoadSavedGames(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadSavedGames() error = %v", err)
	}
	if len(games) != 1 {
		t.Errorf("listed %d games, want 1 (corrupt file skipped)", len(games))
	}
}

func TestFileSystemRejectsTraversal(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	ctx := context.Background()

	cases := []string{
		"../outside.json",
		"sessions/../../etc/passwd",
		"/etc/passwd",
	}
	for _, path := range cases {
		if err := fs.Save(ctx, path, []byte("x")); err == nil {
			t.Errorf("Save(%q) succeeded, want error", path)
		}
		if _, err := fs.Load(ctx, path); err == nil {
			t.Errorf("Load(%q) succeeded, want error", path)
		}
	}
}

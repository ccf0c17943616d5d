package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
)

// ErrSessionNotFound is returned when a session does not exist or belongs
// to a different user.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists game sessions as JSON documents, one file per
// session scoped under the owning user.
type SessionStore struct {
	storage Storage
	logger  *slog.Logger
}

func NewSessionStore(storage Storage) *SessionStore {
	return &SessionStore{
		storage: storage,
		logger:  slog.Default().With("component", "session_store"),
	}
}

func sessionPath(userID, sessionID string) string {
	return fmt.Sprintf("sessions/%s/%s.json", userID, sessionID)
}

// LoadSession fetches one session. Ownership is enforced by path scoping:
// a session saved for another user simply does not exist for this one.
func (s *SessionStore) LoadSession(ctx context.Context, sessionID, userID string) (*game.Session, error) {
	data, err := s.storage.Load(ctx, sessionPath(userID, sessionID))
	if err != nil {
		s.logger.Debug("session load miss",
			"session_id", sessionID,
			"user_id", userID,
			"error", err)
		return nil, ErrSessionNotFound
	}

	var session game.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	return &session, nil
}

// SaveTurn appends the turn to the session and persists the whole session
// document. Only fully assembled turns reach this point.
func (s *SessionStore) SaveTurn(ctx context.Context, session *game.Session, turn game.Turn) error {
	session.Turns = append(session.Turns, turn)
	session.WorldState = turn.WorldStateSnapshot
	session.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", session.ID, err)
	}
	if err := s.storage.Save(ctx, sessionPath(session.UserID, session.ID), data); err != nil {
		return fmt.Errorf("saving session %s: %w", session.ID, err)
	}

	s.logger.Info("turn saved",
		"session_id", session.ID,
		"turn_number", turn.TurnNumber,
		"turns_total", len(session.Turns))
	return nil
}

// SavedGame is the listing entry for one stored session.
type SavedGame struct {
	SessionID string    `json:"session_id"`
	Genre     string    `json:"genre"`
	Title     string    `json:"title,omitempty"`
	TurnCount int       `json:"turn_count"`
	Location  string    `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadSavedGames lists all of a user's sessions, loading session files
// concurrently with a bounded worker count.
func (s *SessionStore) LoadSavedGames(ctx context.Context, userID string) ([]SavedGame, error) {
	paths, err := s.storage.List(ctx, fmt.Sprintf("sessions/%s/*.json", userID))
	if err != nil {
		return nil, fmt.Errorf("listing sessions for %s: %w", userID, err)
	}

	var mu sync.Mutex
	games := make([]SavedGame, 0, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			data, err := s.storage.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			var session game.Session
			if err := json.Unmarshal(data, &session); err != nil {
				// A corrupt save should not hide the rest of the list.
				s.logger.Warn("skipping undecodable session file",
					"path", path,
					"error", err)
				return nil
			}
			entry := SavedGame{
				SessionID: session.ID,
				Genre:     session.Genre,
				TurnCount: len(session.Turns),
				Location:  session.WorldState.Location,
				UpdatedAt: session.UpdatedAt,
			}
			if session.Adventure != nil {
				entry.Title = session.Adventure.Title
			}
			mu.Lock()
			games = append(games, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("saved games listed",
		"user_id", userID,
		"count", len(games))
	return games, nil
}

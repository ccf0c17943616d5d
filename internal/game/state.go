package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorldState is the mutable simulation state carried between turns. A turn
// receives the previous snapshot as read-only input and produces exactly one
// new snapshot; nothing else crosses the turn boundary.
type WorldState struct {
	Location       string         `json:"location"`
	Inventory      []string       `json:"inventory"`
	NPCs           map[string]NPC `json:"npcs"`
	Flags          map[string]any `json:"flags"`
	CurrentChapter string         `json:"current_chapter"`
}

// NPC is a named character the player has encountered.
type NPC struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Disposition string `json:"disposition,omitempty"`
	Location    string `json:"location,omitempty"`
}

// NewWorldState returns the starting state for a fresh session.
func NewWorldState(location string) WorldState {
	if location == "" {
		location = "the starting area"
	}
	return WorldState{
		Location:       location,
		Inventory:      []string{},
		NPCs:           map[string]NPC{},
		Flags:          map[string]any{},
		CurrentChapter: "Chapter 1",
	}
}

// Clone returns a deep copy so the new turn can mutate freely without
// touching the prior snapshot.
func (w WorldState) Clone() WorldState {
	out := w
	out.Inventory = append([]string(nil), w.Inventory...)
	out.NPCs = make(map[string]NPC, len(w.NPCs))
	for k, v := range w.NPCs {
		out.NPCs[k] = v
	}
	out.Flags = make(map[string]any, len(w.Flags))
	for k, v := range w.Flags {
		out.Flags[k] = v
	}
	return out
}

// CoerceInventory normalizes an untrusted inventory value. Inventory must
// always be a sequence; a scalar that leaked in from a malformed payload is
// wrapped as a one-element slice of its string form.
func CoerceInventory(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string(nil), val...)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if s := Stringify(item); s != "" {
				items = append(items, s)
			}
		}
		return items
	default:
		if s := Stringify(val); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

// Stringify converts a JSON-decoded scalar to its display string. Composite
// values fall back to fmt formatting so nothing is silently dropped.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; print integers without a decimal
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Session groups the turns and world state of one playthrough.
type Session struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Genre        string            `json:"genre"`
	Adventure    *AdventureDetails `json:"adventure,omitempty"`
	Turns        []Turn            `json:"turns"`
	WorldState   WorldState        `json:"world_state"`
	SafetyFilter bool              `json:"safety_filter"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewSession creates an empty session for the given user and genre.
func NewSession(userID, genre string, adventure *AdventureDetails) *Session {
	now := time.Now().UTC()
	location := "the starting area"
	if adventure != nil && len(adventure.Setting.Locations) > 0 {
		location = adventure.Setting.Locations[0]
	}
	return &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Genre:        genre,
		Adventure:    adventure,
		Turns:        []Turn{},
		WorldState:   NewWorldState(location),
		SafetyFilter: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NextTurnNumber returns the number the next turn will carry. The prologue
// is turn 0.
func (s *Session) NextTurnNumber() int {
	return len(s.Turns)
}

// LastTurns returns up to n most recent turns, oldest first.
func (s *Session) LastTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

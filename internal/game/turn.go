package game

import "time"

// Turn is one player-action/provider-response cycle. It is immutable once
// assembled; the snapshot is taken after state changes were applied.
type Turn struct {
	ID                 string                `json:"id"`
	TurnNumber         int                   `json:"turn_number"`
	PlayerInput        string                `json:"player_input"`
	Narration          string                `json:"narration"`
	ImagePrompt        string                `json:"image_prompt"`
	ImageURL           string                `json:"image_url"`
	QuickActions       []string              `json:"quick_actions"`
	WorldStateSnapshot WorldState            `json:"world_state_snapshot"`
	Timestamp          time.Time             `json:"timestamp"`
	Metadata           ProcessingMetadata    `json:"processing_metadata"`
	ImageError         *ImageGenerationError `json:"image_error,omitempty"`
}

// ProcessingMetadata records per-turn generation costs.
type ProcessingMetadata struct {
	GenerationMS int64 `json:"generation_ms"`
	ImageMS      int64 `json:"image_ms"`
	TokenCount   int   `json:"token_count"`
}

// ImageErrorType classifies why illustration generation ultimately failed.
type ImageErrorType string

const (
	ImageErrorRateLimit     ImageErrorType = "rate_limit"
	ImageErrorContentPolicy ImageErrorType = "content_policy"
	ImageErrorNetwork       ImageErrorType = "network"
	ImageErrorUnknown       ImageErrorType = "unknown"
)

// ImageGenerationError is attached to a turn when every illustration
// configuration failed. It is informational, never fatal to the turn.
type ImageGenerationError struct {
	Model        string         `json:"model"`
	ErrorType    ImageErrorType `json:"error_type"`
	ErrorMessage string         `json:"error_message"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NarrationResponse is the provider's structured reply for one turn. It is
// transient: the raw provider payload is always normalized by the schema
// validator before a NarrationResponse is handed to the engine.
type NarrationResponse struct {
	Narration    string       `json:"narration"`
	ImagePrompt  string       `json:"image_prompt"`
	QuickActions []string     `json:"quick_actions"`
	StateChanges StateChanges `json:"state_changes"`
}

// StateChanges is the delta the provider proposes for the world state.
// All fields are optional; absent fields leave the state untouched.
type StateChanges struct {
	Location  string         `json:"location,omitempty"`
	Inventory []string       `json:"inventory,omitempty"`
	Flags     map[string]any `json:"flags,omitempty"`
}

// TurnResult is what the engine hands back to its caller: the assembled
// turn plus the diff against the previous snapshot.
type TurnResult struct {
	Turn Turn      `json:"turn"`
	Diff StateDiff `json:"world_state_changes"`
}

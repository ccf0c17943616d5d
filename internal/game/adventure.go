package game

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// AdventureDetails describes a custom adventure, either authored by the
// player or derived from a free-text prompt via the generation path.
// Provider-derived payloads go through the schema validator first; player
// submissions are checked structurally with Validate before use.
type AdventureDetails struct {
	Title       string           `json:"title" validate:"required,min=1,max=200"`
	Description string           `json:"description" validate:"required,min=1,max=2000"`
	Setting     AdventureSetting `json:"setting" validate:"required"`
	Characters  AdventureCast    `json:"characters" validate:"required"`
	Plot        AdventurePlot    `json:"plot" validate:"required"`
	Style       StylePreferences `json:"style_preferences"`
}

type AdventureSetting struct {
	WorldDescription string   `json:"world_description" validate:"required,min=1"`
	TimePeriod       string   `json:"time_period" validate:"required,min=1"`
	Environment      string   `json:"environment" validate:"required,min=1"`
	SpecialRules     string   `json:"special_rules,omitempty"`
	Locations        []string `json:"locations,omitempty" validate:"max=20,dive,min=1"`
}

type AdventureCast struct {
	PlayerRole    string   `json:"player_role" validate:"required,min=1"`
	KeyNPCs       []string `json:"key_npcs" validate:"max=20,dive,min=1"`
	Relationships string   `json:"relationships,omitempty"`
}

type AdventurePlot struct {
	MainObjective     string   `json:"main_objective" validate:"required,min=1"`
	SecondaryGoals    []string `json:"secondary_goals" validate:"max=10,dive,min=1"`
	PlotHooks         []string `json:"plot_hooks" validate:"max=10,dive,min=1"`
	VictoryConditions string   `json:"victory_conditions" validate:"required,min=1"`
	EstimatedTurns    int      `json:"estimated_turns,omitempty" validate:"omitempty,min=1,max=500"`
	Themes            []string `json:"themes,omitempty" validate:"max=10,dive,min=1"`
}

// StylePreferences steer tone and pacing of generated narration. Values
// outside the known sets are normalized to defaults by the schema validator.
type StylePreferences struct {
	Tone       string `json:"tone" validate:"omitempty,oneof=serious humorous dramatic lighthearted dark"`
	Complexity string `json:"complexity" validate:"omitempty,oneof=simple moderate complex"`
	Pacing     string `json:"pacing" validate:"omitempty,oneof=slow moderate fast"`
}

const (
	DefaultTone       = "serious"
	DefaultComplexity = "moderate"
	DefaultPacing     = "moderate"
)

var adventureValidator = validator.New()

// Validate checks a player-submitted adventure definition structurally.
// Provider-derived payloads do not use this path; the schema validator has
// already substituted defaults for anything malformed.
func (a *AdventureDetails) Validate() error {
	if err := adventureValidator.Struct(a); err != nil {
		return fmt.Errorf("validating adventure definition: %w", err)
	}
	return nil
}

// Clone returns a detached copy, used when an adventure is published as a
// read-only template.
func (a *AdventureDetails) Clone() *AdventureDetails {
	if a == nil {
		return nil
	}
	out := *a
	out.Setting.Locations = append([]string(nil), a.Setting.Locations...)
	out.Characters.KeyNPCs = append([]string(nil), a.Characters.KeyNPCs...)
	out.Plot.SecondaryGoals = append([]string(nil), a.Plot.SecondaryGoals...)
	out.Plot.PlotHooks = append([]string(nil), a.Plot.PlotHooks...)
	out.Plot.Themes = append([]string(nil), a.Plot.Themes...)
	return &out
}

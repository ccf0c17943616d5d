// Package schema normalizes untrusted structured payloads coming back from
// the generation provider. Validation here is total: every function accepts
// any JSON-decoded value, never fails, and substitutes documented defaults
// for absent or wrong-typed fields. After one pass the rest of the pipeline
// can treat the value as trustworthy.
package schema

import (
	"strings"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
)

// DefaultQuickActions is substituted whenever a reply carries no usable
// quick actions.
func DefaultQuickActions() []string {
	return []string{"Look around", "Continue"}
}

const maxQuickActions = 5

// NormalizeNarration coerces an arbitrary decoded value into a conforming
// NarrationResponse. Unknown fields are ignored, missing fields default.
func NormalizeNarration(raw any) game.NarrationResponse {
	obj := asObject(raw)
	resp := game.NarrationResponse{
		Narration:    asString(obj["narration"]),
		ImagePrompt:  asString(obj["image_prompt"]),
		QuickActions: NormalizeQuickActions(obj["quick_actions"]),
		StateChanges: normalizeStateChanges(obj["state_changes"]),
	}
	return resp
}

// NormalizeQuickActions filters a candidate list down to non-empty strings,
// truncates to five entries and substitutes the defaults when nothing
// survives.
func NormalizeQuickActions(raw any) []string {
	var candidates []any
	switch v := raw.(type) {
	case []any:
		candidates = v
	case []string:
		candidates = make([]any, len(v))
		for i, s := range v {
			candidates[i] = s
		}
	}

	actions := make([]string, 0, maxQuickActions)
	for _, c := range candidates {
		s := strings.TrimSpace(game.Stringify(c))
		if s == "" {
			continue
		}
		actions = append(actions, s)
		if len(actions) == maxQuickActions {
			break
		}
	}
	if len(actions) == 0 {
		return DefaultQuickActions()
	}
	return actions
}

func normalizeStateChanges(raw any) game.StateChanges {
	obj := asObject(raw)
	changes := game.StateChanges{
		Location:  asString(obj["location"]),
		Inventory: game.CoerceInventory(obj["inventory"]),
	}
	if flags := asObject(obj["flags"]); len(flags) > 0 {
		changes.Flags = flags
	}
	return changes
}

// NormalizeAdventure coerces an arbitrary decoded value into a conforming
// AdventureDetails. Every field gets a usable value; style enums outside
// the known sets fall back to their documented defaults.
func NormalizeAdventure(raw any) game.AdventureDetails {
	obj := asObject(raw)
	setting := asObject(obj["setting"])
	characters := asObject(obj["characters"])
	plot := asObject(obj["plot"])
	style := asObject(obj["style_preferences"])

	adv := game.AdventureDetails{
		Title:       stringOr(obj["title"], "Untitled Adventure"),
		Description: stringOr(obj["description"], "An adventure awaits."),
		Setting: game.AdventureSetting{
			WorldDescription: stringOr(setting["world_description"], "A mysterious world."),
			TimePeriod:       stringOr(setting["time_period"], "unspecified"),
			Environment:      stringOr(setting["environment"], "varied"),
			SpecialRules:     asString(setting["special_rules"]),
			Locations:        asStringSlice(setting["locations"]),
		},
		Characters: game.AdventureCast{
			PlayerRole:    stringOr(characters["player_role"], "an adventurer"),
			KeyNPCs:       asStringSlice(characters["key_npcs"]),
			Relationships: asString(characters["relationships"]),
		},
		Plot: game.AdventurePlot{
			MainObjective:     stringOr(plot["main_objective"], "Explore and survive."),
			SecondaryGoals:    asStringSlice(plot["secondary_goals"]),
			PlotHooks:         asStringSlice(plot["plot_hooks"]),
			VictoryConditions: stringOr(plot["victory_conditions"], "Complete the main objective."),
			EstimatedTurns:    asInt(plot["estimated_turns"]),
			Themes:            asStringSlice(plot["themes"]),
		},
		Style: game.StylePreferences{
			Tone:       enumOr(style["tone"], game.DefaultTone, "serious", "humorous", "dramatic", "lighthearted", "dark"),
			Complexity: enumOr(style["complexity"], game.DefaultComplexity, "simple", "moderate", "complex"),
			Pacing:     enumOr(style["pacing"], game.DefaultPacing, "slow", "moderate", "fast"),
		},
	}
	return adv
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func stringOr(v any, fallback string) string {
	if s := asString(v); s != "" {
		return s
	}
	return fallback
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(game.Stringify(item)); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asInt(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

func enumOr(v any, fallback string, allowed ...string) string {
	s := strings.ToLower(asString(v))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return fallback
}

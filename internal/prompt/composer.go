// Package prompt builds provider-facing instructions. Composition is a pure
// function of session context, recent history and the player's input; it
// never mutates session state.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
)

// Context is everything the composer needs for one turn.
type Context struct {
	Genre       string
	Adventure   *game.AdventureDetails
	World       game.WorldState
	History     []game.Turn
	PlayerInput string
}

// Prompt is the ordered instruction blocks handed to the text provider.
type Prompt struct {
	System  string
	Context string
	User    string
}

const (
	historyTurns       = 3
	historyTruncateLen = 100
)

// responseSchema is the exact output shape the provider must emit; the
// schema validator and recovery extractor both assume these field names.
const responseSchema = `Respond with a single JSON object in exactly this shape:
{
  "narration": "2-4 paragraphs continuing the story",
  "image_prompt": "a short visual description of the current scene",
  "quick_actions": ["up to 5 short suggested actions"],
  "state_changes": {
    "location": "new location name, only if the player moved",
    "inventory": ["items gained this turn"],
    "flags": {"story_flag": "value"}
  }
}
Do not include any text outside the JSON object.`

// Compose builds the three instruction blocks for one turn.
func Compose(ctx Context) Prompt {
	return Prompt{
		System:  composeSystem(ctx),
		Context: composeContext(ctx),
		User:    ctx.PlayerInput,
	}
}

func composeSystem(ctx Context) string {
	var b strings.Builder

	b.WriteString("You are the dungeon master of an interactive text adventure. ")
	b.WriteString("You narrate vividly, react to player choices, and keep the world consistent.\n\n")

	if ctx.Adventure != nil {
		writeAdventureBrief(&b, ctx.Adventure)
	} else {
		genre := ctx.Genre
		if genre == "" {
			genre = "fantasy"
		}
		fmt.Fprintf(&b, "Genre: %s. Stay within the conventions of this genre.\n", genre)
	}

	writeContinuity(&b, ctx)

	b.WriteString("\n")
	b.WriteString(responseSchema)
	b.WriteString("\n\n")
	b.WriteString(styleInstructions(ctx))

	return b.String()
}

func writeAdventureBrief(b *strings.Builder, adv *game.AdventureDetails) {
	fmt.Fprintf(b, "Adventure: %s\n%s\n\n", adv.Title, adv.Description)
	fmt.Fprintf(b, "World: %s\nTime period: %s\nEnvironment: %s\n",
		adv.Setting.WorldDescription, adv.Setting.TimePeriod, adv.Setting.Environment)
	if adv.Setting.SpecialRules != "" {
		fmt.Fprintf(b, "Special rules: %s\n", adv.Setting.SpecialRules)
	}
	fmt.Fprintf(b, "The player is %s.\n", adv.Characters.PlayerRole)
	if len(adv.Characters.KeyNPCs) > 0 {
		fmt.Fprintf(b, "Key characters: %s\n", strings.Join(adv.Characters.KeyNPCs, ", "))
	}
	if adv.Characters.Relationships != "" {
		fmt.Fprintf(b, "Relationships: %s\n", adv.Characters.Relationships)
	}
	fmt.Fprintf(b, "Main objective: %s\n", adv.Plot.MainObjective)
	if len(adv.Plot.SecondaryGoals) > 0 {
		fmt.Fprintf(b, "Secondary goals: %s\n", strings.Join(adv.Plot.SecondaryGoals, "; "))
	}
	if len(adv.Plot.PlotHooks) > 0 {
		fmt.Fprintf(b, "Plot hooks to weave in: %s\n", strings.Join(adv.Plot.PlotHooks, "; "))
	}
	fmt.Fprintf(b, "Victory conditions: %s\n", adv.Plot.VictoryConditions)
	if len(adv.Plot.Themes) > 0 {
		fmt.Fprintf(b, "Themes: %s\n", strings.Join(adv.Plot.Themes, ", "))
	}
}

// writeContinuity lists what the player has already discovered so the
// provider does not contradict established facts.
func writeContinuity(b *strings.Builder, ctx Context) {
	if ctx.Adventure != nil && len(ctx.Adventure.Setting.Locations) > 0 {
		fmt.Fprintf(b, "Known locations: %s\n", strings.Join(ctx.Adventure.Setting.Locations, ", "))
	}
	if len(ctx.World.NPCs) > 0 {
		fmt.Fprintf(b, "Characters met so far: %s\n", strings.Join(sortedKeys(ctx.World.NPCs), ", "))
	}
}

// styleInstructions deterministically maps style preferences to closing
// instructions in the system block.
func styleInstructions(ctx Context) string {
	style := game.StylePreferences{
		Tone:       game.DefaultTone,
		Complexity: game.DefaultComplexity,
		Pacing:     game.DefaultPacing,
	}
	if ctx.Adventure != nil {
		if ctx.Adventure.Style.Tone != "" {
			style.Tone = ctx.Adventure.Style.Tone
		}
		if ctx.Adventure.Style.Complexity != "" {
			style.Complexity = ctx.Adventure.Style.Complexity
		}
		if ctx.Adventure.Style.Pacing != "" {
			style.Pacing = ctx.Adventure.Style.Pacing
		}
	}

	var parts []string
	switch style.Tone {
	case "humorous":
		parts = append(parts, "Keep the tone witty and playful.")
	case "dramatic":
		parts = append(parts, "Heighten tension and emotional stakes.")
	case "lighthearted":
		parts = append(parts, "Keep things warm and low-stakes.")
	case "dark":
		parts = append(parts, "Lean into a grim, foreboding atmosphere.")
	default:
		parts = append(parts, "Keep the tone grounded and serious.")
	}
	switch style.Complexity {
	case "simple":
		parts = append(parts, "Use plain language and straightforward choices.")
	case "complex":
		parts = append(parts, "Layer in subplots, ambiguity and consequences.")
	default:
		parts = append(parts, "Balance accessibility with meaningful choices.")
	}
	switch style.Pacing {
	case "fast":
		parts = append(parts, "Be concise and action-packed.")
	case "slow":
		parts = append(parts, "Linger on atmosphere and detail.")
	default:
		parts = append(parts, "Keep the story moving at a steady pace.")
	}
	return strings.Join(parts, " ")
}

func composeContext(ctx Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current location: %s\n", ctx.World.Location)
	fmt.Fprintf(&b, "Chapter: %s\n", ctx.World.CurrentChapter)
	if len(ctx.World.Inventory) > 0 {
		fmt.Fprintf(&b, "Inventory: %s\n", strings.Join(ctx.World.Inventory, ", "))
	} else {
		b.WriteString("Inventory: empty\n")
	}
	if len(ctx.World.NPCs) > 0 {
		fmt.Fprintf(&b, "Present characters: %s\n", strings.Join(sortedKeys(ctx.World.NPCs), ", "))
	}
	for _, k := range sortedKeys(ctx.World.Flags) {
		v := ctx.World.Flags[k]
		if v == nil || v == "" || v == false {
			continue
		}
		fmt.Fprintf(&b, "Flag %s: %s\n", k, game.Stringify(v))
	}

	history := ctx.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\nRecent events:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "- Player: %s | Story: %s\n", turn.PlayerInput, truncate(turn.Narration, historyTruncateLen))
		}
	}

	return b.String()
}

// sortedKeys returns map keys in a stable order so composition is a pure
// function of its inputs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncate cuts s to at most n runes, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

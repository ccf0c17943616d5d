package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
)

func TestComposeGenreSession(t *testing.T) {
	p := Compose(Context{
		Genre:       "horror",
		World:       game.NewWorldState("the old manor"),
		PlayerInput: "open the cellar door",
	})

	if !strings.Contains(p.System, "horror") {
		t.Error("system block should name the genre")
	}
	if !strings.Contains(p.System, "JSON object") {
		t.Error("system block should describe the output schema")
	}
	if !strings.Contains(p.Context, "the old manor") {
		t.Error("context block should state the current location")
	}
	if p.User != "open the cellar door" {
		t.Errorf("user block = %q, want raw player input", p.User)
	}
}

func TestComposeAdventureBrief(t *testing.T) {
	adv := &game.AdventureDetails{
		Title:       "The Sunken City",
		Description: "A drowned metropolis hides an archive.",
		Setting: game.AdventureSetting{
			WorldDescription: "A flooded world.",
			TimePeriod:       "far future",
			Environment:      "underwater",
			Locations:        []string{"Coral Plaza"},
		},
		Characters: game.AdventureCast{PlayerRole: "salvage diver", KeyNPCs: []string{"Captain Moss"}},
		Plot: game.AdventurePlot{
			MainObjective:     "Recover the archive core",
			VictoryConditions: "Surface with the core",
		},
	}
	p := Compose(Context{
		Adventure:   adv,
		World:       game.NewWorldState("Coral Plaza"),
		PlayerInput: "dive deeper",
	})

	for _, want := range []string{"The Sunken City", "far future", "salvage diver", "Captain Moss", "Recover the archive core", "Coral Plaza"} {
		if !strings.Contains(p.System, want) {
			t.Errorf("system block missing %q", want)
		}
	}
}

func TestComposeStyleInstructions(t *testing.T) {
	tests := []struct {
		name  string
		style game.StylePreferences
		want  string
	}{
		{"fast pacing", game.StylePreferences{Pacing: "fast"}, "concise and action-packed"},
		{"dark tone", game.StylePreferences{Tone: "dark"}, "grim"},
		{"simple complexity", game.StylePreferences{Complexity: "simple"}, "plain language"},
		{"defaults", game.StylePreferences{}, "grounded and serious"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := &game.AdventureDetails{Style: tt.style}
			p := Compose(Context{Adventure: adv, World: game.NewWorldState("")})
			if !strings.Contains(p.System, tt.want) {
				t.Errorf("system block missing %q for style %+v", tt.want, tt.style)
			}
		})
	}
}

func TestComposeHistoryTruncation(t *testing.T) {
	long := strings.Repeat("a very long narration ", 20)
	history := []game.Turn{
		{PlayerInput: "one", Narration: "first"},
		{PlayerInput: "two", Narration: "second"},
		{PlayerInput: "three", Narration: "third"},
		{PlayerInput: "four", Narration: long},
	}

	p := Compose(Context{
		World:   game.NewWorldState("camp"),
		History: history,
	})

	if strings.Contains(p.Context, "Player: one") {
		t.Error("history should keep only the last 3 turns")
	}
	if !strings.Contains(p.Context, "Player: two") {
		t.Error("history should include turn two")
	}
	if strings.Contains(p.Context, long) {
		t.Error("long narration should be truncated")
	}
	if !strings.Contains(p.Context, "...") {
		t.Error("truncated narration should end with ellipsis")
	}
}

func TestComposeIsPure(t *testing.T) {
	world := game.NewWorldState("camp")
	world.Inventory = append(world.Inventory, "torch")
	ctx := Context{Genre: "fantasy", World: world, PlayerInput: "rest"}

	first := Compose(ctx)
	second := Compose(ctx)

	if first.System != second.System || first.User != second.User {
		t.Error("Compose must be deterministic for identical input")
	}
	if world.Inventory[0] != "torch" {
		t.Error("Compose must not mutate its input")
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("é", historyTruncateLen+50)

	got := truncate(long, historyTruncateLen)
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", historyTruncateLen) + "..."; got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
	if short := truncate("short", historyTruncateLen); short != "short" {
		t.Errorf("truncate(short) = %q, want unchanged", short)
	}
}

func TestComposeOrdersMapBlocksDeterministically(t *testing.T) {
	world := game.NewWorldState("camp")
	world.NPCs = map[string]game.NPC{
		"Mira": {Name: "Mira"}, "Aldo": {Name: "Aldo"}, "Zev": {Name: "Zev"},
	}
	world.Flags = map[string]any{"gate_open": true, "alarm_raised": true}
	ctx := Context{World: world, PlayerInput: "wait"}

	first := Compose(ctx)
	for i := 0; i < 20; i++ {
		if got := Compose(ctx); got.Context != first.Context {
			t.Fatalf("context block varies across calls:\n%q\nvs\n%q", got.Context, first.Context)
		}
	}
	if !strings.Contains(first.Context, "Aldo, Mira, Zev") {
		t.Errorf("characters not listed in sorted order:\n%s", first.Context)
	}
}

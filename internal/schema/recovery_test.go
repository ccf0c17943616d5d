package schema

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseNarrationStrict(t *testing.T) {
	text := `{"narration": "You see a door.", "image_prompt": "an old door", "quick_actions": ["Open door"]}`

	got, outcome := ParseNarration(text, "the hallway")

	if outcome != ParseStrict {
		t.Fatalf("outcome = %v, want strict", outcome)
	}
	if got.Narration != "You see a door." {
		t.Errorf("narration = %q", got.Narration)
	}
	if !reflect.DeepEqual(got.QuickActions, []string{"Open door"}) {
		t.Errorf("quick_actions = %v", got.QuickActions)
	}
}

func TestParseNarrationFencedBlock(t *testing.T) {
	text := "Here is the continuation:\n```json\n{\"narration\": \"The torch flickers.\", \"quick_actions\": [\"Press on\"]}\n```\nHope you enjoy!"

	got, outcome := ParseNarration(text, "the cave")

	if outcome != ParseRecovered {
		t.Fatalf("outcome = %v, want recovered", outcome)
	}
	if got.Narration != "The torch flickers." {
		t.Errorf("narration = %q", got.Narration)
	}
}

// Recovering from text whose fenced block is well-formed must give the same
// result as parsing that object directly.
func TestRecoveryIdempotence(t *testing.T) {
	object := `{"narration": "A wolf howls.", "image_prompt": "wolf silhouette", "quick_actions": ["Hide", "Run"]}`
	wrapped := "Sure! Here you go:\n```\n" + object + "\n```"

	direct, directOutcome := ParseNarration(object, "the woods")
	recovered, recoveredOutcome := ParseNarration(wrapped, "the woods")

	if directOutcome != ParseStrict {
		t.Fatalf("direct outcome = %v, want strict", directOutcome)
	}
	if recoveredOutcome != ParseRecovered {
		t.Fatalf("recovered outcome = %v, want recovered", recoveredOutcome)
	}
	if !reflect.DeepEqual(direct, recovered) {
		t.Errorf("recovered = %+v, want %+v", recovered, direct)
	}
}

func TestParseNarrationBareObjectInText(t *testing.T) {
	text := `The model says: {"narration": "It is quiet.", "quick_actions": ["Wait"]} -- end of reply`

	got, outcome := ParseNarration(text, "the library")

	if outcome != ParseRecovered {
		t.Fatalf("outcome = %v, want recovered", outcome)
	}
	if got.Narration != "It is quiet." {
		t.Errorf("narration = %q", got.Narration)
	}
}

func TestParseNarrationRepairsSloppyJSON(t *testing.T) {
	// Trailing comma and unquoted keys both appear in real provider output.
	text := `{narration: "The gate creaks open.", quick_actions: ["Enter", "Turn back",],}`

	got, outcome := ParseNarration(text, "the gate")

	if outcome != ParseRecovered {
		t.Fatalf("outcome = %v, want recovered", outcome)
	}
	if got.Narration != "The gate creaks open." {
		t.Errorf("narration = %q", got.Narration)
	}
	if !reflect.DeepEqual(got.QuickActions, []string{"Enter", "Turn back"}) {
		t.Errorf("quick_actions = %v", got.QuickActions)
	}
}

func TestParseNarrationActionHarvest(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "actions marker",
			text: "You see a door. Actions: Open door, Walk away",
			want: []string{"Open door", "Walk away"},
		},
		{
			name: "options marker",
			text: "The bridge sways.\nOptions: Cross carefully; Go back",
			want: []string{"Cross carefully", "Go back"},
		},
		{
			name: "you can marker splits on and",
			text: "Darkness ahead. You can: light a torch and wait for dawn",
			want: []string{"light a torch", "wait for dawn"},
		},
		{
			name: "at most three harvested",
			text: "Actions: One, Two, Three, Four, Five",
			want: []string{"One", "Two", "Three"},
		},
		{
			name: "no markers gives defaults",
			text: "Just some flavor text with no list at all.",
			want: []string{"Look around", "Continue"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := ParseNarration(tt.text, "the road")
			if outcome != ParseRecovered {
				t.Fatalf("outcome = %v, want recovered", outcome)
			}
			if got.Narration != tt.text {
				t.Errorf("narration = %q, want full text", got.Narration)
			}
			if !reflect.DeepEqual(got.QuickActions, tt.want) {
				t.Errorf("quick_actions = %v, want %v", got.QuickActions, tt.want)
			}
		})
	}
}

func TestParseNarrationSynthetic(t *testing.T) {
	got, outcome := ParseNarration("   ", "the throne room")

	if outcome != ParseSynthetic {
		t.Fatalf("outcome = %v, want synthetic", outcome)
	}
	if got.Narration != "You are in the throne room. What would you like to do?" {
		t.Errorf("narration = %q", got.Narration)
	}
	if !reflect.DeepEqual(got.QuickActions, DefaultQuickActions()) {
		t.Errorf("quick_actions = %v", got.QuickActions)
	}
}

func TestParseAdventure(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		got, outcome, err := ParseAdventure(`{"title": "Ghost Ship", "plot": {"main_objective": "Escape"}}`)
		if err != nil {
			t.Fatal(err)
		}
		if outcome != ParseStrict {
			t.Fatalf("outcome = %v, want strict", outcome)
		}
		if got.Title != "Ghost Ship" {
			t.Errorf("title = %q", got.Title)
		}
	})

	t.Run("fenced", func(t *testing.T) {
		_, outcome, err := ParseAdventure("```json\n{\"title\": \"Ghost Ship\"}\n```")
		if err != nil {
			t.Fatal(err)
		}
		if outcome != ParseRecovered {
			t.Fatalf("outcome = %v, want recovered", outcome)
		}
	})

	t.Run("free text is not promoted to an adventure", func(t *testing.T) {
		_, _, err := ParseAdventure("Once upon a time there was no JSON here at all.")
		if !errors.Is(err, ErrNoStructuredData) {
			t.Fatalf("err = %v, want ErrNoStructuredData", err)
		}
	})
}

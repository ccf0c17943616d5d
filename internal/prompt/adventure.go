package prompt

import "fmt"

// adventureSchema is the output shape for adventure derivation; it mirrors
// the AdventureDetails JSON encoding field for field.
const adventureSchema = `Respond with a single JSON object in exactly this shape:
{
  "title": "adventure title",
  "description": "one-paragraph premise",
  "setting": {
    "world_description": "the world in a few sentences",
    "time_period": "era or date",
    "environment": "dominant environment",
    "special_rules": "optional unusual rules",
    "locations": ["notable locations, first is the starting point"]
  },
  "characters": {
    "player_role": "who the player is",
    "key_npcs": ["important characters"],
    "relationships": "how they relate to the player"
  },
  "plot": {
    "main_objective": "the central goal",
    "secondary_goals": ["optional side goals"],
    "plot_hooks": ["opening complications"],
    "victory_conditions": "how the adventure is won",
    "estimated_turns": 30,
    "themes": ["themes to weave in"]
  },
  "style_preferences": {
    "tone": "serious|humorous|dramatic|lighthearted|dark",
    "complexity": "simple|moderate|complex",
    "pacing": "slow|moderate|fast"
  }
}
Do not include any text outside the JSON object.`

// ComposeAdventure builds the instruction blocks for deriving a complete
// adventure definition from a player's free-text premise.
func ComposeAdventure(premise, genre string) Prompt {
	if genre == "" {
		genre = "fantasy"
	}
	return Prompt{
		System: "You design complete interactive adventures from short premises. " +
			"Flesh out the setting, cast and plot so a dungeon master could run the " +
			"story without further input.\n\n" + adventureSchema,
		Context: fmt.Sprintf("Genre: %s", genre),
		User:    premise,
	}
}

package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/John-MiracleWorker/AI-DUNGEON-sub000/internal/game"
)

// ParseOutcome tags how a provider reply was turned into a usable value.
type ParseOutcome int

const (
	// ParseStrict means the reply was well-formed JSON as-is.
	ParseStrict ParseOutcome = iota
	// ParseRecovered means structured data was extracted heuristically.
	ParseRecovered
	// ParseSynthetic means nothing usable was found and a minimal safe
	// reply was synthesized.
	ParseSynthetic
)

func (o ParseOutcome) String() string {
	switch o {
	case ParseStrict:
		return "strict"
	case ParseRecovered:
		return "recovered"
	case ParseSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// ErrNoStructuredData is returned by ParseAdventure when no object could be
// located anywhere in the reply. Callers surface their own fallback
// adventure; this package does not invent one.
var ErrNoStructuredData = errors.New("no structured data found in response")

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:[a-zA-Z]+)?\\s*(.*?)```")

	// Tried in order; first match wins.
	actionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)actions?:\s*(.+)`),
		regexp.MustCompile(`(?i)options?:\s*(.+)`),
		regexp.MustCompile(`(?i)you can:\s*(.+)`),
	}

	// Splitting on the word "and" truncates legitimate three-item lists
	// joined by "and"; kept as observed upstream behavior.
	actionSplitRe = regexp.MustCompile(`\s*(?:,|;|\band\b)\s*`)
)

const maxHarvestedActions = 3

// ParseNarration turns raw provider text into a conforming narration reply.
// Strict JSON parses directly; otherwise recovery strategies run in order:
// fenced object, balanced-brace object, action harvesting over free text,
// and finally a synthetic minimal reply built from the current location.
func ParseNarration(text, currentLocation string) (game.NarrationResponse, ParseOutcome) {
	trimmed := strings.TrimSpace(text)

	if obj, ok := decodeObject(trimmed); ok {
		return NormalizeNarration(obj), ParseStrict
	}
	if obj, ok := extractObject(trimmed); ok {
		return NormalizeNarration(obj), ParseRecovered
	}
	if trimmed != "" {
		return game.NarrationResponse{
			Narration:    trimmed,
			QuickActions: harvestActions(trimmed),
		}, ParseRecovered
	}
	return SyntheticNarration(currentLocation), ParseSynthetic
}

// ParseAdventure extracts an adventure definition from raw provider text.
// Only the structured strategies apply; free text is never promoted to an
// adventure.
func ParseAdventure(text string) (game.AdventureDetails, ParseOutcome, error) {
	trimmed := strings.TrimSpace(text)

	if obj, ok := decodeObject(trimmed); ok {
		return NormalizeAdventure(obj), ParseStrict, nil
	}
	if obj, ok := extractObject(trimmed); ok {
		return NormalizeAdventure(obj), ParseRecovered, nil
	}
	return game.AdventureDetails{}, ParseSynthetic, ErrNoStructuredData
}

// SyntheticNarration is the last-resort reply; it always conforms.
func SyntheticNarration(currentLocation string) game.NarrationResponse {
	if currentLocation == "" {
		currentLocation = "an unfamiliar place"
	}
	return game.NarrationResponse{
		Narration:    fmt.Sprintf("You are in %s. What would you like to do?", currentLocation),
		QuickActions: DefaultQuickActions(),
	}
}

// extractObject runs the structured recovery strategies: a fenced code
// block containing a brace-delimited object, then the first balanced brace
// object anywhere in the text.
func extractObject(text string) (map[string]any, bool) {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		if obj, ok := braceScan(m[1]); ok {
			return obj, true
		}
	}
	return braceScan(text)
}

// braceScan locates the first top-level brace-delimited object by balanced
// brace counting and decodes it, repairing common provider mistakes first.
func braceScan(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	if start == -1 {
		return nil, false
	}

	depth := 0
	end := -1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, false
	}

	candidate := text[start:end]
	if obj, ok := decodeObject(candidate); ok {
		return obj, true
	}
	if obj, ok := decodeObject(repairJSON(candidate)); ok {
		return obj, true
	}
	return nil, false
}

// harvestActions scans free text for an action list using the ordered
// marker patterns. At most three entries survive; when nothing matches the
// defaults are substituted.
func harvestActions(text string) []string {
	for _, pattern := range actionPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		line := m[1]
		if idx := strings.IndexByte(line, '\n'); idx != -1 {
			line = line[:idx]
		}
		parts := actionSplitRe.Split(line, -1)
		actions := make([]string, 0, maxHarvestedActions)
		for _, part := range parts {
			part = strings.Trim(strings.TrimSpace(part), ".")
			if part == "" {
				continue
			}
			actions = append(actions, part)
			if len(actions) == maxHarvestedActions {
				break
			}
		}
		if len(actions) > 0 {
			return actions
		}
	}
	return DefaultQuickActions()
}

var (
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
)

// repairJSON fixes the malformed output providers produce most often:
// literal control characters inside strings, trailing commas and unquoted
// object keys.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteByte(c)
			case c == '\\':
				escaped = true
				b.WriteByte(c)
			case c == '"':
				inString = false
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			case c == '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(c)
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}

	out := b.String()
	out = trailingCommaRe.ReplaceAllString(out, "$1")
	out = unquotedKeyRe.ReplaceAllString(out, `$1"$2":`)
	return out
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

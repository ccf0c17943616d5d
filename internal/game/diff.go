package game

import "reflect"

// StateDiff records what actually changed between two snapshots. Inventory
// differences are multiset-aware: duplicates count individually.
type StateDiff struct {
	Location         string           `json:"location,omitempty"`
	InventoryChanges InventoryChanges `json:"inventory_changes"`
	FlagsUpdated     map[string]any   `json:"flags_updated,omitempty"`
}

type InventoryChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// ApplyChanges produces the next snapshot from prev and a provider delta.
// Location overwrites when present, inventory entries append, flags merge
// shallowly. prev is never mutated.
func ApplyChanges(prev WorldState, changes StateChanges) WorldState {
	next := prev.Clone()
	if changes.Location != "" {
		next.Location = changes.Location
	}
	for _, item := range changes.Inventory {
		if item != "" {
			next.Inventory = append(next.Inventory, item)
		}
	}
	for k, v := range changes.Flags {
		next.Flags[k] = v
	}
	return next
}

// Diff computes the observable change between two snapshots: inventory
// additions/removals as multiset differences and only the flags whose value
// actually changed.
func Diff(prev, next WorldState) StateDiff {
	diff := StateDiff{
		InventoryChanges: InventoryChanges{
			Added:   multisetSubtract(next.Inventory, prev.Inventory),
			Removed: multisetSubtract(prev.Inventory, next.Inventory),
		},
	}
	if next.Location != prev.Location {
		diff.Location = next.Location
	}
	for k, v := range next.Flags {
		old, existed := prev.Flags[k]
		if !existed || !reflect.DeepEqual(old, v) {
			if diff.FlagsUpdated == nil {
				diff.FlagsUpdated = map[string]any{}
			}
			diff.FlagsUpdated[k] = v
		}
	}
	return diff
}

// multisetSubtract returns a minus b with multiplicity: an item appearing
// twice in a and once in b survives once.
func multisetSubtract(a, b []string) []string {
	counts := make(map[string]int, len(b))
	for _, item := range b {
		counts[item]++
	}
	out := []string{}
	for _, item := range a {
		if counts[item] > 0 {
			counts[item]--
			continue
		}
		out = append(out, item)
	}
	return out
}

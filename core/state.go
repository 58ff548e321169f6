package core

import "sort"

// AgentState accumulates stage outputs across one run, keyed by stage name.
// It follows a copy-on-write discipline: Set and Apply return a new state
// sharing the unchanged entries, so a snapshot handed to concurrent fan-out
// branches can never observe a sibling's partial writes. Entries written by
// earlier stages are preserved unchanged when state is carried forward.
//
// The zero value is usable and represents an empty state.
type AgentState struct {
	entries map[string]any
}

// NewAgentState returns an empty state.
func NewAgentState() AgentState {
	return AgentState{entries: map[string]any{}}
}

// Get returns the output recorded for a stage, if any.
func (s AgentState) Get(stage string) (any, bool) {
	v, ok := s.entries[stage]
	return v, ok
}

// GetMap returns a stage output as a map, or nil when absent or not a map.
func (s AgentState) GetMap(stage string) map[string]any {
	if v, ok := s.entries[stage]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// Set returns a new state with the stage output recorded. The receiver is
// left untouched.
func (s AgentState) Set(stage string, output any) AgentState {
	next := make(map[string]any, len(s.entries)+1)
	for k, v := range s.entries {
		next[k] = v
	}
	next[stage] = output
	return AgentState{entries: next}
}

// Apply returns a new state with every entry of delta recorded, overwriting
// same-named entries and preserving all others.
func (s AgentState) Apply(delta map[string]any) AgentState {
	if len(delta) == 0 {
		return s
	}
	next := make(map[string]any, len(s.entries)+len(delta))
	for k, v := range s.entries {
		next[k] = v
	}
	for k, v := range delta {
		next[k] = v
	}
	return AgentState{entries: next}
}

// Diff returns the entries present in s that are absent from base. Entries
// whose stage key exists in base are reported too when the branch rewrote
// them; untouched entries are omitted.
func (s AgentState) Diff(base AgentState) map[string]any {
	delta := map[string]any{}
	for k, v := range s.entries {
		if bv, ok := base.entries[k]; !ok || !sameRef(bv, v) {
			delta[k] = v
		}
	}
	return delta
}

// Merge applies each branch state's diff against base in the given order
// and returns the combined state. Later diffs win on key collisions, which
// makes fan-in deterministic in submission order regardless of which branch
// finished first.
func Merge(base AgentState, branches ...AgentState) AgentState {
	merged := base
	for _, b := range branches {
		merged = merged.Apply(b.Diff(base))
	}
	return merged
}

// Len reports the number of recorded stage outputs.
func (s AgentState) Len() int { return len(s.entries) }

// Stages returns the recorded stage names in sorted order.
func (s AgentState) Stages() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the underlying mapping for inspection
// or serialization. Mutating the returned map does not affect the state.
func (s AgentState) Snapshot() map[string]any {
	out := make(map[string]any, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// sameRef reports whether two stored values are the same entry without
// requiring comparable types. Maps and slices compare by identity here,
// which is sufficient for diffing copy-on-write snapshots.
func sameRef(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return false
		}
		return len(av) == len(bv) && (len(av) == 0 || equalShallow(av, bv))
	case string, int, int64, float64, bool:
		return a == b
	default:
		return false
	}
}

func equalShallow(a, b map[string]any) bool {
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !sameRef(av, bv) {
			return false
		}
	}
	return true
}

package main

import "sync/atomic"

// Settings holds the presentation-layer employee preferences: display-name
// overrides keyed by stored identity, and identities hidden from dashboards.
type Settings struct {
	NameOverrides map[string]string `json:"employee_mappings"`
	Hidden        []string          `json:"hidden_employees"`
}

// SettingsStore keeps the current Settings behind an atomic whole-value
// swap. A Get always observes a complete pair, never a half-written update,
// and concurrent Puts serialize on the pointer swap. Contents are process-
// lifetime only; a restart starts empty.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

func NewSettingsStore() *SettingsStore {
	s := &SettingsStore{}
	s.current.Store(&Settings{NameOverrides: map[string]string{}, Hidden: []string{}})
	return s
}

// Get returns a copy of the current settings. Callers may mutate the result
// freely without affecting the store.
func (s *SettingsStore) Get() Settings {
	return copySettings(*s.current.Load())
}

// Put replaces the stored settings wholesale.
func (s *SettingsStore) Put(in Settings) {
	next := copySettings(in)
	s.current.Store(&next)
}

func copySettings(in Settings) Settings {
	out := Settings{
		NameOverrides: make(map[string]string, len(in.NameOverrides)),
		Hidden:        make([]string, len(in.Hidden)),
	}
	for k, v := range in.NameOverrides {
		out.NameOverrides[k] = v
	}
	copy(out.Hidden, in.Hidden)
	return out
}

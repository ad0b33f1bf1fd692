// Package uistate holds renderer settings that live for the lifetime of the
// process.
package uistate

import "sync"

// DefaultGlowColor is the glow color a fresh store starts with
const DefaultGlowColor = "#404040"

// State is the serialised form of the store
type State struct {
	GlowColor string `json:"glowColor" yaml:"glowColor"`
}

// Store keeps the current glow color. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	glowColor string
}

// New returns a store holding the default color
func New() *Store {
	return &Store{glowColor: DefaultGlowColor}
}

// Color returns the current glow color
func (s *Store) Color() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.glowColor
}

// SetColor overwrites the glow color. The value is not validated.
func (s *Store) SetColor(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glowColor = color
}

// ResetColor restores DefaultGlowColor
func (s *Store) ResetColor() {
	s.SetColor(DefaultGlowColor)
}

// Snapshot returns the current state
func (s *Store) Snapshot() State {
	return State{GlowColor: s.Color()}
}

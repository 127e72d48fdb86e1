// Package session runs the assistant's conversation loop: it owns the
// idle/recording/responding/speaking state machine, recent history, and
// the locally handled commands.
package session

import "sync/atomic"

// State tracks whether speech output is in progress and whether an
// interrupt has been requested. Both flags are read from the wake
// monitor's goroutine, so access is atomic.
type State struct {
	speaking  atomic.Bool
	interrupt atomic.Bool
}

// NewState creates an idle State.
func NewState() *State {
	return &State{}
}

// Speaking reports whether speech output is in progress.
func (s *State) Speaking() bool {
	return s.speaking.Load()
}

// BeginSpeech marks speech output active and clears any stale interrupt,
// so a request from a previous episode can never cancel new output.
func (s *State) BeginSpeech() {
	s.interrupt.Store(false)
	s.speaking.Store(true)
}

// EndSpeech marks speech output finished.
func (s *State) EndSpeech() {
	s.speaking.Store(false)
	s.interrupt.Store(false)
}

// RequestInterrupt asks the current speech output to stop. Idempotent,
// and a no-op while nothing is being spoken.
func (s *State) RequestInterrupt() {
	if s.speaking.Load() {
		s.interrupt.Store(true)
	}
}

// Interrupted reports whether the current output should stop. Speakers
// poll this between sentences or chunks.
func (s *State) Interrupted() bool {
	return s.interrupt.Load()
}

// Package tts speaks assistant replies aloud. Speakers check the
// interrupt callback at sentence or chunk boundaries, so a wake phrase
// during output halts speech quickly without killing the process.
package tts

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var ErrSpeakerUnavailable = errors.New("tts speaker unavailable")

// Speaker voices one reply. An interrupt is a normal outcome: Speak
// stops early and returns nil.
type Speaker interface {
	Name() string

	// Speak blocks until the text has been voiced or interrupted is
	// observed true at a boundary.
	Speak(ctx context.Context, text string, interrupted func() bool) error

	Health(ctx context.Context) error
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// SplitSentences breaks reply text into speakable sentences. Interrupt
// checks happen between them.
func SplitSentences(text string) []string {
	var out []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		s := strings.TrimSpace(m)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

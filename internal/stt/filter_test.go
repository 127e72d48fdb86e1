package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Clean(t *testing.T) {
	f := NewFilter()

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain speech", "what time is it", "what time is it", true},
		{"blank audio marker", "[BLANK_AUDIO]", "", false},
		{"marker around speech", "[BLANK_AUDIO] set a timer", "set a timer", true},
		{"inaudible paren", "(inaudible)", "", false},
		{"action asterisks", "*coughs* hello there", "hello there", true},
		{"whitespace collapse", "  set   a  timer  ", "set a timer", true},
		{"too short", "ok", "", false},
		{"punctuation only", "...", "", false},
		{"empty", "", "", false},
		{"three chars pass", "yes", "yes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.Clean(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

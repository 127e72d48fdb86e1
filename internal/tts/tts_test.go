package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "multiple sentences",
			in:   "Timer set for 5 minutes. I'll let you know. Anything else?",
			want: []string{"Timer set for 5 minutes.", "I'll let you know.", "Anything else?"},
		},
		{
			name: "no terminal punctuation",
			in:   "hello there",
			want: []string{"hello there"},
		},
		{
			name: "exclamation",
			in:   "Time's up! Your timer is done.",
			want: []string{"Time's up!", "Your timer is done."},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
		{
			name: "whitespace only",
			in:   "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestDecodePCM16(t *testing.T) {
	raw := []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80}
	samples := decodePCM16(raw)
	assert.Equal(t, []int16{1, -1, -32768}, samples)
}

func TestProcessSpeaker_Args(t *testing.T) {
	say := &ProcessSpeaker{command: "say", voice: "Samantha", rate: 180}
	assert.Equal(t, []string{"-v", "Samantha", "-r", "180", "hello"}, say.args("hello"))

	espeak := &ProcessSpeaker{command: "espeak", rate: 160}
	assert.Equal(t, []string{"-s", "160", "hello"}, espeak.args("hello"))
}

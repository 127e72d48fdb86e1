package stt

import (
	"regexp"
	"strings"
	"unicode"
)

// Whisper emits these annotations on silent or noisy clips.
var (
	bracketRe  = regexp.MustCompile(`\[[^\]]*\]`)
	parenRe    = regexp.MustCompile(`\([^)]*\)`)
	asteriskRe = regexp.MustCompile(`\*[^*]*\*`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Filter cleans raw transcripts before they reach command matching or
// the conversation backend.
type Filter struct{}

// NewFilter creates a transcript filter.
func NewFilter() *Filter {
	return &Filter{}
}

// Clean strips non-speech annotations like "[BLANK_AUDIO]", "(inaudible)"
// and "*coughs*", collapses whitespace, and reports whether meaningful
// speech remains. Transcripts with two or fewer letters or digits are
// treated as noise and rejected.
func (f *Filter) Clean(text string) (string, bool) {
	cleaned := bracketRe.ReplaceAllString(text, " ")
	cleaned = parenRe.ReplaceAllString(cleaned, " ")
	cleaned = asteriskRe.ReplaceAllString(cleaned, " ")
	cleaned = spaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if significantChars(cleaned) <= 2 {
		return "", false
	}
	return cleaned, true
}

func significantChars(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

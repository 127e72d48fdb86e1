// Package schedule provides in-memory alarms and timers with
// natural-language time and duration parsing and a once-per-second poll
// loop. Nothing here is persisted; entries are lost on restart by design.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrParse reports time or duration text that could not be understood.
// Callers surface it to the user with a corrective example.
var ErrParse = errors.New("could not parse time expression")

// numberWords maps spelled-out numbers to digits. Compounds like
// "twenty five" normalize to "20 5"; that is accepted best-effort
// behavior, not a full number grammar.
var numberWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"ten": "10", "eleven": "11", "twelve": "12", "thirteen": "13",
	"fourteen": "14", "fifteen": "15", "sixteen": "16", "seventeen": "17",
	"eighteen": "18", "nineteen": "19", "twenty": "20", "thirty": "30",
	"forty": "40", "fifty": "50",
}

var (
	articleUnitRe = regexp.MustCompile(`\ban?\s+(hour|minute|second)`)

	clock12Re = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*([ap])\.?m\.?\b`)
	hour12Re  = regexp.MustCompile(`\b(\d{1,2})\s*([ap])\.?m\.?\b`)
	clock24Re = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

	hoursRe   = regexp.MustCompile(`\b(\d+)\s*(?:hours?|hrs?)\b`)
	minutesRe = regexp.MustCompile(`\b(\d+)\s*(?:minutes?|mins?)\b`)
	secondsRe = regexp.MustCompile(`\b(\d+)\s*(?:seconds?|secs?)\b`)
)

// normalizeNumberWords lowercases text and replaces spelled-out numbers
// with digits, plus "an hour" style articles with "1 hour".
func normalizeNumberWords(text string) string {
	s := strings.ToLower(text)
	s = articleUnitRe.ReplaceAllString(s, "1 $1")
	words := strings.Fields(s)
	for i, w := range words {
		trimmed := strings.Trim(w, ",.!?;:")
		if d, ok := numberWords[trimmed]; ok {
			words[i] = strings.Replace(w, trimmed, d, 1)
		}
	}
	return strings.Join(words, " ")
}

// ParseClockTime converts natural-language time-of-day text into an
// absolute timestamp. Formats are tried in priority order: "H:MM AM/PM",
// "H AM/PM", then bare 24-hour "H:MM". A parsed time at or before now
// rolls forward to the next day, so the result is always in the future
// and at most 24 hours out.
func ParseClockTime(text string, now time.Time) (time.Time, error) {
	s := normalizeNumberWords(text)

	var hour, minute int
	matched := false

	if m := clock12Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h < 1 || h > 12 || mm > 59 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrParse, text)
		}
		hour, minute = to24Hour(h, m[3]), mm
		matched = true
	} else if m := hour12Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h < 1 || h > 12 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrParse, text)
		}
		hour, minute = to24Hour(h, m[2]), 0
		matched = true
	} else if m := clock24Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h > 23 || mm > 59 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrParse, text)
		}
		hour, minute = h, mm
		matched = true
	}

	if !matched {
		return time.Time{}, fmt.Errorf("%w: %q", ErrParse, text)
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}
	return at, nil
}

func to24Hour(h int, meridiem string) int {
	if meridiem == "p" && h != 12 {
		return h + 12
	}
	if meridiem == "a" && h == 12 {
		return 0
	}
	return h
}

// ParseDuration sums independently matched hour, minute, and second
// quantities from free text. Text with none of the three yields ErrParse.
func ParseDuration(text string) (time.Duration, error) {
	s := normalizeNumberWords(text)

	var total time.Duration
	matched := false

	if m := hoursRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += time.Duration(n) * time.Hour
		matched = true
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += time.Duration(n) * time.Minute
		matched = true
	}
	if m := secondsRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += time.Duration(n) * time.Second
		matched = true
	}

	if !matched || total <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	return total, nil
}

// labelStripRes remove time/duration vocabulary before label extraction.
var labelStripRes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}:\d{2}\s*(?:[ap]\.?m\.?)?\b`),
	regexp.MustCompile(`\b\d+\s*(?:hours?|hrs?|minutes?|mins?|seconds?|secs?)\b`),
	regexp.MustCompile(`\b\d{1,2}\s*(?:[ap]\.?m\.?)\b`),
	regexp.MustCompile(`\b(?:[ap]\.?m\.?|o'?clock)\b`),
	regexp.MustCompile(`\b\d+\b`),
	regexp.MustCompile(`\b(?:set|create|start|an?|the|alarm|timer|for|at|in|to|me|my|called|named|wake|up|remind)\b`),
}

// ExtractLabel strips recognized time and duration vocabulary from the
// command text and returns whatever remains as a label. Best-effort: an
// empty label is valid and simply omitted from confirmations.
func ExtractLabel(text string) string {
	s := normalizeNumberWords(text)
	for _, re := range labelStripRes {
		s = re.ReplaceAllString(s, " ")
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,.!?;:-\"'")
}

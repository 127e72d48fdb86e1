package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Kind distinguishes alarms (absolute clock time) from timers (relative
// countdown). Both fire the same way.
type Kind int

const (
	KindAlarm Kind = iota
	KindTimer
)

func (k Kind) String() string {
	if k == KindTimer {
		return "timer"
	}
	return "alarm"
}

// Entry is a pending alarm or timer.
type Entry struct {
	Kind    Kind
	FiresAt time.Time
	Label   string
}

// Book holds pending alarms and timers behind a single mutex. All
// mutation, listing, and due-collection happen inside the same lock, so
// an entry can never fire twice or fire after cancellation.
type Book struct {
	mu     sync.Mutex
	alarms []Entry
	timers []Entry
	now    func() time.Time
}

// NewBook creates an empty Book using the wall clock.
func NewBook() *Book {
	return &Book{now: time.Now}
}

// CreateAlarm parses an absolute time from text and registers an alarm.
func (b *Book) CreateAlarm(text string) (Entry, error) {
	at, err := ParseClockTime(text, b.now())
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Kind: KindAlarm, FiresAt: at, Label: ExtractLabel(text)}

	b.mu.Lock()
	b.alarms = append(b.alarms, e)
	sortEntries(b.alarms)
	b.mu.Unlock()
	return e, nil
}

// CreateTimer parses a duration from text and registers a countdown timer.
func (b *Book) CreateTimer(text string) (Entry, error) {
	d, err := ParseDuration(text)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Kind: KindTimer, FiresAt: b.now().Add(d), Label: ExtractLabel(text)}

	b.mu.Lock()
	b.timers = append(b.timers, e)
	sortEntries(b.timers)
	b.mu.Unlock()
	return e, nil
}

// Alarms returns pending alarms ordered by firing time.
func (b *Book) Alarms() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.alarms...)
}

// Timers returns pending timers ordered by firing time.
func (b *Book) Timers() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.timers...)
}

// CancelAlarm removes alarms matched by text: "all" clears every alarm,
// a number cancels by list position (1-based), and anything else matches
// labels by substring. Returns the canceled entries.
func (b *Book) CancelAlarm(matcher string) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed, kept := cancelMatching(b.alarms, matcher)
	b.alarms = kept
	return removed
}

// CancelTimer removes timers the same way CancelAlarm removes alarms.
func (b *Book) CancelTimer(matcher string) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed, kept := cancelMatching(b.timers, matcher)
	b.timers = kept
	return removed
}

// TakeDue removes and returns every entry whose firing time has passed.
// Removal happens in the same critical section as the due check, which
// is what makes firing at-most-once.
func (b *Book) TakeDue(now time.Time) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var due []Entry
	due, b.alarms = splitDue(b.alarms, now)
	var dueTimers []Entry
	dueTimers, b.timers = splitDue(b.timers, now)
	return append(due, dueTimers...)
}

func splitDue(entries []Entry, now time.Time) (due, pending []Entry) {
	for _, e := range entries {
		if !e.FiresAt.After(now) {
			due = append(due, e)
		} else {
			pending = append(pending, e)
		}
	}
	return due, pending
}

func cancelMatching(entries []Entry, matcher string) (removed, kept []Entry) {
	matcher = strings.TrimSpace(strings.ToLower(matcher))
	if matcher == "" || matcher == "all" {
		return entries, nil
	}
	if pos, err := strconv.Atoi(matcher); err == nil {
		if pos < 1 || pos > len(entries) {
			return nil, entries
		}
		removed = []Entry{entries[pos-1]}
		kept = append(kept, entries[:pos-1]...)
		kept = append(kept, entries[pos:]...)
		return removed, kept
	}
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Label), matcher) {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	return removed, kept
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].FiresAt.Before(entries[j].FiresAt)
	})
}

// Describe renders an entry for spoken confirmations and listings.
func (e Entry) Describe() string {
	var when string
	if e.Kind == KindTimer {
		when = e.FiresAt.Format("3:04:05 PM")
	} else {
		when = e.FiresAt.Format("3:04 PM")
	}
	if e.Label != "" {
		return fmt.Sprintf("%s %q at %s", e.Kind, e.Label, when)
	}
	return fmt.Sprintf("%s at %s", e.Kind, when)
}

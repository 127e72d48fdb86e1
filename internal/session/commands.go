package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/arthur/internal/schedule"
)

// WeatherSource answers weather questions with a spoken line.
type WeatherSource interface {
	Summary(ctx context.Context) string
}

// Commands intercepts utterances the assistant can answer locally, so
// alarms, timers, time, and weather keep working when the conversation
// backend is down. Anything unmatched goes to the backend.
type Commands struct {
	book    *schedule.Book
	weather WeatherSource
	history *History
	canned  map[string]string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewCommands creates the command interceptor. weather may be nil.
func NewCommands(logger zerolog.Logger, book *schedule.Book, weather WeatherSource, history *History, canned map[string]string) *Commands {
	return &Commands{
		book:    book,
		weather: weather,
		history: history,
		canned:  canned,
		logger:  logger.With().Str("component", "commands").Logger(),
		now:     time.Now,
	}
}

// Handle returns a spoken reply and true when the utterance was handled
// locally. Matching is ordered so "cancel the timer" never reads as a
// request to set one.
func (c *Commands) Handle(ctx context.Context, text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	for phrase, reply := range c.canned {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return reply, true
		}
	}

	switch {
	case containsAny(lower, "cancel", "stop", "delete", "remove"):
		if strings.Contains(lower, "alarm") {
			return c.cancelAlarm(lower), true
		}
		if strings.Contains(lower, "timer") {
			return c.cancelTimer(lower), true
		}

	case containsAny(lower, "list", "what", "which", "do i have", "show"):
		if strings.Contains(lower, "alarm") {
			return c.listAlarms(), true
		}
		if strings.Contains(lower, "timer") {
			return c.listTimers(), true
		}
	}

	switch {
	case strings.Contains(lower, "alarm") || strings.Contains(lower, "wake me"):
		return c.setAlarm(lower), true

	case strings.Contains(lower, "timer"):
		return c.setTimer(lower), true

	case strings.Contains(lower, "what time") || lower == "time" || lower == "the time":
		return "It's " + c.now().Format("3:04 PM") + ".", true

	case strings.Contains(lower, "weather"):
		if c.weather == nil {
			return "", false
		}
		return c.weather.Summary(ctx), true

	case containsAny(lower, "forget our conversation", "clear the history", "new conversation", "forget everything"):
		c.history.Clear()
		return "Okay, I've cleared our conversation.", true
	}

	return "", false
}

func (c *Commands) setAlarm(text string) string {
	e, err := c.book.CreateAlarm(text)
	if err != nil {
		if errors.Is(err, schedule.ErrParse) {
			return "I couldn't work out the time. Try something like: set an alarm for 7:30 AM."
		}
		c.logger.Error().Err(err).Msg("Alarm creation failed")
		return "Sorry, I couldn't set that alarm."
	}
	return "Alarm set: " + e.Describe() + "."
}

func (c *Commands) setTimer(text string) string {
	e, err := c.book.CreateTimer(text)
	if err != nil {
		if errors.Is(err, schedule.ErrParse) {
			return "I couldn't work out the duration. Try something like: set a timer for 5 minutes."
		}
		c.logger.Error().Err(err).Msg("Timer creation failed")
		return "Sorry, I couldn't set that timer."
	}
	return "Timer set: " + e.Describe() + "."
}

func (c *Commands) listAlarms() string {
	alarms := c.book.Alarms()
	if len(alarms) == 0 {
		return "You have no alarms set."
	}
	parts := make([]string, len(alarms))
	for i, e := range alarms {
		parts[i] = fmt.Sprintf("%d: %s", i+1, e.Describe())
	}
	return fmt.Sprintf("You have %d: %s.", len(alarms), strings.Join(parts, "; "))
}

func (c *Commands) listTimers() string {
	timers := c.book.Timers()
	if len(timers) == 0 {
		return "You have no timers running."
	}
	parts := make([]string, len(timers))
	for i, e := range timers {
		parts[i] = fmt.Sprintf("%d: %s", i+1, e.Describe())
	}
	return fmt.Sprintf("You have %d: %s.", len(timers), strings.Join(parts, "; "))
}

func (c *Commands) cancelAlarm(text string) string {
	removed := c.book.CancelAlarm(cancelMatcher(text, "alarm"))
	switch len(removed) {
	case 0:
		return "I didn't find a matching alarm."
	case 1:
		return "Canceled the " + removed[0].Describe() + "."
	default:
		return fmt.Sprintf("Canceled %d alarms.", len(removed))
	}
}

func (c *Commands) cancelTimer(text string) string {
	removed := c.book.CancelTimer(cancelMatcher(text, "timer"))
	switch len(removed) {
	case 0:
		return "I didn't find a matching timer."
	case 1:
		return "Canceled the " + removed[0].Describe() + "."
	default:
		return fmt.Sprintf("Canceled %d timers.", len(removed))
	}
}

// cancelMatcher reduces "cancel the pasta timer" to the part that
// identifies which entry to remove.
func cancelMatcher(text, kind string) string {
	for _, word := range []string{"cancel", "stop", "delete", "remove", "the", "my", "all of", kind + "s", kind, "please"} {
		text = strings.ReplaceAll(text, word, " ")
	}
	matcher := strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if matcher == "" {
		return "all"
	}
	return matcher
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

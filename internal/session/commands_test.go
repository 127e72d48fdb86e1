package session

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/arthur/internal/schedule"
)

type fixedWeather struct{ line string }

func (w fixedWeather) Summary(_ context.Context) string { return w.line }

func newTestCommands() (*Commands, *schedule.Book, *History) {
	book := schedule.NewBook()
	history := NewHistory(10, 3)
	canned := map[string]string{"who are you": "I'm Arthur, your assistant."}
	c := NewCommands(zerolog.Nop(), book, fixedWeather{line: "Current weather: sunny"}, history, canned)
	return c, book, history
}

func TestCommands_SetTimer(t *testing.T) {
	c, book, _ := newTestCommands()

	reply, handled := c.Handle(context.Background(), "Set a timer for 5 minutes called pasta")
	require.True(t, handled)
	assert.Contains(t, reply, "Timer set")
	assert.Contains(t, reply, "pasta")
	require.Len(t, book.Timers(), 1)
}

func TestCommands_SetTimer_BadDuration(t *testing.T) {
	c, book, _ := newTestCommands()

	reply, handled := c.Handle(context.Background(), "set a timer")
	require.True(t, handled)
	assert.Contains(t, reply, "set a timer for 5 minutes")
	assert.Empty(t, book.Timers())
}

func TestCommands_SetAlarm(t *testing.T) {
	c, book, _ := newTestCommands()

	reply, handled := c.Handle(context.Background(), "wake me up at 7:30 am")
	require.True(t, handled)
	assert.Contains(t, reply, "Alarm set")
	require.Len(t, book.Alarms(), 1)
}

func TestCommands_ListAndCancel(t *testing.T) {
	c, book, _ := newTestCommands()
	_, _ = book.CreateTimer("timer for 5 minutes called pasta")
	_, _ = book.CreateTimer("timer for 10 minutes called laundry")

	reply, handled := c.Handle(context.Background(), "what timers do I have")
	require.True(t, handled)
	assert.Contains(t, reply, "pasta")
	assert.Contains(t, reply, "laundry")

	reply, handled = c.Handle(context.Background(), "cancel the pasta timer")
	require.True(t, handled)
	assert.Contains(t, reply, "Canceled")
	require.Len(t, book.Timers(), 1)
	assert.Equal(t, "laundry", book.Timers()[0].Label)

	reply, handled = c.Handle(context.Background(), "cancel all timers")
	require.True(t, handled)
	assert.Empty(t, book.Timers())

	reply, handled = c.Handle(context.Background(), "cancel the timer")
	require.True(t, handled)
	assert.Contains(t, reply, "didn't find")
}

func TestCommands_Time(t *testing.T) {
	c, _, _ := newTestCommands()
	reply, handled := c.Handle(context.Background(), "what time is it")
	require.True(t, handled)
	assert.Contains(t, reply, "It's ")
}

func TestCommands_Weather(t *testing.T) {
	c, _, _ := newTestCommands()
	reply, handled := c.Handle(context.Background(), "what's the weather like")
	require.True(t, handled)
	assert.Equal(t, "Current weather: sunny", reply)
}

func TestCommands_Canned(t *testing.T) {
	c, _, _ := newTestCommands()
	reply, handled := c.Handle(context.Background(), "who are you anyway")
	require.True(t, handled)
	assert.Equal(t, "I'm Arthur, your assistant.", reply)
}

func TestCommands_ClearHistory(t *testing.T) {
	c, _, history := newTestCommands()
	history.Add("q", "a")

	_, handled := c.Handle(context.Background(), "please forget our conversation")
	require.True(t, handled)
	assert.Equal(t, 0, history.Count())
}

func TestCommands_UnmatchedGoesToBackend(t *testing.T) {
	c, _, _ := newTestCommands()
	_, handled := c.Handle(context.Background(), "tell me a story about dragons")
	assert.False(t, handled)
}

package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBook_CreateTimer(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.Local)
	b := NewBook()
	b.now = fixedClock(now)

	e, err := b.CreateTimer("set a timer for 5 minutes called pasta")
	require.NoError(t, err)
	assert.Equal(t, KindTimer, e.Kind)
	assert.Equal(t, "pasta", e.Label)
	assert.Equal(t, now.Add(5*time.Minute), e.FiresAt)

	timers := b.Timers()
	require.Len(t, timers, 1)
	assert.Equal(t, e, timers[0])
}

func TestBook_CreateAlarm_RollsForward(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.Local)
	b := NewBook()
	b.now = fixedClock(now)

	e, err := b.CreateAlarm("set an alarm for 7:30 am")
	require.NoError(t, err)
	assert.Equal(t, KindAlarm, e.Kind)
	assert.Equal(t, time.Date(2025, time.March, 11, 7, 30, 0, 0, time.Local), e.FiresAt)
}

func TestBook_ListsSortedByFiringTime(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.Local)
	b := NewBook()
	b.now = fixedClock(now)

	_, err := b.CreateTimer("timer for 10 minutes")
	require.NoError(t, err)
	_, err = b.CreateTimer("timer for 2 minutes")
	require.NoError(t, err)
	_, err = b.CreateTimer("timer for 30 minutes")
	require.NoError(t, err)

	timers := b.Timers()
	require.Len(t, timers, 3)
	assert.True(t, timers[0].FiresAt.Before(timers[1].FiresAt))
	assert.True(t, timers[1].FiresAt.Before(timers[2].FiresAt))
}

func TestBook_CancelTimer(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.Local)

	t.Run("by position", func(t *testing.T) {
		b := NewBook()
		b.now = fixedClock(now)
		_, _ = b.CreateTimer("timer for 2 minutes called eggs")
		_, _ = b.CreateTimer("timer for 10 minutes called pasta")

		removed := b.CancelTimer("1")
		require.Len(t, removed, 1)
		assert.Equal(t, "eggs", removed[0].Label)
		require.Len(t, b.Timers(), 1)
		assert.Equal(t, "pasta", b.Timers()[0].Label)
	})

	t.Run("all", func(t *testing.T) {
		b := NewBook()
		b.now = fixedClock(now)
		_, _ = b.CreateTimer("timer for 2 minutes")
		_, _ = b.CreateTimer("timer for 10 minutes")

		removed := b.CancelTimer("all")
		assert.Len(t, removed, 2)
		assert.Empty(t, b.Timers())
	})

	t.Run("position out of range", func(t *testing.T) {
		b := NewBook()
		b.now = fixedClock(now)
		_, _ = b.CreateTimer("timer for 2 minutes")

		assert.Empty(t, b.CancelTimer("5"))
		assert.Len(t, b.Timers(), 1)
	})
}

func TestBook_CancelAlarm_ByLabel(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.Local)
	b := NewBook()
	b.now = fixedClock(now)
	_, _ = b.CreateAlarm("alarm at 9 pm for work")
	_, _ = b.CreateAlarm("alarm at 10 pm for gym")

	removed := b.CancelAlarm("work")
	require.Len(t, removed, 1)
	assert.Equal(t, "work", removed[0].Label)
	require.Len(t, b.Alarms(), 1)
	assert.Equal(t, "gym", b.Alarms()[0].Label)
}

func TestBook_TakeDue_RemovesAtMostOnce(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.Local)
	b := NewBook()
	b.now = fixedClock(now)
	_, _ = b.CreateTimer("timer for 2 minutes")
	_, _ = b.CreateTimer("timer for 10 minutes")

	due := b.TakeDue(now.Add(5 * time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, now.Add(2*time.Minute), due[0].FiresAt)

	// A second sweep at the same instant finds nothing.
	assert.Empty(t, b.TakeDue(now.Add(5*time.Minute)))
	assert.Len(t, b.Timers(), 1)
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Announce(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func (n *recordingNotifier) announced() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

func TestScheduler_FiresDueEntryExactlyOnce(t *testing.T) {
	b := NewBook()
	b.mu.Lock()
	b.timers = append(b.timers, Entry{
		Kind:    KindTimer,
		FiresAt: time.Now().Add(-time.Second),
		Label:   "pasta",
	})
	b.mu.Unlock()

	notifier := &recordingNotifier{}
	s := NewScheduler(zerolog.Nop(), b, notifier)
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	texts := notifier.announced()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "pasta")
	assert.Empty(t, b.Timers())
}

package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// pollInterval bounds firing latency to about one second.
const pollInterval = time.Second

// Notifier announces a fired entry to the user. Announcements go through
// the normal speech path and are interruptible like any other output.
type Notifier interface {
	Announce(ctx context.Context, text string)
}

// Scheduler polls the Book once per second and announces due entries.
// Announcements happen outside the Book's lock so a slow speech backend
// cannot block create or cancel operations.
type Scheduler struct {
	book     *Book
	notifier Notifier
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
}

// NewScheduler creates a Scheduler. Run must be called to start polling.
func NewScheduler(logger zerolog.Logger, book *Book, notifier Notifier) *Scheduler {
	return &Scheduler{
		book:     book,
		notifier: notifier,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		interval: pollInterval,
		now:      time.Now,
	}
}

// Run polls until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Msg("Scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context) {
	for _, e := range s.book.TakeDue(s.now()) {
		s.logger.Info().
			Str("kind", e.Kind.String()).
			Str("label", e.Label).
			Time("fires_at", e.FiresAt).
			Msg("Entry fired")
		s.notifier.Announce(ctx, announcement(e))
	}
}

func announcement(e Entry) string {
	switch {
	case e.Kind == KindTimer && e.Label != "":
		return fmt.Sprintf("Your %s timer is done!", e.Label)
	case e.Kind == KindTimer:
		return "Time's up! Your timer is done."
	case e.Label != "":
		return fmt.Sprintf("This is your %s alarm. It's %s.", e.Label, e.FiresAt.Format("3:04 PM"))
	default:
		return fmt.Sprintf("Alarm! It's %s.", e.FiresAt.Format("3:04 PM"))
	}
}

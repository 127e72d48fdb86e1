package wake

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/arthur/internal/audio"
)

const (
	// idleBackoff is the retry delay when the device is busy or a read
	// fails transiently.
	idleBackoff = 100 * time.Millisecond

	// errLogInterval rate-limits transient error logging.
	errLogInterval = 5 * time.Second

	eventQueueSize = 8
)

// Monitor runs wake detection for the process lifetime. Each iteration
// reads one frame under the device lock, releases it, then classifies.
// On a match it either requests an interrupt (while speech output is in
// progress) or enqueues a Trigger event. Transient errors are logged and
// the loop continues; this component never crashes the process.
type Monitor struct {
	classifier Classifier
	reader     FrameReader
	state      SpeechState
	events     chan Event
	logger     zerolog.Logger

	lastErrLog time.Time
}

// NewMonitor creates a Monitor. Run must be called to start detection.
func NewMonitor(logger zerolog.Logger, classifier Classifier, reader FrameReader, state SpeechState) *Monitor {
	return &Monitor{
		classifier: classifier,
		reader:     reader,
		state:      state,
		events:     make(chan Event, eventQueueSize),
		logger:     logger.With().Str("component", "wake-monitor").Logger(),
	}
}

// Events returns the trigger event queue. The orchestrator drains it and
// acts only on the most recent entry.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Run loops until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info().Msg("Wake monitor started")
	for {
		if ctx.Err() != nil {
			m.logger.Info().Msg("Wake monitor stopped")
			return
		}

		frame, err := m.reader.ReadMonitorFrame()
		if err != nil {
			if errors.Is(err, audio.ErrDeviceClosed) {
				m.logger.Info().Msg("Capture device closed, wake monitor stopped")
				return
			}
			if !errors.Is(err, audio.ErrDeviceBusy) {
				m.logTransient(err, "Frame read failed")
			}
			m.sleep(ctx, idleBackoff)
			continue
		}

		matched, err := m.classifier.Classify(frame)
		if err != nil {
			m.logTransient(err, "Classification failed")
			m.sleep(ctx, idleBackoff)
			continue
		}
		if !matched {
			continue
		}

		if m.state.Speaking() {
			// An interrupt during speech only halts the current output;
			// it never starts a new recording by itself.
			m.state.RequestInterrupt()
			m.logger.Info().Msg("Wake phrase during speech, interrupt requested")
			continue
		}

		m.enqueue(Event{Kind: Trigger, At: time.Now()})
		m.logger.Info().Msg("Wake phrase detected")
	}
}

// enqueue adds an event, evicting the oldest entry when the queue is
// full. Only the most recent trigger matters to the orchestrator.
func (m *Monitor) enqueue(ev Event) {
	for {
		select {
		case m.events <- ev:
			return
		default:
			select {
			case <-m.events:
			default:
			}
		}
	}
}

func (m *Monitor) logTransient(err error, msg string) {
	now := time.Now()
	if now.Sub(m.lastErrLog) < errLogInterval {
		return
	}
	m.lastErrLog = now
	m.logger.Warn().Err(err).Msg(msg)
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

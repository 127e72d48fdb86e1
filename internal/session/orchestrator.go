package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/arthur/internal/audio"
	"github.com/normanking/arthur/internal/llm"
	"github.com/normanking/arthur/internal/stt"
	"github.com/normanking/arthur/internal/tts"
	"github.com/normanking/arthur/internal/wake"
)

const (
	// eventPoll bounds how long the idle loop waits on the wake queue
	// before re-checking for shutdown.
	eventPoll = 100 * time.Millisecond

	// interruptSettle is the pause after halting speech before the
	// capture device is reclaimed, so the tail of our own output is not
	// recorded as user speech.
	interruptSettle = 300 * time.Millisecond
)

// Recording is an exclusive capture session. Close releases the device
// back to the wake monitor.
type Recording interface {
	audio.FrameSource
	Close() error
}

// Capturer hands out exclusive capture sessions.
type Capturer interface {
	AcquireRecorder(sampleRate, frameLen int) (Recording, error)
}

// Options tunes orchestrator behavior. Zero values get defaults.
type Options struct {
	SampleRate   int
	FrameSize    int
	SystemPrompt string
	// Acknowledgment is spoken after a wake trigger, before recording.
	Acknowledgment string
}

// Orchestrator drives one interaction at a time: wake trigger, record,
// transcribe, respond, speak, and back to idle. Every failure path ends
// in idle; nothing short of ctx cancellation stops the loop.
type Orchestrator struct {
	logger      zerolog.Logger
	opts        Options
	state       *State
	history     *History
	commands    *Commands
	capturer    Capturer
	segmenter   *audio.Segmenter
	transcriber stt.Provider
	filter      *stt.Filter
	backend     llm.Provider
	speaker     tts.Speaker
	events      <-chan wake.Event

	// speakMu serializes speech from the loop and from scheduler
	// announcements.
	speakMu sync.Mutex
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	State       *State
	History     *History
	Commands    *Commands
	Capturer    Capturer
	Segmenter   *audio.Segmenter
	Transcriber stt.Provider
	Backend     llm.Provider
	Speaker     tts.Speaker
	Events      <-chan wake.Event
}

// NewOrchestrator wires the conversation loop.
func NewOrchestrator(logger zerolog.Logger, opts Options, deps Deps) *Orchestrator {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.FrameSize <= 0 {
		opts.FrameSize = 512
	}
	if opts.Acknowledgment == "" {
		opts.Acknowledgment = "Yes?"
	}
	return &Orchestrator{
		logger:      logger.With().Str("component", "orchestrator").Logger(),
		opts:        opts,
		state:       deps.State,
		history:     deps.History,
		commands:    deps.Commands,
		capturer:    deps.Capturer,
		segmenter:   deps.Segmenter,
		transcriber: deps.Transcriber,
		filter:      stt.NewFilter(),
		backend:     deps.Backend,
		speaker:     deps.Speaker,
		events:      deps.Events,
	}
}

// Run processes wake events until ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info().Msg("Conversation loop started")
	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("Conversation loop stopped")
			return
		case ev := <-o.events:
			ev = o.coalesce(ev)
			o.handleTrigger(ctx, ev)
		case <-time.After(eventPoll):
		}
	}
}

// coalesce drains queued events and keeps only the most recent, so a
// burst of wake phrases produces a single listening episode.
func (o *Orchestrator) coalesce(ev wake.Event) wake.Event {
	for {
		select {
		case next := <-o.events:
			ev = next
		default:
			return ev
		}
	}
}

func (o *Orchestrator) handleTrigger(ctx context.Context, ev wake.Event) {
	o.logger.Info().Time("at", ev.At).Msg("Handling wake trigger")

	o.speak(ctx, o.opts.Acknowledgment)

	text, ok := o.listen(ctx)
	if !ok {
		o.speak(ctx, "Sorry, I didn't catch that.")
		return
	}
	o.logger.Info().Str("text", text).Msg("Utterance transcribed")

	if reply, handled := o.commands.Handle(ctx, text); handled {
		o.speak(ctx, reply)
		return
	}

	reply, err := o.backend.Chat(ctx, o.history.Messages(o.opts.SystemPrompt, text))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.logger.Error().Err(err).Msg("Backend exchange failed")
		o.speak(ctx, "Sorry, I'm having trouble thinking right now.")
		return
	}

	interrupted := o.speak(ctx, reply)
	o.history.Add(text, reply)
	if interrupted {
		o.logger.Info().Msg("Reply interrupted")
	}
}

// listen records one utterance and returns its cleaned transcript.
func (o *Orchestrator) listen(ctx context.Context) (string, bool) {
	rec, err := o.capturer.AcquireRecorder(o.opts.SampleRate, o.opts.FrameSize)
	if err != nil {
		o.logger.Error().Err(err).Msg("Recorder acquisition failed")
		return "", false
	}
	utt, err := o.segmenter.Capture(ctx, rec)
	closeErr := rec.Close()
	if closeErr != nil {
		o.logger.Warn().Err(closeErr).Msg("Recorder release failed")
	}
	if err != nil {
		if !errors.Is(err, audio.ErrNoSpeech) && ctx.Err() == nil {
			o.logger.Error().Err(err).Msg("Capture failed")
		}
		return "", false
	}

	result, err := o.transcriber.Transcribe(ctx, &stt.Request{
		WAV:        utt.WAV(),
		SampleRate: o.opts.SampleRate,
		Language:   "en",
	})
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Error().Err(err).Msg("Transcription failed")
		}
		return "", false
	}

	return o.filter.Clean(result.Text)
}

// speak voices text with interrupt support and reports whether the
// output was cut short. After an interrupt it waits for the settle
// period so playback tails drain before the device is reclaimed.
func (o *Orchestrator) speak(ctx context.Context, text string) bool {
	if text == "" {
		return false
	}

	o.speakMu.Lock()
	defer o.speakMu.Unlock()

	o.state.BeginSpeech()
	err := o.speaker.Speak(ctx, text, o.state.Interrupted)
	interrupted := o.state.Interrupted()
	o.state.EndSpeech()

	if err != nil && ctx.Err() == nil {
		o.logger.Error().Err(err).Msg("Speech output failed")
	}
	if interrupted {
		select {
		case <-ctx.Done():
		case <-time.After(interruptSettle):
		}
	}
	return interrupted
}

// Announce implements schedule.Notifier: alarm and timer firings go
// through the same interruptible speech path as replies.
func (o *Orchestrator) Announce(ctx context.Context, text string) {
	o.speak(ctx, text)
}

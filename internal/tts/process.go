package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// interruptPoll is how often a running sentence is checked for an
// interrupt request.
const interruptPoll = 50 * time.Millisecond

// ProcessSpeaker voices text through the system speech command: say on
// macOS, espeak elsewhere. It needs no API key and works offline.
type ProcessSpeaker struct {
	command string
	voice   string
	rate    int
	logger  zerolog.Logger
}

// ProcessConfig holds system speech command configuration.
type ProcessConfig struct {
	// Command overrides the platform default binary.
	Command string
	Voice   string
	// Rate is words per minute.
	Rate int
}

// NewProcessSpeaker creates the speaker with the platform's speech
// command unless overridden.
func NewProcessSpeaker(logger zerolog.Logger, cfg ProcessConfig) *ProcessSpeaker {
	command := cfg.Command
	if command == "" {
		if runtime.GOOS == "darwin" {
			command = "say"
		} else {
			command = "espeak"
		}
	}
	rate := cfg.Rate
	if rate <= 0 {
		rate = 180
	}
	return &ProcessSpeaker{
		command: command,
		voice:   cfg.Voice,
		rate:    rate,
		logger:  logger.With().Str("speaker", "process").Logger(),
	}
}

func (p *ProcessSpeaker) Name() string {
	return "process"
}

// Speak voices the text one sentence per process invocation, checking
// for an interrupt before each sentence and killing the running
// invocation when one arrives mid-sentence.
func (p *ProcessSpeaker) Speak(ctx context.Context, text string, interrupted func() bool) error {
	sentences := SplitSentences(text)
	for i, sentence := range sentences {
		if interrupted() {
			p.logger.Info().Int("spoken", i).Int("total", len(sentences)).Msg("Speech interrupted")
			return nil
		}
		if err := p.speakOne(ctx, sentence, interrupted); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProcessSpeaker) speakOne(ctx context.Context, sentence string, interrupted func() bool) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(interruptPoll)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if interrupted() {
					cancel()
					return
				}
			}
		}
	}()

	cmd := exec.CommandContext(runCtx, p.command, p.args(sentence)...)
	err := cmd.Run()
	if err != nil && runCtx.Err() != nil && ctx.Err() == nil {
		// Killed by the interrupt watcher.
		p.logger.Info().Msg("Speech interrupted mid-sentence")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", p.command, err)
	}
	return nil
}

func (p *ProcessSpeaker) args(sentence string) []string {
	var args []string
	if p.command == "say" {
		if p.voice != "" {
			args = append(args, "-v", p.voice)
		}
		args = append(args, "-r", strconv.Itoa(p.rate))
	} else {
		if p.voice != "" {
			args = append(args, "-v", p.voice)
		}
		args = append(args, "-s", strconv.Itoa(p.rate))
	}
	return append(args, sentence)
}

// Health verifies the speech command exists.
func (p *ProcessSpeaker) Health(ctx context.Context) error {
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("%w: %s not found", ErrSpeakerUnavailable, p.command)
	}
	return nil
}

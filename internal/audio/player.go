package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// playbackChunk is the number of samples written per playback cycle. The
// interrupt check runs between chunks, so this bounds how long a stop
// request can go unnoticed (4096 samples ≈ 170 ms at 24 kHz).
const playbackChunk = 4096

// Player renders 16-bit mono PCM through the default output device.
// Playback is cooperative: the interrupted callback is polled between
// chunks and playback stops early when it reports true.
type Player struct {
	logger zerolog.Logger
}

// NewPlayer creates a Player. The audio host must already be initialized
// (NewDevice does this).
func NewPlayer(logger zerolog.Logger) *Player {
	return &Player{logger: logger.With().Str("component", "player").Logger()}
}

// Play writes samples to the output device at the given rate. It returns
// early, without error, when interrupted reports true between chunks.
func (p *Player) Play(samples []int16, sampleRate int, interrupted func() bool) error {
	if len(samples) == 0 {
		return nil
	}

	buf := make([]int16, playbackChunk)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("open playback stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start playback stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += playbackChunk {
		if interrupted != nil && interrupted() {
			p.logger.Debug().Int("offset", off).Msg("Playback interrupted")
			return nil
		}

		end := off + playbackChunk
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(buf, samples[off:end])
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write playback frame: %w", err)
		}
	}
	return nil
}

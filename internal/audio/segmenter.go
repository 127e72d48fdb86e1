package audio

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SegmenterConfig holds voice activity segmentation parameters.
type SegmenterConfig struct {
	SampleRate     int           // samples per second
	FrameSize      int           // samples per frame
	Threshold      float64       // RMS energy threshold separating speech from silence
	SilenceDur     time.Duration // trailing silence that ends an utterance
	MinSpeechDur   time.Duration // minimum speech required for a valid utterance
	MaxRecordDur   time.Duration // hard cap on total recording length
	DebounceFrames int           // above-threshold frames required to enter the speaking state
	FlushFrames    int           // frames read and discarded before segmentation starts
	MinClipBytes   int           // serialized clips at or below this size are discarded
}

// DefaultSegmenterConfig returns the tuning used by the assistant:
// 16 kHz mono, 512-sample frames, 1.5 s trailing silence, 0.3 s minimum
// speech, 30 s cap.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		SampleRate:     16000,
		FrameSize:      512,
		Threshold:      500,
		SilenceDur:     1500 * time.Millisecond,
		MinSpeechDur:   300 * time.Millisecond,
		MaxRecordDur:   30 * time.Second,
		DebounceFrames: 2,
		FlushFrames:    5,
		MinClipBytes:   1000,
	}
}

// Segmenter turns a live frame stream into silence-delimited utterances
// using RMS energy analysis.
type Segmenter struct {
	config SegmenterConfig
	logger zerolog.Logger
}

// NewSegmenter creates a Segmenter with the given config. Zero-valued
// fields fall back to defaults.
func NewSegmenter(logger zerolog.Logger, config SegmenterConfig) *Segmenter {
	def := DefaultSegmenterConfig()
	if config.SampleRate <= 0 {
		config.SampleRate = def.SampleRate
	}
	if config.FrameSize <= 0 {
		config.FrameSize = def.FrameSize
	}
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.SilenceDur <= 0 {
		config.SilenceDur = def.SilenceDur
	}
	if config.MinSpeechDur <= 0 {
		config.MinSpeechDur = def.MinSpeechDur
	}
	if config.MaxRecordDur <= 0 {
		config.MaxRecordDur = def.MaxRecordDur
	}
	if config.DebounceFrames <= 0 {
		config.DebounceFrames = def.DebounceFrames
	}
	return &Segmenter{
		config: config,
		logger: logger.With().Str("component", "segmenter").Logger(),
	}
}

// framesFor converts a duration into a frame count at the configured rate.
func (s *Segmenter) framesFor(d time.Duration) int {
	return int(d.Seconds() * float64(s.config.SampleRate) / float64(s.config.FrameSize))
}

// Capture reads frames from src until speech followed by trailing silence
// is observed, the hard timeout elapses, or ctx is canceled. It returns
// ErrNoSpeech when the episode never reached the minimum speech threshold
// or the serialized clip is implausibly small.
//
// End-of-utterance rule: once the speaking sub-state has been entered and
// at least the minimum-speech frame count has been seen above threshold,
// the utterance ends as soon as consecutive below-threshold frames exceed
// the trailing-silence frame count.
func (s *Segmenter) Capture(ctx context.Context, src FrameSource) (*Utterance, error) {
	// Flush stale frames left over from the device hand-off.
	for i := 0; i < s.config.FlushFrames; i++ {
		if _, err := src.ReadFrame(); err != nil {
			return nil, err
		}
	}

	maxSilence := s.framesFor(s.config.SilenceDur)
	minSpeech := s.framesFor(s.config.MinSpeechDur)
	maxFrames := s.framesFor(s.config.MaxRecordDur)

	var (
		frames     [][]int16
		speechCnt  int
		silenceCnt int
		speaking   bool
	)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := src.ReadFrame()
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)

		if RMS(frame) > s.config.Threshold {
			speechCnt++
			silenceCnt = 0
			if !speaking && speechCnt >= s.config.DebounceFrames {
				speaking = true
				s.logger.Debug().Int("frame", i).Msg("Speech started")
			}
		} else {
			silenceCnt++
		}

		if speaking && speechCnt >= minSpeech && silenceCnt > maxSilence {
			s.logger.Debug().Int("frames", len(frames)).Msg("Speech ended")
			break
		}
	}

	if !speaking || speechCnt < minSpeech {
		return nil, ErrNoSpeech
	}

	utt := NewUtterance(frames, s.config.SampleRate)
	if s.config.MinClipBytes > 0 && len(utt.WAV()) <= s.config.MinClipBytes {
		return nil, ErrNoSpeech
	}

	s.logger.Info().
		Int("frames", utt.FrameCount()).
		Dur("duration", utt.Duration()).
		Msg("Utterance captured")
	return utt, nil
}

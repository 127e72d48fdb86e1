package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeSource replays a fixed sequence of frames, then silence forever.
type fakeSource struct {
	frames [][]int16
	pos    int
	err    error
}

func (f *fakeSource) ReadFrame() ([]int16, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.pos < len(f.frames) {
		frame := f.frames[f.pos]
		f.pos++
		return frame, nil
	}
	return make([]int16, 512), nil
}

func loudFrame(amplitude int16) []int16 {
	frame := make([]int16, 512)
	for i := range frame {
		frame[i] = amplitude
	}
	return frame
}

func quietFrame() []int16 {
	return make([]int16, 512)
}

func testConfig() SegmenterConfig {
	cfg := DefaultSegmenterConfig()
	cfg.FlushFrames = 0
	cfg.MinClipBytes = 0
	return cfg
}

func repeat(frame []int16, n int) [][]int16 {
	frames := make([][]int16, n)
	for i := range frames {
		frames[i] = frame
	}
	return frames
}

func TestSegmenter_SilenceOnly_ReturnsNoSpeech(t *testing.T) {
	s := NewSegmenter(zerolog.Nop(), testConfig())

	src := &fakeSource{}
	_, err := s.Capture(context.Background(), src)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
}

func TestSegmenter_SpeechThenSilence_ReturnsUtterance(t *testing.T) {
	s := NewSegmenter(zerolog.Nop(), testConfig())

	// 20 loud frames (> 0.3s min speech of ~9 frames), then silence.
	frames := repeat(loudFrame(2000), 20)
	src := &fakeSource{frames: frames}

	utt, err := s.Capture(context.Background(), src)
	if err != nil {
		t.Fatalf("expected utterance, got error: %v", err)
	}

	// maxSilence = 1.5s * 16000 / 512 = 46 frames; capture stops after
	// silenceCnt exceeds it: 20 speech + 47 silence frames.
	wantFrames := 20 + 46 + 1
	if utt.FrameCount() != wantFrames {
		t.Errorf("expected %d frames, got %d", wantFrames, utt.FrameCount())
	}

	maxFrames := int(30 * 16000 / 512)
	if utt.FrameCount() >= maxFrames {
		t.Errorf("expected capture to stop before the hard timeout (%d frames)", maxFrames)
	}
}

func TestSegmenter_SingleFrameSpike_DoesNotStartSpeech(t *testing.T) {
	s := NewSegmenter(zerolog.Nop(), testConfig())

	// One loud frame surrounded by silence never passes the 2-frame
	// debounce, so the speaking sub-state is never entered.
	frames := [][]int16{quietFrame(), loudFrame(3000), quietFrame()}
	src := &fakeSource{frames: frames}

	_, err := s.Capture(context.Background(), src)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech for single-frame spike, got %v", err)
	}
}

func TestSegmenter_ShortBurst_BelowMinimumSpeech(t *testing.T) {
	s := NewSegmenter(zerolog.Nop(), testConfig())

	// 3 loud frames enter the speaking state but stay below the ~9 frame
	// minimum-speech requirement.
	frames := repeat(loudFrame(2000), 3)
	src := &fakeSource{frames: frames}

	_, err := s.Capture(context.Background(), src)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech for short burst, got %v", err)
	}
}

func TestSegmenter_TinyClip_Discarded(t *testing.T) {
	cfg := testConfig()
	cfg.MinSpeechDur = 10 * time.Millisecond // 0 frames at 512/16k, bumped to debounce below
	cfg.SilenceDur = 32 * time.Millisecond   // 1 frame
	cfg.MinClipBytes = 1 << 20               // force the size guard to trip
	s := NewSegmenter(zerolog.Nop(), cfg)

	frames := repeat(loudFrame(2000), 5)
	src := &fakeSource{frames: frames}

	_, err := s.Capture(context.Background(), src)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech for implausibly small clip, got %v", err)
	}
}

func TestSegmenter_FlushFramesDiscarded(t *testing.T) {
	cfg := testConfig()
	cfg.FlushFrames = 5
	s := NewSegmenter(zerolog.Nop(), cfg)

	// The first 5 loud frames are flushed; the rest form the utterance.
	frames := repeat(loudFrame(2000), 25)
	src := &fakeSource{frames: frames}

	utt, err := s.Capture(context.Background(), src)
	if err != nil {
		t.Fatalf("expected utterance, got error: %v", err)
	}

	wantFrames := 20 + 46 + 1
	if utt.FrameCount() != wantFrames {
		t.Errorf("expected %d frames after flush, got %d", wantFrames, utt.FrameCount())
	}
}

func TestSegmenter_SourceErrorPropagates(t *testing.T) {
	s := NewSegmenter(zerolog.Nop(), testConfig())

	wantErr := errors.New("stream torn down")
	src := &fakeSource{err: wantErr}

	_, err := s.Capture(context.Background(), src)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected source error to propagate, got %v", err)
	}
}

func TestSegmenter_ContextCancellation(t *testing.T) {
	s := NewSegmenter(zerolog.Nop(), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Capture(ctx, &fakeSource{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUtterance_DurationAndPCM(t *testing.T) {
	frames := repeat(loudFrame(100), 4)
	utt := NewUtterance(frames, 16000)

	if got := utt.PCM(); len(got) != 4*512 {
		t.Errorf("expected %d samples, got %d", 4*512, len(got))
	}

	want := time.Duration(4*512) * time.Second / 16000
	if utt.Duration() != want {
		t.Errorf("expected duration %v, got %v", want, utt.Duration())
	}

	profile := utt.RMSProfile()
	if len(profile) != 4 {
		t.Fatalf("expected 4 profile entries, got %d", len(profile))
	}
	for i, rms := range profile {
		if rms < 99 || rms > 101 {
			t.Errorf("frame %d: expected RMS ≈ 100, got %f", i, rms)
		}
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	samples := make([]int16, 512)
	wav := EncodeWAV(samples, 16000, 1)

	if len(wav) != 44+1024 {
		t.Fatalf("expected 44-byte header + 1024 data bytes, got %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if string(wav[36:40]) != "data" {
		t.Error("missing data chunk marker")
	}
	// 16 kHz little-endian at offset 24.
	rate := int(wav[24]) | int(wav[25])<<8 | int(wav[26])<<16 | int(wav[27])<<24
	if rate != 16000 {
		t.Errorf("expected sample rate 16000 in header, got %d", rate)
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name  string
		frame []int16
		want  float64
	}{
		{"empty", nil, 0},
		{"silence", make([]int16, 512), 0},
		{"constant", loudFrame(1000), 1000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RMS(tc.frame)
			if got < tc.want-0.5 || got > tc.want+0.5 {
				t.Errorf("RMS = %f, want %f", got, tc.want)
			}
		})
	}
}

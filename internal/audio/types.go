// Package audio provides microphone capture, voice activity segmentation,
// and playback for Arthur. The capture device is an exclusive resource:
// at most one of the wake monitor or the recorder may read from it at a
// time, and every hand-off goes through the Device lock.
package audio

import (
	"errors"
	"math"
	"time"
)

// Common errors
var (
	// ErrNoSpeech reports a capture episode that never reached the minimum
	// speech threshold. It is a normal outcome, not a device failure.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrDeviceBusy reports an attempt to read the capture device while it
	// is owned by another component.
	ErrDeviceBusy = errors.New("capture device busy")

	ErrDeviceClosed = errors.New("capture device closed")
)

// FrameSource yields fixed-size blocks of signed 16-bit mono samples.
type FrameSource interface {
	// ReadFrame blocks until one frame is available. The returned slice is
	// owned by the caller.
	ReadFrame() ([]int16, error)
}

// Utterance is one silence-delimited span of captured speech.
type Utterance struct {
	frames     [][]int16
	sampleRate int
}

// NewUtterance builds an Utterance from captured frames.
func NewUtterance(frames [][]int16, sampleRate int) *Utterance {
	return &Utterance{frames: frames, sampleRate: sampleRate}
}

// FrameCount returns the number of captured frames.
func (u *Utterance) FrameCount() int {
	return len(u.frames)
}

// Duration returns the audio duration of the utterance.
func (u *Utterance) Duration() time.Duration {
	if u.sampleRate == 0 {
		return 0
	}
	samples := 0
	for _, f := range u.frames {
		samples += len(f)
	}
	return time.Duration(samples) * time.Second / time.Duration(u.sampleRate)
}

// PCM flattens the utterance into a single sample slice.
func (u *Utterance) PCM() []int16 {
	total := 0
	for _, f := range u.frames {
		total += len(f)
	}
	out := make([]int16, 0, total)
	for _, f := range u.frames {
		out = append(out, f...)
	}
	return out
}

// RMSProfile returns the per-frame RMS energy of the utterance.
func (u *Utterance) RMSProfile() []float64 {
	profile := make([]float64, len(u.frames))
	for i, f := range u.frames {
		profile[i] = RMS(f)
	}
	return profile
}

// WAV serializes the utterance as a 16-bit mono RIFF/WAVE clip.
func (u *Utterance) WAV() []byte {
	return EncodeWAV(u.PCM(), u.sampleRate, 1)
}

// RMS computes the root-mean-square energy of one frame of samples.
func RMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// Package wake provides wake phrase detection for Arthur. A background
// monitor classifies live capture frames and either raises a trigger
// event (start listening) or requests an interrupt of in-progress speech,
// depending on current session state.
package wake

import (
	"errors"
	"time"
)

// ErrClassifierUnavailable reports a classifier that cannot be initialized.
var ErrClassifierUnavailable = errors.New("wake classifier unavailable")

// Classifier detects the wake phrase in fixed-length PCM frames. It must
// be callable at the capture frame rate.
type Classifier interface {
	// Classify reports whether the frame completes a wake phrase match.
	Classify(frame []int16) (bool, error)

	// FrameLength returns the exact frame size Classify expects.
	FrameLength() int

	// SampleRate returns the sample rate Classify expects.
	SampleRate() int

	Close() error
}

// EventKind distinguishes wake monitor outputs.
type EventKind int

const (
	// Trigger starts a new listening episode.
	Trigger EventKind = iota
)

// Event is a wake detection, consumed at most once by the orchestrator.
type Event struct {
	Kind EventKind
	At   time.Time
}

// FrameReader yields monitor frames from the capture device. Reads fail
// with audio.ErrDeviceBusy while the recorder owns the device.
type FrameReader interface {
	ReadMonitorFrame() ([]int16, error)
}

// SpeechState exposes the session flags the monitor consults: whether
// speech output is in progress, and the idempotent interrupt request.
type SpeechState interface {
	Speaking() bool
	RequestInterrupt()
}

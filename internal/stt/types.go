// Package stt turns recorded utterances into text. Providers are
// selected by configuration; the orchestrator only sees the Provider
// interface.
package stt

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("stt provider unavailable")
	ErrAudioTooShort       = errors.New("audio too short for transcription")
)

// Request carries one utterance as a complete WAV clip.
type Request struct {
	WAV        []byte
	SampleRate int
	Language   string
}

// Result is a finished transcription.
type Result struct {
	Text           string
	Confidence     float64
	ProcessingTime time.Duration
}

// Provider transcribes one utterance at a time.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req *Request) (*Result, error)

	// Health reports whether the provider can accept work. Called once
	// at startup so misconfiguration fails fast instead of at the first
	// utterance.
	Health(ctx context.Context) error
}

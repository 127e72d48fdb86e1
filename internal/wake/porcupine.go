package wake

import (
	"fmt"

	porcupine "github.com/Picovoice/porcupine/binding/go/v3"
)

// PorcupineClassifier wraps the Picovoice Porcupine engine behind the
// Classifier interface.
type PorcupineClassifier struct {
	engine porcupine.Porcupine
}

// PorcupineConfig holds Porcupine engine configuration.
type PorcupineConfig struct {
	AccessKey   string
	KeywordPath string
	Sensitivity float32
}

// NewPorcupineClassifier initializes the Porcupine engine for a single
// custom keyword.
func NewPorcupineClassifier(cfg PorcupineConfig) (*PorcupineClassifier, error) {
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("%w: missing access key", ErrClassifierUnavailable)
	}
	if cfg.KeywordPath == "" {
		return nil, fmt.Errorf("%w: missing keyword path", ErrClassifierUnavailable)
	}
	sensitivity := cfg.Sensitivity
	if sensitivity <= 0 {
		sensitivity = 0.5
	}

	engine := porcupine.Porcupine{
		AccessKey:     cfg.AccessKey,
		KeywordPaths:  []string{cfg.KeywordPath},
		Sensitivities: []float32{sensitivity},
	}
	if err := engine.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	return &PorcupineClassifier{engine: engine}, nil
}

// Classify reports whether the frame completes the wake phrase.
func (c *PorcupineClassifier) Classify(frame []int16) (bool, error) {
	idx, err := c.engine.Process(frame)
	if err != nil {
		return false, fmt.Errorf("porcupine process: %w", err)
	}
	return idx >= 0, nil
}

// FrameLength returns the engine's required frame size.
func (c *PorcupineClassifier) FrameLength() int {
	return porcupine.FrameLength
}

// SampleRate returns the engine's required sample rate.
func (c *PorcupineClassifier) SampleRate() int {
	return porcupine.SampleRate
}

// Close releases engine resources.
func (c *PorcupineClassifier) Close() error {
	return c.engine.Delete()
}

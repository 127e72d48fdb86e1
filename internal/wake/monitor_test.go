package wake

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/arthur/internal/audio"
)

// scriptedClassifier matches on the frame indices listed in matchAt.
type scriptedClassifier struct {
	mu      sync.Mutex
	calls   int
	matchAt map[int]bool
	err     error
}

func (c *scriptedClassifier) Classify(frame []int16) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.calls
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.matchAt[idx], nil
}

func (c *scriptedClassifier) FrameLength() int { return 512 }
func (c *scriptedClassifier) SampleRate() int  { return 16000 }
func (c *scriptedClassifier) Close() error     { return nil }

type stubReader struct {
	busyAfter int32
	reads     int32
}

func (r *stubReader) ReadMonitorFrame() ([]int16, error) {
	n := atomic.AddInt32(&r.reads, 1)
	if r.busyAfter > 0 && n > r.busyAfter {
		return nil, audio.ErrDeviceClosed
	}
	return make([]int16, 512), nil
}

type fakeState struct {
	speaking   atomic.Bool
	interrupts atomic.Int32
}

func (s *fakeState) Speaking() bool    { return s.speaking.Load() }
func (s *fakeState) RequestInterrupt() { s.interrupts.Add(1) }

func TestMonitor_TriggerWhenIdle(t *testing.T) {
	classifier := &scriptedClassifier{matchAt: map[int]bool{2: true}}
	reader := &stubReader{busyAfter: 10}
	state := &fakeState{}

	m := NewMonitor(zerolog.Nop(), classifier, reader, state)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case ev := <-m.Events():
		if ev.Kind != Trigger {
			t.Errorf("expected Trigger event, got %v", ev.Kind)
		}
		if ev.At.IsZero() {
			t.Error("expected event timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a trigger event")
	}

	<-done
	if got := state.interrupts.Load(); got != 0 {
		t.Errorf("expected no interrupts while idle, got %d", got)
	}
}

func TestMonitor_InterruptWhileSpeaking(t *testing.T) {
	classifier := &scriptedClassifier{matchAt: map[int]bool{1: true}}
	reader := &stubReader{busyAfter: 10}
	state := &fakeState{}
	state.speaking.Store(true)

	m := NewMonitor(zerolog.Nop(), classifier, reader, state)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Run(ctx)

	if got := state.interrupts.Load(); got != 1 {
		t.Errorf("expected 1 interrupt request, got %d", got)
	}
	select {
	case <-m.Events():
		t.Error("a match during speech must not enqueue a trigger event")
	default:
	}
}

func TestMonitor_QueueEvictsOldestTrigger(t *testing.T) {
	m := NewMonitor(zerolog.Nop(), &scriptedClassifier{}, &stubReader{}, &fakeState{})

	first := Event{Kind: Trigger, At: time.Unix(1, 0)}
	m.enqueue(first)
	for i := 0; i < eventQueueSize+3; i++ {
		m.enqueue(Event{Kind: Trigger, At: time.Unix(int64(i+2), 0)})
	}

	// The queue holds the most recent events; the earliest ones are gone.
	var last Event
	for {
		select {
		case ev := <-m.Events():
			last = ev
			continue
		default:
		}
		break
	}
	if last.At.Unix() != int64(eventQueueSize+4) {
		t.Errorf("expected newest event to survive, got timestamp %d", last.At.Unix())
	}
}

func TestMonitor_SurvivesClassifierErrors(t *testing.T) {
	classifier := &scriptedClassifier{err: context.DeadlineExceeded}
	reader := &stubReader{busyAfter: 3}
	m := NewMonitor(zerolog.Nop(), classifier, reader, &fakeState{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Run must return via the closed-device path, not panic or exit on
	// the classifier error.
	m.Run(ctx)

	if classifier.calls < 1 {
		t.Error("expected the classifier to have been called")
	}
}

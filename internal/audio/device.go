package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// Owner identifies which component currently holds the capture device.
type Owner int

const (
	OwnerNone Owner = iota
	OwnerMonitor
	OwnerRecorder
)

func (o Owner) String() string {
	switch o {
	case OwnerMonitor:
		return "monitor"
	case OwnerRecorder:
		return "recorder"
	default:
		return "none"
	}
}

// Device wraps the exclusive microphone handle. The wake monitor keeps a
// long-lived stream open; recording stops that stream, opens a dedicated
// one, and restores the monitor stream afterward. All transitions happen
// under the device lock.
type Device struct {
	mu     sync.Mutex
	logger zerolog.Logger

	inputIndex int
	owner      Owner
	closed     bool

	monitor    *portaudio.Stream
	monitorBuf []int16
}

// NewDevice initializes the audio host and returns the capture device
// handle. inputIndex selects a capture device; pass -1 for the default.
func NewDevice(logger zerolog.Logger, inputIndex int) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio host: %w", err)
	}
	return &Device{
		logger:     logger.With().Str("component", "audio-device").Logger(),
		inputIndex: inputIndex,
		owner:      OwnerNone,
	}, nil
}

// inputDevice resolves the configured capture device.
func (d *Device) inputDevice() (*portaudio.DeviceInfo, error) {
	if d.inputIndex < 0 {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if d.inputIndex >= len(devices) {
		return nil, fmt.Errorf("input device index %d out of range (%d devices)", d.inputIndex, len(devices))
	}
	dev := devices[d.inputIndex]
	if dev.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", dev.Name)
	}
	return dev, nil
}

func (d *Device) openInputStream(sampleRate, frameLen int, buf []int16) (*portaudio.Stream, error) {
	dev, err := d.inputDevice()
	if err != nil {
		return nil, err
	}
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = frameLen
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open capture stream: %w", err)
	}
	return stream, nil
}

// StartMonitor opens the wake monitor's long-lived capture stream and
// hands device ownership to the monitor.
func (d *Device) StartMonitor(sampleRate, frameLen int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if d.owner == OwnerRecorder {
		return ErrDeviceBusy
	}
	if d.monitor != nil {
		return nil
	}

	d.monitorBuf = make([]int16, frameLen)
	stream, err := d.openInputStream(sampleRate, frameLen, d.monitorBuf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start capture stream: %w", err)
	}

	d.monitor = stream
	d.owner = OwnerMonitor
	d.logger.Info().Int("sampleRate", sampleRate).Int("frameLen", frameLen).Msg("Monitor stream started")
	return nil
}

// ReadMonitorFrame reads one frame from the monitor stream. The lock is
// held only for the read, never for classification. Returns ErrDeviceBusy
// while the recorder owns the device.
func (d *Device) ReadMonitorFrame() ([]int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	if d.owner != OwnerMonitor || d.monitor == nil {
		return nil, ErrDeviceBusy
	}
	if err := d.monitor.Read(); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	frame := make([]int16, len(d.monitorBuf))
	copy(frame, d.monitorBuf)
	return frame, nil
}

// Recorder is a dedicated capture stream handed off from the monitor.
// Closing it restores the monitor stream.
type Recorder struct {
	device *Device
	stream *portaudio.Stream
	buf    []int16
}

// AcquireRecorder performs the exclusive device hand-off: the monitor
// stream is stopped, a dedicated recording stream is opened, and device
// ownership moves to the recorder. Wake detection is unavailable until
// the recorder is closed; that gap is bounded by the recording timeout.
func (d *Device) AcquireRecorder(sampleRate, frameLen int) (*Recorder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	if d.owner == OwnerRecorder {
		return nil, ErrDeviceBusy
	}

	if d.monitor != nil {
		if err := d.monitor.Stop(); err != nil {
			return nil, fmt.Errorf("stop monitor stream: %w", err)
		}
	}

	buf := make([]int16, frameLen)
	stream, err := d.openInputStream(sampleRate, frameLen, buf)
	if err != nil {
		d.restartMonitorLocked()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		d.restartMonitorLocked()
		return nil, fmt.Errorf("start recording stream: %w", err)
	}

	d.owner = OwnerRecorder
	d.logger.Debug().Msg("Device handed off to recorder")
	return &Recorder{device: d, stream: stream, buf: buf}, nil
}

// ReadFrame reads one frame from the recording stream.
func (r *Recorder) ReadFrame() ([]int16, error) {
	if err := r.stream.Read(); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	frame := make([]int16, len(r.buf))
	copy(frame, r.buf)
	return frame, nil
}

// Close releases the recording stream and returns the device to the
// monitor.
func (r *Recorder) Close() error {
	d := r.device
	d.mu.Lock()
	defer d.mu.Unlock()

	r.stream.Stop()
	err := r.stream.Close()

	d.restartMonitorLocked()
	d.logger.Debug().Msg("Device handed back to monitor")
	return err
}

func (d *Device) restartMonitorLocked() {
	if d.monitor != nil && !d.closed {
		if err := d.monitor.Start(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to restart monitor stream")
			d.owner = OwnerNone
			return
		}
		d.owner = OwnerMonitor
		return
	}
	d.owner = OwnerNone
}

// CurrentOwner reports which component holds the device.
func (d *Device) CurrentOwner() Owner {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner
}

// Close tears down all streams and the audio host.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.monitor != nil {
		d.monitor.Stop()
		d.monitor.Close()
		d.monitor = nil
	}
	d.owner = OwnerNone
	return portaudio.Terminate()
}

package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DeviceDescription describes one capture-capable device.
type DeviceDescription struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListInputDevices enumerates capture-capable devices. The audio host is
// initialized and torn down around the enumeration, so this is safe to
// call before NewDevice.
func ListInputDevices() ([]DeviceDescription, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio host: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()

	var out []DeviceDescription
	for i, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceDescription{
			Index:             i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         defaultIn != nil && dev.Name == defaultIn.Name,
		})
	}
	return out, nil
}

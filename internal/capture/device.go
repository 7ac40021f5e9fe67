package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/farcloser/primordium/fault"
	"github.com/gordonklaus/portaudio"
)

// ErrNoInputDevice is returned when no device matches or the system has no input at all.
var ErrNoInputDevice = errors.New("no input device")

const maxCaptureChannels = 2

// DefaultDevice selects the system default input in Open.
const DefaultDevice = -1

// Device describes one input device. Index is the value Open expects.
type Device struct {
	Index      int
	Name       string
	HostAPI    string
	Channels   int
	SampleRate float64
	Default    bool
}

// Devices lists input-capable devices in host order.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio: %w", fault.ErrMissingRequirements, err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	var devices []Device

	for index, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}

		device := Device{
			Index:      index,
			Name:       info.Name,
			Channels:   info.MaxInputChannels,
			SampleRate: info.DefaultSampleRate,
			Default:    info.Name == defaultName,
		}

		if info.HostApi != nil {
			device.HostAPI = info.HostApi.Name
		}

		devices = append(devices, device)
	}

	return devices, nil
}

// Stream is a running capture feeding a Ring.
type Stream struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	ring     *Ring
	channels int
	name     string
	closed   bool
}

// Open starts capturing from the device at index (as listed by Devices), or the default input device
// for DefaultDevice. The ring is sized for the device's default sample rate.
func Open(index int) (*Stream, error) {
	slog.Debug("capture.Open", "device", index, "stage", "start")

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio: %w", fault.ErrMissingRequirements, err)
	}

	info, err := findInput(index)
	if err != nil {
		_ = portaudio.Terminate()

		return nil, err
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = min(info.MaxInputChannels, maxCaptureChannels)

	capture := &Stream{
		ring:     NewRing(int(params.SampleRate)),
		channels: params.Input.Channels,
		name:     info.Name,
	}

	capture.stream, err = portaudio.OpenStream(params, capture.callback)
	if err != nil {
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("%w: open %q: %w", fault.ErrCommandFailure, info.Name, err)
	}

	if err = capture.stream.Start(); err != nil {
		_ = capture.stream.Close()
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("%w: start %q: %w", fault.ErrCommandFailure, info.Name, err)
	}

	slog.Debug("capture.Open", "device", info.Name, "rate", params.SampleRate,
		"channels", capture.channels, "stage", "done")

	return capture, nil
}

func findInput(index int) (*portaudio.DeviceInfo, error) {
	if index == DefaultDevice {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoInputDevice, err)
		}

		if info == nil {
			return nil, ErrNoInputDevice
		}

		return info, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	if index < 0 || index >= len(infos) || infos[index].MaxInputChannels <= 0 {
		return nil, fmt.Errorf("%w: no input at index %d", ErrNoInputDevice, index)
	}

	return infos[index], nil
}

func (s *Stream) callback(in []float32) {
	s.ring.Push(in, s.channels)
}

// Ring is the buffer this stream writes into.
func (s *Stream) Ring() *Ring { return s.ring }

// Name is the device name.
func (s *Stream) Name() string { return s.name }

// Close stops the device. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	err := errors.Join(s.stream.Stop(), s.stream.Close())
	if termErr := portaudio.Terminate(); termErr != nil {
		err = errors.Join(err, termErr)
	}

	slog.Debug("capture.Close", "device", s.name)

	return err
}

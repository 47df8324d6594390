package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/sonido-labs/keyscope/logging"
)

// DeviceInfo describes one capture device visible to the host audio API
type DeviceInfo struct {
	Index      int
	Name       string
	Channels   int
	SampleRate int
	Default    bool
}

// ListDevices enumerates the available audio input devices
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio host: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()

	var out []DeviceInfo
	for i, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:      i,
			Name:       d.Name,
			Channels:   d.MaxInputChannels,
			SampleRate: int(d.DefaultSampleRate),
			Default:    defaultIn != nil && d.Name == defaultIn.Name,
		})
	}
	return out, nil
}

// DeviceSourceConfig holds capture parameters
type DeviceSourceConfig struct {
	DeviceIndex int // -1 selects the system default input
	SampleRate  int
	Channels    int
	BlockSize   int // samples per channel per frame
}

// DefaultDeviceSourceConfig returns capture defaults
func DefaultDeviceSourceConfig() DeviceSourceConfig {
	return DeviceSourceConfig{
		DeviceIndex: -1,
		SampleRate:  44100,
		Channels:    1,
		BlockSize:   2048,
	}
}

// DeviceSource captures live audio from an input device. The audio callback
// runs on the host API's real-time thread, so it only copies the buffer and
// hands it off non-blocking; if the consumer stalls, frames are dropped at
// the boundary and counted rather than stalling capture.
type DeviceSource struct {
	config DeviceSourceConfig

	frames chan Frame
	errs   chan error

	mu       sync.Mutex
	stream   *portaudio.Stream
	started  bool
	closed   bool
	dropped  atomic.Int64
	initDone bool
}

// NewDeviceSource creates a source capturing from an input device
func NewDeviceSource(config DeviceSourceConfig) *DeviceSource {
	if config.SampleRate <= 0 {
		config.SampleRate = 44100
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.BlockSize <= 0 {
		config.BlockSize = 2048
	}
	return &DeviceSource{
		config: config,
		frames: make(chan Frame, 16),
		errs:   make(chan error, 1),
	}
}

// Start opens the device and begins capture. Fails fast when the device
// does not exist or cannot be opened.
func (ds *DeviceSource) Start(ctx context.Context) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return ErrSourceClosed
	}
	if ds.started {
		return fmt.Errorf("device source already started")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio host: %w", err)
	}
	ds.initDone = true

	device, err := ds.selectDevice()
	if err != nil {
		portaudio.Terminate()
		ds.initDone = false
		return err
	}

	logging.Debug("Opening capture device", logging.Fields{
		"component":   "device_source",
		"device":      device.Name,
		"sample_rate": ds.config.SampleRate,
		"channels":    ds.config.Channels,
	})

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: ds.config.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(ds.config.SampleRate),
		FramesPerBuffer: ds.config.BlockSize,
	}

	stream, err := portaudio.OpenStream(params, ds.capture)
	if err != nil {
		portaudio.Terminate()
		ds.initDone = false
		return fmt.Errorf("failed to open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		ds.initDone = false
		return fmt.Errorf("failed to start capture: %w", err)
	}

	ds.stream = stream
	ds.started = true

	// Close the source when the context ends
	go func() {
		<-ctx.Done()
		ds.Close()
	}()

	return nil
}

// capture is the real-time audio callback
func (ds *DeviceSource) capture(in []float32) {
	samples := make([]float64, len(in))
	for i, v := range in {
		samples[i] = float64(v)
	}
	frame := Frame{
		Samples:    samples,
		SampleRate: ds.config.SampleRate,
		Channels:   ds.config.Channels,
		Timestamp:  time.Now(),
	}
	select {
	case ds.frames <- frame:
	default:
		ds.dropped.Add(1)
	}
}

func (ds *DeviceSource) selectDevice() (*portaudio.DeviceInfo, error) {
	if ds.config.DeviceIndex < 0 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if ds.config.DeviceIndex >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (%d devices)", ds.config.DeviceIndex, len(devices))
	}
	device := devices[ds.config.DeviceIndex]
	if device.MaxInputChannels < ds.config.Channels {
		return nil, fmt.Errorf("device %q supports %d input channels, need %d",
			device.Name, device.MaxInputChannels, ds.config.Channels)
	}
	return device, nil
}

// Frames returns the capture frame stream
func (ds *DeviceSource) Frames() <-chan Frame { return ds.frames }

// Errors returns the error stream
func (ds *DeviceSource) Errors() <-chan error { return ds.errs }

// SampleRate returns the capture sample rate
func (ds *DeviceSource) SampleRate() int { return ds.config.SampleRate }

// Channels returns the capture channel count
func (ds *DeviceSource) Channels() int { return ds.config.Channels }

// DroppedFrames returns the number of frames discarded because the consumer
// could not keep up with the capture callback.
func (ds *DeviceSource) DroppedFrames() int64 { return ds.dropped.Load() }

// Close stops capture and releases the device. Idempotent.
func (ds *DeviceSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return nil
	}
	ds.closed = true

	var err error
	if ds.stream != nil {
		if stopErr := ds.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := ds.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		ds.stream = nil
	}
	if ds.initDone {
		portaudio.Terminate()
		ds.initDone = false
	}
	close(ds.frames)
	return err
}

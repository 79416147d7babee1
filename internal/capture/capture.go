package capture

import (
	"fmt"

	"github.com/skypro1111/capture-audio-service/internal/audio"
)

// Callback is invoked once per captured frame. The backend guarantees the
// sample data is non-empty and the format descriptor is fully populated
// before invocation. The callback must not block; it runs in the backend's
// real-time capture context.
type Callback func(sample audio.Sample)

// Backend is the capability interface implemented by platform capture
// backends. Implementations are injected into the pipeline rather than
// constructed by it.
type Backend interface {
	// Start begins capture. The callback set via SetCallback starts
	// receiving samples once Start returns.
	Start() error

	// Stop ends capture. No callbacks are delivered after Stop returns.
	Stop() error

	// IsCapturing reports whether capture is running.
	IsCapturing() bool

	// SetCallback installs the sample callback. Must be called before Start.
	SetCallback(cb Callback)

	// Format returns the native format the backend captures in.
	Format() audio.Format

	// Devices lists the names of available input devices.
	Devices() ([]string, error)

	// SetDevice selects the capture device by name. An empty name selects
	// the system default.
	SetDevice(name string) error
}

// New creates a capture backend by name. Supported backends: "portaudio".
func New(backend, device string, sampleRate, channels int) (Backend, error) {
	switch backend {
	case "", "portaudio":
		return NewPortAudio(device, sampleRate, channels)
	default:
		return nil, fmt.Errorf("unknown capture backend %q", backend)
	}
}

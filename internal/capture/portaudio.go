package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/skypro1111/capture-audio-service/internal/audio"
)

// framesPerBuffer is the capture block size handed to PortAudio. 512 frames
// is ~21 ms at 24 kHz, small enough to keep callback latency low.
const framesPerBuffer = 512

var captureStart = time.Now()

// PortAudio is a portable capture backend built on the PortAudio library.
// It delivers interleaved 32-bit float samples at the configured rate.
type PortAudio struct {
	deviceName string
	format     audio.Format

	stream   *portaudio.Stream
	buffer   []float32
	callback Callback

	capturing bool
	done      chan struct{}
	wg        sync.WaitGroup

	mu sync.Mutex
}

// NewPortAudio initializes PortAudio and prepares a backend capturing
// float32 samples at the given rate and channel count.
func NewPortAudio(device string, sampleRate, channels int) (*PortAudio, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("channels must be at least 1, got %d", channels)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &PortAudio{
		deviceName: device,
		format: audio.Format{
			SampleRate:    sampleRate,
			Channels:      channels,
			BitsPerSample: audio.BitDepth32,
			IsFloat:       true,
		},
		buffer: make([]float32, framesPerBuffer*channels),
	}, nil
}

// SetCallback installs the sample callback. Must be called before Start.
func (p *PortAudio) SetCallback(cb Callback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback = cb
}

// Format returns the native capture format.
func (p *PortAudio) Format() audio.Format {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// Devices lists the names of available input devices.
func (p *PortAudio) Devices() ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// SetDevice selects the capture device by name. An empty name selects the
// system default. Takes effect on the next Start.
func (p *PortAudio) SetDevice(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capturing {
		return fmt.Errorf("cannot change device while capturing")
	}
	p.deviceName = name
	return nil
}

// IsCapturing reports whether capture is running.
func (p *PortAudio) IsCapturing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capturing
}

// Start opens the input stream and begins delivering samples to the callback
// from a reader goroutine.
func (p *PortAudio) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capturing {
		return nil
	}

	device, err := p.findDevice()
	if err != nil {
		return err
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = p.format.Channels
	params.SampleRate = float64(p.format.SampleRate)
	params.FramesPerBuffer = framesPerBuffer

	stream, err := portaudio.OpenStream(params, p.buffer)
	if err != nil {
		return fmt.Errorf("failed to open capture stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start capture stream: %w", err)
	}

	p.stream = stream
	p.capturing = true
	p.done = make(chan struct{})

	p.wg.Add(1)
	go p.readLoop(p.done)

	return nil
}

// Stop ends capture and waits for the reader goroutine to exit.
func (p *PortAudio) Stop() error {
	p.mu.Lock()
	if !p.capturing {
		p.mu.Unlock()
		return nil
	}
	p.capturing = false
	close(p.done)
	stream := p.stream
	p.stream = nil
	p.mu.Unlock()

	p.wg.Wait()

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop capture stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close capture stream: %w", err)
	}
	return nil
}

// Close releases the PortAudio runtime. The backend is unusable afterwards.
func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

// findDevice resolves the configured device name, falling back to the system
// default input. Caller must hold the lock.
func (p *PortAudio) findDevice() (*portaudio.DeviceInfo, error) {
	if p.deviceName == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == p.deviceName && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("input device not found: %s", p.deviceName)
}

// readLoop reads capture blocks and converts them into audio.Sample records
// for the callback.
func (p *PortAudio) readLoop(done chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-done:
			return
		default:
		}

		p.mu.Lock()
		stream := p.stream
		cb := p.callback
		format := p.format
		p.mu.Unlock()

		if stream == nil {
			return
		}

		if err := stream.Read(); err != nil {
			// Overflows happen when the consumer stalls; skip the block.
			continue
		}

		if cb == nil {
			continue
		}

		data := make([]byte, len(p.buffer)*4)
		for i, v := range p.buffer {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
		}

		cb(audio.Sample{
			Data:       data,
			Format:     format,
			Timestamp:  uint64(time.Since(captureStart) / time.Millisecond),
			FrameCount: len(p.buffer) / format.Channels,
		})
	}
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/capture-audio-service/internal/audio"
	"github.com/skypro1111/capture-audio-service/internal/capture"
	"github.com/skypro1111/capture-audio-service/internal/metrics"
	"github.com/skypro1111/capture-audio-service/internal/vad"
)

// ChunkHandler receives drained PCM16 chunks in arrival order. speech is the
// VAD decision for the chunk; when VAD is disabled every chunk reports true.
type ChunkHandler func(chunk audio.Chunk, speech bool)

// Config contains pipeline tuning parameters.
type Config struct {
	SampleRate      int           // capture sample rate, Hz
	BatchSize       int           // chunks per drain pass
	DrainInterval   time.Duration // how often the consumer loop polls
	VADEnabled      bool
	VADMode         int // 0-3
	FrameDurationMs int // 10, 20 or 30
}

// Pipeline is a single capture session: one producer (the backend callback),
// one logical consumer (the drain loop). The backend callback never blocks;
// the bounded buffer absorbs bursts and evicts the oldest audio when the
// consumer falls behind.
type Pipeline struct {
	id       string
	backend  capture.Backend
	buffer   *audio.Buffer
	detector *vad.Detector
	framer   *Framer
	handler  ChunkHandler
	logger   *slog.Logger
	metrics  *metrics.Metrics
	config   Config

	// Statistics
	samplesCaptured uint64
	decodeFailures  uint64
	chunksDelivered uint64
	startTime       time.Time

	// Eviction counters last reported to metrics
	reportedEvictedChunks uint64
	reportedEvictedBytes  uint64

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu sync.RWMutex
}

// Stats represents pipeline state for monitoring.
type Stats struct {
	ID              string             `json:"id"`
	Running         bool               `json:"running"`
	UptimeSeconds   float64            `json:"uptime_seconds"`
	SamplesCaptured uint64             `json:"samples_captured"`
	DecodeFailures  uint64             `json:"decode_failures"`
	ChunksDelivered uint64             `json:"chunks_delivered"`
	Buffer          audio.BufferStats  `json:"buffer"`
	VAD             *vad.DetectorStats `json:"vad,omitempty"`
}

// New creates a pipeline around an injected capture backend. The metrics
// argument may be nil; stats are then tracked internally only.
func New(backend capture.Backend, buffer *audio.Buffer, logger *slog.Logger,
	m *metrics.Metrics, config Config) (*Pipeline, error) {

	if backend == nil {
		return nil, fmt.Errorf("capture backend is required")
	}
	if buffer == nil {
		return nil, fmt.Errorf("buffer is required")
	}
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = audio.DefaultBatchSize
	}
	if config.DrainInterval <= 0 {
		config.DrainInterval = 100 * time.Millisecond
	}
	if config.FrameDurationMs == 0 {
		config.FrameDurationMs = 20
	}

	p := &Pipeline{
		id:      uuid.NewString(),
		backend: backend,
		buffer:  buffer,
		logger:  logger,
		metrics: m,
		config:  config,
	}

	if config.VADEnabled {
		detector, err := vad.NewDetector(config.SampleRate, config.VADMode)
		if err != nil {
			return nil, fmt.Errorf("failed to create VAD detector: %w", err)
		}
		p.detector = detector
		p.framer = NewFramer(vad.FrameLength(config.SampleRate, config.FrameDurationMs))
	}

	return p, nil
}

// ID returns the session identifier.
func (p *Pipeline) ID() string {
	return p.id
}

// Buffer returns the bounded buffer backing this pipeline.
func (p *Pipeline) Buffer() *audio.Buffer {
	return p.buffer
}

// SetChunkHandler installs the consumer handler. Must be called before Start.
func (p *Pipeline) SetChunkHandler(handler ChunkHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

// Start wires the capture callback and launches the drain loop.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.startTime = time.Now()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	p.backend.SetCallback(p.onAudioData)

	if err := p.backend.Start(); err != nil {
		p.mu.Lock()
		p.running = false
		p.cancel()
		p.mu.Unlock()
		return fmt.Errorf("failed to start capture backend: %w", err)
	}

	p.wg.Add(1)
	go p.drainLoop()

	p.logger.Info("Pipeline started",
		slog.String("session_id", p.id),
		slog.Int("sample_rate", p.config.SampleRate),
		slog.Bool("vad_enabled", p.config.VADEnabled),
		slog.Duration("drain_interval", p.config.DrainInterval),
	)

	return nil
}

// Stop halts capture, stops the drain loop, and drains any remaining chunks
// to the handler.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	stopErr := p.backend.Stop()
	p.wg.Wait()

	// Final drain so a clean shutdown loses no buffered audio.
	p.drainOnce()

	p.logger.Info("Pipeline stopped",
		slog.String("session_id", p.id),
		slog.Uint64("samples_captured", p.samplesSnapshot()),
		slog.Uint64("chunks_delivered", p.deliveredSnapshot()),
	)

	if stopErr != nil {
		return fmt.Errorf("failed to stop capture backend: %w", stopErr)
	}
	return nil
}

// onAudioData is the backend callback: decode one raw sample into both
// canonical representations and push them into the buffer. Runs in the
// backend's capture context, so it must never block on anything but the
// buffer lock.
func (p *Pipeline) onAudioData(sample audio.Sample) {
	floatSamples := audio.DecodeToMonoFloat32(sample)
	pcmSamples := audio.DecodeToPCM16(sample, 1)

	if len(floatSamples) == 0 && len(pcmSamples) == 0 {
		// Unsupported or malformed frame; skip it, the stream continues.
		p.mu.Lock()
		p.decodeFailures++
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.RecordDecodeFailure()
		}
		return
	}

	if len(floatSamples) > 0 {
		p.buffer.PushFloat32(floatSamples, sample.Format.SampleRate, 1)
		if p.metrics != nil {
			p.metrics.RecordChunkPushed("float32")
		}
	}
	if len(pcmSamples) > 0 {
		p.buffer.Push(pcmSamples, sample.Format.SampleRate, 1)
		if p.metrics != nil {
			p.metrics.RecordChunkPushed("pcm16")
		}
	}

	p.mu.Lock()
	p.samplesCaptured++
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordSampleCaptured(sample.FrameCount)
		p.publishBufferMetrics()
	}
}

// drainLoop polls the buffer and hands chunks to the consumer handler.
func (p *Pipeline) drainLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.drainOnce()
		}
	}
}

// drainOnce performs a single batch pop and delivery pass.
func (p *Pipeline) drainOnce() {
	chunks := p.buffer.PopBatch(p.config.BatchSize)
	if len(chunks) == 0 {
		return
	}

	if p.metrics != nil {
		p.metrics.RecordChunksPopped("pcm16", len(chunks))
		p.publishBufferMetrics()
	}

	p.mu.RLock()
	handler := p.handler
	p.mu.RUnlock()

	for _, chunk := range chunks {
		speech := p.evaluateSpeech(chunk)

		if handler != nil {
			handler(chunk, speech)
		}

		p.mu.Lock()
		p.chunksDelivered++
		p.mu.Unlock()
	}
}

// evaluateSpeech runs the chunk's samples through the VAD in fixed-duration
// frames and reports whether any frame carried speech. With VAD disabled
// every chunk passes.
func (p *Pipeline) evaluateSpeech(chunk audio.Chunk) bool {
	if p.detector == nil {
		return true
	}

	p.framer.Add(chunk.Samples)

	speech := false
	for {
		frame, ok := p.framer.Next()
		if !ok {
			break
		}

		hasSpeech := p.detector.IsSpeech(frame)
		if hasSpeech {
			speech = true
		}
		if p.metrics != nil {
			p.metrics.RecordVADFrame(hasSpeech)
		}
	}

	return speech
}

// publishBufferMetrics pushes buffer gauges and eviction deltas to Prometheus.
func (p *Pipeline) publishBufferMetrics() {
	stats := p.buffer.Stats()
	p.metrics.SetBufferUsage(stats.Usage)
	p.metrics.SetBufferedMs(stats.BufferedMs)

	p.mu.Lock()
	prevChunks, prevBytes := p.reportedEvictedChunks, p.reportedEvictedBytes
	p.reportedEvictedChunks = stats.ChunksEvicted
	p.reportedEvictedBytes = stats.BytesEvicted
	p.mu.Unlock()

	p.metrics.RecordEviction(stats.ChunksEvicted, stats.BytesEvicted, prevChunks, prevBytes)
}

// Stats returns a snapshot of pipeline state.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	uptime := float64(0)
	if p.running {
		uptime = time.Since(p.startTime).Seconds()
	}

	stats := Stats{
		ID:              p.id,
		Running:         p.running,
		UptimeSeconds:   uptime,
		SamplesCaptured: p.samplesCaptured,
		DecodeFailures:  p.decodeFailures,
		ChunksDelivered: p.chunksDelivered,
		Buffer:          p.buffer.Stats(),
	}

	if p.detector != nil {
		detectorStats := p.detector.Stats()
		stats.VAD = &detectorStats
	}

	return stats
}

func (p *Pipeline) samplesSnapshot() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.samplesCaptured
}

func (p *Pipeline) deliveredSnapshot() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chunksDelivered
}

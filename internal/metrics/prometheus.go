package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the capture audio service.
type Metrics struct {
	// Capture metrics
	SamplesCaptured prometheus.Counter
	FramesCaptured  prometheus.Counter
	DecodeFailures  prometheus.Counter

	// Buffer metrics
	ChunksPushed  *prometheus.CounterVec
	ChunksPopped  *prometheus.CounterVec
	ChunksEvicted prometheus.Counter
	BytesEvicted  prometheus.Counter
	BufferUsage   prometheus.Gauge
	BufferedMs    prometheus.Gauge

	// VAD metrics
	VADFramesProcessed prometheus.Counter
	VADSpeechDetected  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SamplesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_samples_total",
			Help: "Total number of raw samples received from the capture backend",
		}),
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_frames_total",
			Help: "Total number of audio frames received from the capture backend",
		}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_decode_failures_total",
			Help: "Total number of raw samples that failed format decoding",
		}),

		ChunksPushed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_buffer_chunks_pushed_total",
			Help: "Total number of chunks pushed into the buffer",
		}, []string{"queue"}),
		ChunksPopped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_buffer_chunks_popped_total",
			Help: "Total number of chunks popped from the buffer",
		}, []string{"queue"}),
		ChunksEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_buffer_chunks_evicted_total",
			Help: "Total number of chunks evicted to honor the byte budget",
		}),
		BytesEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_buffer_bytes_evicted_total",
			Help: "Total number of bytes evicted to honor the byte budget",
		}),
		BufferUsage: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "capture_buffer_usage",
			Help: "Fraction of the buffer byte budget currently in use",
		}),
		BufferedMs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "capture_buffered_duration_ms",
			Help: "Duration of PCM16 audio currently buffered, in milliseconds",
		}),

		VADFramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_vad_frames_processed_total",
			Help: "Total number of VAD frames processed",
		}),
		VADSpeechDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_vad_speech_detected_total",
			Help: "Total number of VAD frames with speech detected",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capture_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSampleCaptured records one raw sample and its frame count.
func (m *Metrics) RecordSampleCaptured(frames int) {
	m.SamplesCaptured.Inc()
	m.FramesCaptured.Add(float64(frames))
}

// RecordDecodeFailure increments the decode failure counter.
func (m *Metrics) RecordDecodeFailure() {
	m.DecodeFailures.Inc()
}

// RecordChunkPushed records a chunk pushed into the named queue
// ("pcm16" or "float32").
func (m *Metrics) RecordChunkPushed(queue string) {
	m.ChunksPushed.WithLabelValues(queue).Inc()
}

// RecordChunksPopped records chunks popped from the named queue.
func (m *Metrics) RecordChunksPopped(queue string, count int) {
	m.ChunksPopped.WithLabelValues(queue).Add(float64(count))
}

// RecordEviction records cumulative eviction totals.
func (m *Metrics) RecordEviction(chunks, bytes uint64, prevChunks, prevBytes uint64) {
	if chunks > prevChunks {
		m.ChunksEvicted.Add(float64(chunks - prevChunks))
	}
	if bytes > prevBytes {
		m.BytesEvicted.Add(float64(bytes - prevBytes))
	}
}

// SetBufferUsage sets the buffer usage gauge.
func (m *Metrics) SetBufferUsage(usage float64) {
	m.BufferUsage.Set(usage)
}

// SetBufferedMs sets the buffered duration gauge.
func (m *Metrics) SetBufferedMs(ms uint64) {
	m.BufferedMs.Set(float64(ms))
}

// RecordVADFrame records a processed VAD frame and whether speech was found.
func (m *Metrics) RecordVADFrame(hasSpeech bool) {
	m.VADFramesProcessed.Inc()
	if hasSpeech {
		m.VADSpeechDetected.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

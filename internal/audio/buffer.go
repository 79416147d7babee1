package audio

import (
	"sync"
	"time"
)

const (
	// DefaultMaxBufferBytes is the default byte budget for the buffer (5 MiB).
	DefaultMaxBufferBytes = 5 * 1024 * 1024

	// DefaultBatchSize is the number of chunks a batch pop drains when the
	// caller has no preference.
	DefaultBatchSize = 10

	// MaxBatchSize caps how many chunks a single batch pop may request.
	MaxBatchSize = 1000

	// chunkOverheadBytes is the fixed per-chunk bookkeeping cost counted
	// against the byte budget for PCM16 chunks.
	chunkOverheadBytes = 64
)

var processStart = time.Now()

// nowMillis returns a monotonic millisecond timestamp for chunk tagging.
func nowMillis() uint64 {
	return uint64(time.Since(processStart) / time.Millisecond)
}

// Buffer holds recently captured canonical audio chunks without unbounded
// growth. It keeps two independent FIFO queues (PCM16 and float32) under a
// shared byte budget; once the budget is exceeded the chronologically oldest
// front chunk is evicted, whichever queue it sits in. All operations are
// serialized by a single mutex and none of them blocks waiting for data,
// which makes the buffer safe to call from a real-time capture callback.
type Buffer struct {
	chunks        []Chunk        // PCM16 queue, arrival order
	float32Chunks []Float32Chunk // float32 queue, arrival order
	maxSizeBytes  int
	sizeBytes     int

	// Eviction accounting
	chunksEvicted uint64
	bytesEvicted  uint64

	mu sync.Mutex
}

// BufferStats represents buffer state for monitoring.
type BufferStats struct {
	SizeBytes     int     `json:"size_bytes"`
	MaxSizeBytes  int     `json:"max_size_bytes"`
	Usage         float64 `json:"usage"`
	PCM16Chunks   int     `json:"pcm16_chunks"`
	Float32Chunks int     `json:"float32_chunks"`
	BufferedMs    uint64  `json:"buffered_ms"`
	ChunksEvicted uint64  `json:"chunks_evicted"`
	BytesEvicted  uint64  `json:"bytes_evicted"`
}

// NewBuffer creates a buffer with the default 5 MiB byte budget.
func NewBuffer() *Buffer {
	return NewBufferWithSize(DefaultMaxBufferBytes)
}

// NewBufferWithSize creates a buffer with an explicit byte budget.
// A zero budget is not an error: the buffer simply evicts everything on the
// next push and Usage reports 0.
func NewBufferWithSize(maxSizeBytes int) *Buffer {
	return &Buffer{maxSizeBytes: maxSizeBytes}
}

// Push appends a PCM16 chunk tagged with the current timestamp, then evicts
// oldest chunks until the byte budget holds. Empty input is a no-op.
func (b *Buffer) Push(samples []int16, sampleRate, channels int) {
	if len(samples) == 0 {
		return
	}
	b.pushPCM16At(samples, sampleRate, channels, nowMillis())
}

// pushPCM16At is the timestamp-explicit form of Push.
func (b *Buffer) pushPCM16At(samples []int16, sampleRate, channels int, timestamp uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	chunk := Chunk{
		Samples:    samples,
		Timestamp:  timestamp,
		SampleRate: sampleRate,
		Channels:   channels,
	}

	b.chunks = append(b.chunks, chunk)
	b.sizeBytes += pcm16ChunkSize(chunk)
	b.trimToSize()
}

// PushFloat32 appends a float32 chunk tagged with the current timestamp, then
// evicts oldest chunks until the byte budget holds. Empty input is a no-op.
func (b *Buffer) PushFloat32(samples []float32, sampleRate, channels int) {
	if len(samples) == 0 {
		return
	}
	b.pushFloat32At(samples, sampleRate, channels, nowMillis())
}

// pushFloat32At is the timestamp-explicit form of PushFloat32.
func (b *Buffer) pushFloat32At(samples []float32, sampleRate, channels int, timestamp uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	chunk := Float32Chunk{
		Samples:    samples,
		Timestamp:  timestamp,
		SampleRate: sampleRate,
		Channels:   channels,
	}

	b.float32Chunks = append(b.float32Chunks, chunk)
	b.sizeBytes += float32ChunkSize(chunk)
	b.trimToSize()
}

// Pop removes and returns the oldest PCM16 chunk. The second return value is
// false when the queue is empty. Pop never waits for data.
func (b *Buffer) Pop() (Chunk, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks) == 0 {
		return Chunk{}, false
	}

	chunk := b.chunks[0]
	b.sizeBytes -= pcm16ChunkSize(chunk)
	b.chunks = b.chunks[1:]

	return chunk, true
}

// PopBatch removes up to maxChunks oldest PCM16 chunks in arrival order.
// It returns fewer when the queue is shorter and an empty slice when the
// queue is empty. Non-positive requests fall back to DefaultBatchSize and
// requests above MaxBatchSize are clamped.
func (b *Buffer) PopBatch(maxChunks int) []Chunk {
	maxChunks = clampBatchSize(maxChunks)

	b.mu.Lock()
	defer b.mu.Unlock()

	n := maxChunks
	if n > len(b.chunks) {
		n = len(b.chunks)
	}

	result := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		b.sizeBytes -= pcm16ChunkSize(b.chunks[i])
		result = append(result, b.chunks[i])
	}
	b.chunks = b.chunks[n:]

	return result
}

// PopBatchFloat32 removes up to maxChunks oldest float32 chunks in arrival
// order, with the same contract as PopBatch.
func (b *Buffer) PopBatchFloat32(maxChunks int) []Float32Chunk {
	maxChunks = clampBatchSize(maxChunks)

	b.mu.Lock()
	defer b.mu.Unlock()

	n := maxChunks
	if n > len(b.float32Chunks) {
		n = len(b.float32Chunks)
	}

	result := make([]Float32Chunk, 0, n)
	for i := 0; i < n; i++ {
		b.sizeBytes -= float32ChunkSize(b.float32Chunks[i])
		result = append(result, b.float32Chunks[i])
	}
	b.float32Chunks = b.float32Chunks[n:]

	return result
}

// Clear empties both queues and resets the byte counter.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = nil
	b.float32Chunks = nil
	b.sizeBytes = 0
}

// Size returns the combined byte size of both queues.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizeBytes
}

// IsEmpty reports whether both queues are empty.
func (b *Buffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks) == 0 && len(b.float32Chunks) == 0
}

// Usage returns the fraction of the byte budget in use, in [0, 1].
// A zero budget reports 0.
func (b *Buffer) Usage() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxSizeBytes == 0 {
		return 0
	}
	return float64(b.sizeBytes) / float64(b.maxSizeBytes)
}

// SetMaxSize changes the byte budget and immediately re-runs eviction.
func (b *Buffer) SetMaxSize(maxSizeBytes int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maxSizeBytes = maxSizeBytes
	b.trimToSize()
}

// BufferedDurationMs returns the duration of audio queued in the PCM16 queue,
// computed as total frames divided by the most recently seen sample rate.
// It returns 0 when the queue is empty or the rate is 0.
func (b *Buffer) BufferedDurationMs() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bufferedDurationMsLocked()
}

// Stats returns a snapshot of buffer state for monitoring.
func (b *Buffer) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := float64(0)
	if b.maxSizeBytes > 0 {
		usage = float64(b.sizeBytes) / float64(b.maxSizeBytes)
	}

	return BufferStats{
		SizeBytes:     b.sizeBytes,
		MaxSizeBytes:  b.maxSizeBytes,
		Usage:         usage,
		PCM16Chunks:   len(b.chunks),
		Float32Chunks: len(b.float32Chunks),
		BufferedMs:    b.bufferedDurationMsLocked(),
		ChunksEvicted: b.chunksEvicted,
		BytesEvicted:  b.bytesEvicted,
	}
}

// bufferedDurationMsLocked computes the PCM16 queue duration.
// Caller must hold the lock.
func (b *Buffer) bufferedDurationMsLocked() uint64 {
	if len(b.chunks) == 0 {
		return 0
	}

	var totalFrames uint64
	var sampleRate int
	for _, chunk := range b.chunks {
		if chunk.Channels > 0 {
			totalFrames += uint64(len(chunk.Samples) / chunk.Channels)
		}
		sampleRate = chunk.SampleRate // use last seen rate
	}

	if sampleRate == 0 {
		return 0
	}
	return totalFrames * 1000 / uint64(sampleRate)
}

// clampBatchSize normalizes a batch pop request into [1, MaxBatchSize].
func clampBatchSize(maxChunks int) int {
	if maxChunks <= 0 {
		return DefaultBatchSize
	}
	if maxChunks > MaxBatchSize {
		return MaxBatchSize
	}
	return maxChunks
}

// pcm16ChunkSize returns the budget cost of a PCM16 chunk: the per-chunk
// overhead plus two bytes per sample.
func pcm16ChunkSize(chunk Chunk) int {
	return chunkOverheadBytes + len(chunk.Samples)*2
}

// float32ChunkSize returns the budget cost of a float32 chunk: four bytes per
// sample, no overhead modeled.
func float32ChunkSize(chunk Float32Chunk) int {
	return len(chunk.Samples) * 4
}

// trimToSize evicts front chunks until the byte counter fits the budget.
// When both queues are non-empty the chronologically older front goes first;
// a timestamp tie goes to the PCM16 queue. Caller must hold the lock.
func (b *Buffer) trimToSize() {
	for b.sizeBytes > b.maxSizeBytes {
		hasPCM16 := len(b.chunks) > 0
		hasFloat32 := len(b.float32Chunks) > 0

		switch {
		case hasPCM16 && hasFloat32:
			if b.chunks[0].Timestamp <= b.float32Chunks[0].Timestamp {
				b.evictOldestPCM16()
			} else {
				b.evictOldestFloat32()
			}
		case hasPCM16:
			b.evictOldestPCM16()
		case hasFloat32:
			b.evictOldestFloat32()
		default:
			return
		}
	}
}

func (b *Buffer) evictOldestPCM16() {
	size := pcm16ChunkSize(b.chunks[0])
	b.sizeBytes -= size
	b.chunks = b.chunks[1:]
	b.chunksEvicted++
	b.bytesEvicted += uint64(size)
}

func (b *Buffer) evictOldestFloat32() {
	size := float32ChunkSize(b.float32Chunks[0])
	b.sizeBytes -= size
	b.float32Chunks = b.float32Chunks[1:]
	b.chunksEvicted++
	b.bytesEvicted += uint64(size)
}

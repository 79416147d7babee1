package audio

import (
	"sync"
	"testing"
)

func makeSamples(n int, value int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func TestNewBuffer(t *testing.T) {
	buffer := NewBuffer()

	if buffer == nil {
		t.Fatal("NewBuffer returned nil")
	}

	if buffer.Size() != 0 {
		t.Errorf("Expected initial size 0, got %d", buffer.Size())
	}

	if !buffer.IsEmpty() {
		t.Error("Expected new buffer to be empty")
	}

	if buffer.Usage() != 0 {
		t.Errorf("Expected initial usage 0, got %f", buffer.Usage())
	}

	if buffer.BufferedDurationMs() != 0 {
		t.Errorf("Expected initial buffered duration 0, got %d", buffer.BufferedDurationMs())
	}

	if buffer.maxSizeBytes != DefaultMaxBufferBytes {
		t.Errorf("Expected default budget %d, got %d", DefaultMaxBufferBytes, buffer.maxSizeBytes)
	}
}

func TestPushEmptyIsNoOp(t *testing.T) {
	buffer := NewBuffer()

	buffer.Push(nil, 48000, 1)
	buffer.Push([]int16{}, 48000, 1)
	buffer.PushFloat32(nil, 48000, 1)
	buffer.PushFloat32([]float32{}, 48000, 1)

	if !buffer.IsEmpty() {
		t.Error("Expected buffer to stay empty after empty pushes")
	}
	if buffer.Size() != 0 {
		t.Errorf("Expected size 0, got %d", buffer.Size())
	}
}

func TestPCM16FIFOOrder(t *testing.T) {
	buffer := NewBuffer()

	buffer.Push([]int16{1}, 48000, 1)
	buffer.Push([]int16{2}, 48000, 1)
	buffer.Push([]int16{3}, 48000, 1)

	for _, want := range []int16{1, 2, 3} {
		chunk, ok := buffer.Pop()
		if !ok {
			t.Fatalf("Expected chunk %d, got empty", want)
		}
		if chunk.Samples[0] != want {
			t.Errorf("Expected chunk %d, got %d", want, chunk.Samples[0])
		}
	}

	if _, ok := buffer.Pop(); ok {
		t.Error("Expected empty signal after draining the queue")
	}
	if !buffer.IsEmpty() {
		t.Error("Expected buffer to be empty after draining")
	}
	if buffer.Size() != 0 {
		t.Errorf("Expected size 0 after draining, got %d", buffer.Size())
	}
}

func TestFloat32FIFOOrder(t *testing.T) {
	buffer := NewBuffer()

	buffer.PushFloat32([]float32{0.1}, 48000, 1)
	buffer.PushFloat32([]float32{0.2}, 48000, 1)
	buffer.PushFloat32([]float32{0.3}, 48000, 1)

	chunks := buffer.PopBatchFloat32(3)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	want := []float32{0.1, 0.2, 0.3}
	for i, chunk := range chunks {
		if chunk.Samples[0] != want[i] {
			t.Errorf("Chunk %d: expected %f, got %f", i, want[i], chunk.Samples[0])
		}
	}
}

func TestPopBatchLimits(t *testing.T) {
	buffer := NewBuffer()

	for i := 0; i < 5; i++ {
		buffer.Push([]int16{int16(i)}, 48000, 1)
	}

	// Never more than maxCount
	chunks := buffer.PopBatch(3)
	if len(chunks) != 3 {
		t.Errorf("Expected 3 chunks, got %d", len(chunks))
	}

	// Never more than available
	chunks = buffer.PopBatch(10)
	if len(chunks) != 2 {
		t.Errorf("Expected 2 chunks, got %d", len(chunks))
	}

	// Empty queue yields empty sequence
	chunks = buffer.PopBatch(10)
	if len(chunks) != 0 {
		t.Errorf("Expected 0 chunks, got %d", len(chunks))
	}
}

func TestPopBatchDefaultSize(t *testing.T) {
	buffer := NewBuffer()

	for i := 0; i < 15; i++ {
		buffer.Push([]int16{int16(i)}, 48000, 1)
	}

	// Non-positive request falls back to the default batch size.
	chunks := buffer.PopBatch(0)
	if len(chunks) != DefaultBatchSize {
		t.Errorf("Expected %d chunks, got %d", DefaultBatchSize, len(chunks))
	}
}

func TestByteCounter(t *testing.T) {
	buffer := NewBuffer()

	buffer.Push(makeSamples(100, 1), 48000, 1) // 64 + 200 bytes
	buffer.PushFloat32(make([]float32, 50), 48000, 1) // 200 bytes

	wantSize := (chunkOverheadBytes + 200) + 200
	if buffer.Size() != wantSize {
		t.Errorf("Expected size %d, got %d", wantSize, buffer.Size())
	}

	buffer.Pop()
	wantSize = 200
	if buffer.Size() != wantSize {
		t.Errorf("Expected size %d after pop, got %d", wantSize, buffer.Size())
	}

	buffer.PopBatchFloat32(1)
	if buffer.Size() != 0 {
		t.Errorf("Expected size 0 after draining, got %d", buffer.Size())
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	// Each chunk costs 64 + 200 = 264 bytes; budget fits two chunks.
	buffer := NewBufferWithSize(600)

	buffer.Push(makeSamples(100, 1), 48000, 1)
	buffer.Push(makeSamples(100, 2), 48000, 1)
	buffer.Push(makeSamples(100, 3), 48000, 1)

	if buffer.Size() > 600 {
		t.Errorf("Expected size <= budget 600, got %d", buffer.Size())
	}

	chunk, ok := buffer.Pop()
	if !ok {
		t.Fatal("Expected a chunk after eviction")
	}
	if chunk.Samples[0] != 2 {
		t.Errorf("Expected oldest chunk 1 evicted, front should be 2, got %d", chunk.Samples[0])
	}
}

func TestCrossQueueEvictionOldestFront(t *testing.T) {
	buffer := NewBufferWithSize(1000)

	// Older float32 chunk (400 bytes), then newer PCM16 chunks.
	buffer.pushFloat32At(make([]float32, 100), 48000, 1, 10)
	buffer.pushPCM16At(makeSamples(100, 1), 48000, 1, 20) // 264 bytes
	buffer.pushPCM16At(makeSamples(100, 2), 48000, 1, 30) // 264 bytes

	// 928 bytes total; next push exceeds the budget and must evict the
	// chronologically oldest front, which is the float32 chunk.
	buffer.pushPCM16At(makeSamples(100, 3), 48000, 1, 40)

	if buffer.Size() > 1000 {
		t.Errorf("Expected size <= budget 1000, got %d", buffer.Size())
	}

	if got := buffer.PopBatchFloat32(10); len(got) != 0 {
		t.Errorf("Expected float32 queue emptied by eviction, got %d chunks", len(got))
	}

	chunk, ok := buffer.Pop()
	if !ok || chunk.Samples[0] != 1 {
		t.Error("Expected all PCM16 chunks retained after float32 eviction")
	}
}

func TestCrossQueueEvictionTieGoesToPCM16(t *testing.T) {
	buffer := NewBufferWithSize(500)

	buffer.pushPCM16At(makeSamples(100, 1), 48000, 1, 10)  // 264 bytes
	buffer.pushFloat32At(make([]float32, 60), 48000, 1, 10) // 240 bytes

	// Budget exceeded (504 bytes); equal timestamps evict PCM16 first.
	if got := buffer.PopBatch(10); len(got) != 0 {
		t.Errorf("Expected PCM16 queue emptied on timestamp tie, got %d chunks", len(got))
	}
	if got := buffer.PopBatchFloat32(10); len(got) != 1 {
		t.Errorf("Expected float32 chunk retained, got %d chunks", len(got))
	}
}

func TestFloat32OnlyProducerStaysBounded(t *testing.T) {
	budget := 2048
	buffer := NewBufferWithSize(budget)

	// A float32-only producer must not exceed the byte budget.
	for i := 0; i < 100; i++ {
		buffer.PushFloat32(make([]float32, 100), 48000, 1) // 400 bytes each
	}

	if buffer.Size() > budget {
		t.Errorf("Expected size <= budget %d, got %d", budget, buffer.Size())
	}
	if buffer.IsEmpty() {
		t.Error("Expected some chunks retained under the budget")
	}
}

func TestZeroBudgetEvictsEverything(t *testing.T) {
	buffer := NewBufferWithSize(0)

	buffer.Push(makeSamples(100, 1), 48000, 1)
	buffer.PushFloat32(make([]float32, 100), 48000, 1)

	if buffer.Size() != 0 {
		t.Errorf("Expected size 0 with zero budget, got %d", buffer.Size())
	}
	if !buffer.IsEmpty() {
		t.Error("Expected empty buffer with zero budget")
	}
	if buffer.Usage() != 0 {
		t.Errorf("Expected usage 0 with zero budget, got %f", buffer.Usage())
	}
}

func TestSetMaxSizeReEvicts(t *testing.T) {
	buffer := NewBuffer()

	for i := 0; i < 10; i++ {
		buffer.Push(makeSamples(100, int16(i)), 48000, 1) // 264 bytes each
	}

	buffer.SetMaxSize(600)

	if buffer.Size() > 600 {
		t.Errorf("Expected size <= 600 after shrinking budget, got %d", buffer.Size())
	}

	// The newest chunks must survive.
	chunk, ok := buffer.Pop()
	if !ok {
		t.Fatal("Expected chunks remaining after re-eviction")
	}
	if chunk.Samples[0] != 8 {
		t.Errorf("Expected oldest surviving chunk 8, got %d", chunk.Samples[0])
	}
}

func TestClear(t *testing.T) {
	buffer := NewBuffer()

	buffer.Push(makeSamples(100, 1), 48000, 1)
	buffer.PushFloat32(make([]float32, 100), 48000, 1)

	buffer.Clear()

	if !buffer.IsEmpty() {
		t.Error("Expected empty buffer after Clear")
	}
	if buffer.Size() != 0 {
		t.Errorf("Expected size 0 after Clear, got %d", buffer.Size())
	}
}

func TestUsage(t *testing.T) {
	buffer := NewBufferWithSize(1000)

	buffer.PushFloat32(make([]float32, 100), 48000, 1) // 400 bytes

	usage := buffer.Usage()
	if usage < 0.39 || usage > 0.41 {
		t.Errorf("Expected usage ~0.4, got %f", usage)
	}
}

func TestBufferedDurationMs(t *testing.T) {
	buffer := NewBuffer()

	// 960 mono samples at 48 kHz = 20 ms.
	buffer.Push(makeSamples(960, 0), 48000, 1)
	if got := buffer.BufferedDurationMs(); got != 20 {
		t.Errorf("Expected 20 ms, got %d", got)
	}

	// 960 more samples as stereo = 480 frames = 10 ms extra.
	buffer.Push(makeSamples(960, 0), 48000, 2)
	if got := buffer.BufferedDurationMs(); got != 30 {
		t.Errorf("Expected 30 ms, got %d", got)
	}

	// Float32 queue does not contribute.
	buffer.PushFloat32(make([]float32, 4800), 48000, 1)
	if got := buffer.BufferedDurationMs(); got != 30 {
		t.Errorf("Expected 30 ms with float32 queued, got %d", got)
	}
}

func TestEndToEndPushDurationPop(t *testing.T) {
	buffer := NewBuffer()

	buffer.Push(makeSamples(960, 7), 48000, 1)

	if got := buffer.BufferedDurationMs(); got != 20 {
		t.Errorf("Expected buffered duration 20 ms, got %d", got)
	}

	chunk, ok := buffer.Pop()
	if !ok {
		t.Fatal("Expected the pushed chunk back")
	}
	if len(chunk.Samples) != 960 || chunk.Samples[0] != 7 {
		t.Error("Expected the original chunk returned unchanged")
	}
	if chunk.SampleRate != 48000 || chunk.Channels != 1 {
		t.Errorf("Expected 48000 Hz mono, got %d Hz %d ch", chunk.SampleRate, chunk.Channels)
	}

	if !buffer.IsEmpty() {
		t.Error("Expected empty buffer after popping the only chunk")
	}
}

func TestStatsSnapshot(t *testing.T) {
	buffer := NewBufferWithSize(600)

	buffer.Push(makeSamples(100, 1), 48000, 1)
	buffer.Push(makeSamples(100, 2), 48000, 1)
	buffer.Push(makeSamples(100, 3), 48000, 1) // evicts the first chunk

	stats := buffer.Stats()
	if stats.PCM16Chunks != 2 {
		t.Errorf("Expected 2 PCM16 chunks, got %d", stats.PCM16Chunks)
	}
	if stats.ChunksEvicted != 1 {
		t.Errorf("Expected 1 chunk evicted, got %d", stats.ChunksEvicted)
	}
	if stats.BytesEvicted != uint64(chunkOverheadBytes+200) {
		t.Errorf("Expected %d bytes evicted, got %d", chunkOverheadBytes+200, stats.BytesEvicted)
	}
	if stats.SizeBytes != buffer.Size() {
		t.Errorf("Stats size %d disagrees with Size() %d", stats.SizeBytes, buffer.Size())
	}
}

func TestConcurrentPushPop(t *testing.T) {
	buffer := NewBufferWithSize(64 * 1024)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			buffer.Push(makeSamples(10, int16(i)), 48000, 1)
			buffer.PushFloat32(make([]float32, 10), 48000, 1)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			buffer.PopBatch(5)
			buffer.PopBatchFloat32(5)
		}
	}()

	wg.Wait()

	if buffer.Size() < 0 {
		t.Errorf("Byte counter went negative: %d", buffer.Size())
	}
	if buffer.Size() > 64*1024 {
		t.Errorf("Byte counter exceeded budget: %d", buffer.Size())
	}
}

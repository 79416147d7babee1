package audio

// Supported bit depths for raw captured samples.
const (
	BitDepth16 = 16
	BitDepth24 = 24
	BitDepth32 = 32
)

// Format describes the native encoding of a raw captured sample.
// It is immutable once attached to a Sample.
type Format struct {
	SampleRate       int  `json:"sample_rate"`        // Hz, > 0
	Channels         int  `json:"channels"`           // >= 1
	BitsPerSample    int  `json:"bits_per_sample"`    // 8, 16, 24 or 32
	IsFloat          bool `json:"is_float"`           // samples are 32-bit IEEE floats
	IsNonInterleaved bool `json:"is_non_interleaved"` // channels stored in separate planes
}

// BytesPerFrame returns the byte size of one frame (one sample per channel).
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitsPerSample / 8
}

// Valid reports whether the format descriptor is fully populated.
func (f Format) Valid() bool {
	if f.SampleRate <= 0 || f.Channels < 1 {
		return false
	}
	switch f.BitsPerSample {
	case 8, BitDepth16, BitDepth24, BitDepth32:
		return true
	}
	return false
}

// Sample is a raw captured audio buffer as delivered by a capture backend.
// It is consumed exactly once by the format converter and never retained.
type Sample struct {
	Data       []byte // encoded audio, laid out per Format
	Format     Format
	Timestamp  uint64 // monotonic milliseconds at capture time
	FrameCount int
}

// Chunk is a canonical PCM16 unit of audio owned by whichever queue holds it.
type Chunk struct {
	Samples    []int16
	Timestamp  uint64 // monotonic milliseconds
	SampleRate int
	Channels   int
}

// Float32Chunk is a canonical 32-bit float unit of audio with samples in
// [-1.0, 1.0]. The sample rate is always the source rate; this core never
// resamples the float path.
type Float32Chunk struct {
	Samples    []float32
	Timestamp  uint64 // monotonic milliseconds
	SampleRate int
	Channels   int
}

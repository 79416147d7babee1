package pipeline

// Framer slices a stream of PCM16 samples into fixed-size frames for VAD
// processing. Samples left over after the last complete frame stay pending
// until the next Add call.
type Framer struct {
	frameSize int
	pending   []int16
}

// NewFramer creates a framer producing frames of frameSize samples.
func NewFramer(frameSize int) *Framer {
	return &Framer{frameSize: frameSize}
}

// Add appends samples to the pending stream.
func (f *Framer) Add(samples []int16) {
	f.pending = append(f.pending, samples...)
}

// Next removes and returns the next complete frame, or false when fewer than
// frameSize samples are pending.
func (f *Framer) Next() ([]int16, bool) {
	if f.frameSize <= 0 || len(f.pending) < f.frameSize {
		return nil, false
	}

	frame := f.pending[:f.frameSize]
	f.pending = f.pending[f.frameSize:]
	return frame, true
}

// Pending returns the number of samples waiting for a complete frame.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// Reset discards any pending samples.
func (f *Framer) Reset() {
	f.pending = nil
}

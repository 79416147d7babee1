package vad

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// modeThresholds maps aggressiveness modes 0-3 to detection thresholds.
// Higher modes require more energy before a frame counts as speech.
var modeThresholds = [4]float32{0.30, 0.45, 0.60, 0.75}

// Detector performs voice activity detection on fixed-duration PCM16 frames.
type Detector struct {
	sampleRate int
	mode       int
	threshold  float32
	smoothing  float32 // smoothing factor applied to successive results

	// Detection state
	lastResult float32

	// Statistics
	totalFrames   uint64
	speechFrames  uint64
	lastProcessed time.Time

	mu sync.RWMutex
}

// Result represents the outcome of processing a single frame.
type Result struct {
	Probability float32       `json:"probability"` // speech probability (0.0 - 1.0)
	HasSpeech   bool          `json:"has_speech"`
	Confidence  float32       `json:"confidence"`
	FrameIndex  int           `json:"frame_index"`
	Elapsed     time.Duration `json:"elapsed"`
	Timestamp   time.Time     `json:"timestamp"`
}

// DetectorStats represents detector statistics for monitoring.
type DetectorStats struct {
	SampleRate       int       `json:"sample_rate"`
	Mode             int       `json:"mode"`
	Threshold        float32   `json:"threshold"`
	TotalFrames      uint64    `json:"total_frames"`
	SpeechFrames     uint64    `json:"speech_frames"`
	SpeechPercentage float64   `json:"speech_percentage"`
	LastProcessed    time.Time `json:"last_processed"`
}

// NewDetector creates a detector for the given sample rate and aggressiveness
// mode (0 = least aggressive, 3 = most aggressive).
func NewDetector(sampleRate, mode int) (*Detector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("mode must be between 0 and 3, got %d", mode)
	}

	return &Detector{
		sampleRate: sampleRate,
		mode:       mode,
		threshold:  modeThresholds[mode],
		smoothing:  0.1,
	}, nil
}

// FrameLength returns the number of samples in a frame of the given duration.
func FrameLength(sampleRate, durationMs int) int {
	return sampleRate * durationMs / 1000
}

// IsValidFrameLength reports whether length is a valid 10, 20 or 30 ms frame
// at the detector's sample rate.
func (d *Detector) IsValidFrameLength(length int) bool {
	return length == FrameLength(d.sampleRate, 10) ||
		length == FrameLength(d.sampleRate, 20) ||
		length == FrameLength(d.sampleRate, 30)
}

// Process evaluates one frame and returns the detection result.
func (d *Detector) Process(frame []int16) (*Result, error) {
	startTime := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.IsValidFrameLength(len(frame)) {
		return nil, fmt.Errorf("invalid frame length %d for %d Hz (want 10/20/30 ms)",
			len(frame), d.sampleRate)
	}

	probability := frameEnergy(frame)

	// Smooth against the previous result to suppress flicker.
	if d.totalFrames > 0 {
		probability = d.smoothing*probability + (1-d.smoothing)*d.lastResult
	}
	d.lastResult = probability

	hasSpeech := probability >= d.threshold

	d.totalFrames++
	if hasSpeech {
		d.speechFrames++
	}
	d.lastProcessed = time.Now()

	// Confidence grows with distance from the threshold, capped at 1.
	confidence := float32(math.Abs(float64(probability - d.threshold)))
	if confidence > 0.5 {
		confidence = 0.5
	}
	confidence *= 2

	return &Result{
		Probability: probability,
		HasSpeech:   hasSpeech,
		Confidence:  confidence,
		FrameIndex:  int(d.totalFrames - 1),
		Elapsed:     time.Since(startTime),
		Timestamp:   time.Now(),
	}, nil
}

// IsSpeech reports whether the frame contains speech. Invalid frame lengths
// report false rather than an error, so a single malformed frame never halts
// the pipeline.
func (d *Detector) IsSpeech(frame []int16) bool {
	result, err := d.Process(frame)
	if err != nil {
		return false
	}
	return result.HasSpeech
}

// frameEnergy maps a frame's RMS energy to a [0, 1] probability.
func frameEnergy(frame []int16) float32 {
	var energy float64
	for _, sample := range frame {
		energy += float64(sample) * float64(sample)
	}
	energy = math.Sqrt(energy / float64(len(frame)))

	// Normalize against a nominal speech energy ceiling.
	normalized := energy / 10000.0
	if normalized > 1.0 {
		normalized = 1.0
	}

	return float32(normalized)
}

// SetMode changes the aggressiveness mode.
func (d *Detector) SetMode(mode int) error {
	if mode < 0 || mode > 3 {
		return fmt.Errorf("mode must be between 0 and 3, got %d", mode)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.mode = mode
	d.threshold = modeThresholds[mode]
	return nil
}

// Reset clears detection state and statistics.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalFrames = 0
	d.speechFrames = 0
	d.lastResult = 0
	d.lastProcessed = time.Time{}
}

// Stats returns current detector statistics.
func (d *Detector) Stats() DetectorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	speechPercentage := float64(0)
	if d.totalFrames > 0 {
		speechPercentage = float64(d.speechFrames) / float64(d.totalFrames) * 100
	}

	return DetectorStats{
		SampleRate:       d.sampleRate,
		Mode:             d.mode,
		Threshold:        d.threshold,
		TotalFrames:      d.totalFrames,
		SpeechFrames:     d.speechFrames,
		SpeechPercentage: speechPercentage,
		LastProcessed:    d.lastProcessed,
	}
}

// Threshold returns the current detection threshold.
func (d *Detector) Threshold() float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

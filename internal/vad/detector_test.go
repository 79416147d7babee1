package vad

import "testing"

func loudFrame(length int) []int16 {
	frame := make([]int16, length)
	for i := range frame {
		frame[i] = 15000
	}
	return frame
}

func TestNewDetector(t *testing.T) {
	detector, err := NewDetector(16000, 1)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	if detector.Threshold() != modeThresholds[1] {
		t.Errorf("Expected threshold %f, got %f", modeThresholds[1], detector.Threshold())
	}
}

func TestNewDetectorInvalidArgs(t *testing.T) {
	if _, err := NewDetector(0, 1); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewDetector(16000, -1); err == nil {
		t.Error("Expected error for negative mode")
	}
	if _, err := NewDetector(16000, 4); err == nil {
		t.Error("Expected error for mode above 3")
	}
}

func TestFrameLength(t *testing.T) {
	cases := []struct {
		sampleRate int
		durationMs int
		want       int
	}{
		{16000, 10, 160},
		{16000, 20, 320},
		{16000, 30, 480},
		{48000, 20, 960},
		{8000, 10, 80},
	}

	for _, tc := range cases {
		if got := FrameLength(tc.sampleRate, tc.durationMs); got != tc.want {
			t.Errorf("FrameLength(%d, %d): expected %d, got %d",
				tc.sampleRate, tc.durationMs, tc.want, got)
		}
	}
}

func TestIsValidFrameLength(t *testing.T) {
	detector, err := NewDetector(16000, 1)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	for _, length := range []int{160, 320, 480} {
		if !detector.IsValidFrameLength(length) {
			t.Errorf("Expected frame length %d to be valid", length)
		}
	}

	for _, length := range []int{0, 100, 159, 161, 640} {
		if detector.IsValidFrameLength(length) {
			t.Errorf("Expected frame length %d to be invalid", length)
		}
	}
}

func TestProcessInvalidFrameLength(t *testing.T) {
	detector, err := NewDetector(16000, 1)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	if _, err := detector.Process(make([]int16, 100)); err == nil {
		t.Error("Expected error for invalid frame length")
	}

	// The soft path reports false instead of an error.
	if detector.IsSpeech(make([]int16, 100)) {
		t.Error("Expected false for invalid frame length")
	}
}

func TestProcessSilence(t *testing.T) {
	detector, err := NewDetector(16000, 1)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	result, err := detector.Process(make([]int16, 320))
	if err != nil {
		t.Fatalf("Failed to process frame: %v", err)
	}

	if result.HasSpeech {
		t.Error("Expected no speech in silence")
	}
	if result.Probability != 0 {
		t.Errorf("Expected probability 0 for silence, got %f", result.Probability)
	}
}

func TestProcessLoudFrames(t *testing.T) {
	detector, err := NewDetector(16000, 1)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	// The first frame is unsmoothed and lands above every mode threshold.
	result, err := detector.Process(loudFrame(320))
	if err != nil {
		t.Fatalf("Failed to process frame: %v", err)
	}

	if !result.HasSpeech {
		t.Errorf("Expected speech for loud frame, probability %f", result.Probability)
	}
	if result.Probability < detector.Threshold() {
		t.Errorf("Expected probability >= threshold, got %f", result.Probability)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("Expected confidence in [0, 1], got %f", result.Confidence)
	}
}

func TestSmoothingSuppressesFlicker(t *testing.T) {
	detector, err := NewDetector(16000, 1)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	// Establish a silent baseline, then feed one loud frame. Smoothing
	// must keep a single spike below the threshold.
	for i := 0; i < 5; i++ {
		if _, err := detector.Process(make([]int16, 320)); err != nil {
			t.Fatalf("Failed to process frame: %v", err)
		}
	}

	result, err := detector.Process(loudFrame(320))
	if err != nil {
		t.Fatalf("Failed to process frame: %v", err)
	}

	if result.HasSpeech {
		t.Errorf("Expected single spike smoothed below threshold, probability %f",
			result.Probability)
	}
}

func TestSetMode(t *testing.T) {
	detector, err := NewDetector(16000, 0)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	if err := detector.SetMode(3); err != nil {
		t.Fatalf("Failed to set mode: %v", err)
	}
	if detector.Threshold() != modeThresholds[3] {
		t.Errorf("Expected threshold %f, got %f", modeThresholds[3], detector.Threshold())
	}

	if err := detector.SetMode(5); err == nil {
		t.Error("Expected error for invalid mode")
	}
}

func TestStatsAndReset(t *testing.T) {
	detector, err := NewDetector(16000, 1)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	detector.Process(loudFrame(320))
	detector.Process(loudFrame(320))

	stats := detector.Stats()
	if stats.TotalFrames != 2 {
		t.Errorf("Expected 2 frames processed, got %d", stats.TotalFrames)
	}
	if stats.SpeechFrames != 2 {
		t.Errorf("Expected 2 speech frames, got %d", stats.SpeechFrames)
	}
	if stats.SpeechPercentage != 100 {
		t.Errorf("Expected 100%% speech, got %f", stats.SpeechPercentage)
	}

	detector.Reset()
	stats = detector.Stats()
	if stats.TotalFrames != 0 || stats.SpeechFrames != 0 {
		t.Error("Expected statistics cleared after reset")
	}
}

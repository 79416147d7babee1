package pipeline

import "testing"

func TestFramerIncompleteFrame(t *testing.T) {
	framer := NewFramer(320)

	framer.Add(make([]int16, 100))

	if _, ok := framer.Next(); ok {
		t.Error("Expected no frame with fewer than frameSize samples")
	}
	if framer.Pending() != 100 {
		t.Errorf("Expected 100 pending samples, got %d", framer.Pending())
	}
}

func TestFramerProducesFramesInOrder(t *testing.T) {
	framer := NewFramer(4)

	framer.Add([]int16{1, 2, 3, 4, 5, 6, 7, 8, 9})

	frame, ok := framer.Next()
	if !ok {
		t.Fatal("Expected first frame")
	}
	if frame[0] != 1 || frame[3] != 4 {
		t.Errorf("Expected frame [1 2 3 4], got %v", frame)
	}

	frame, ok = framer.Next()
	if !ok {
		t.Fatal("Expected second frame")
	}
	if frame[0] != 5 || frame[3] != 8 {
		t.Errorf("Expected frame [5 6 7 8], got %v", frame)
	}

	if _, ok := framer.Next(); ok {
		t.Error("Expected no third frame from a single leftover sample")
	}
	if framer.Pending() != 1 {
		t.Errorf("Expected 1 pending sample, got %d", framer.Pending())
	}
}

func TestFramerCarriesLeftoverAcrossAdds(t *testing.T) {
	framer := NewFramer(4)

	framer.Add([]int16{1, 2, 3})
	framer.Add([]int16{4, 5})

	frame, ok := framer.Next()
	if !ok {
		t.Fatal("Expected a frame spanning both adds")
	}
	if frame[0] != 1 || frame[3] != 4 {
		t.Errorf("Expected frame [1 2 3 4], got %v", frame)
	}
	if framer.Pending() != 1 {
		t.Errorf("Expected 1 pending sample, got %d", framer.Pending())
	}
}

func TestFramerReset(t *testing.T) {
	framer := NewFramer(4)

	framer.Add([]int16{1, 2, 3})
	framer.Reset()

	if framer.Pending() != 0 {
		t.Errorf("Expected 0 pending samples after reset, got %d", framer.Pending())
	}
}

func TestFramerZeroFrameSize(t *testing.T) {
	framer := NewFramer(0)

	framer.Add([]int16{1, 2, 3})
	if _, ok := framer.Next(); ok {
		t.Error("Expected no frames from a zero frame size")
	}
}

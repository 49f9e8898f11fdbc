package quality

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}

	tests := []struct {
		p        float64
		expected float64
	}{
		{0, 1},
		{10, 1.9},
		{50, 5.5},
		{100, 10},
	}

	for _, tt := range tests {
		got := percentile(values, tt.p)
		if math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("percentile(%v) = %f, expected %f", tt.p, got, tt.expected)
		}
	}

	if values[0] != 10 {
		t.Error("percentile must not reorder its input")
	}
	if !math.IsNaN(percentile(nil, 10)) {
		t.Error("Expected NaN for empty input")
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		n, frameLength, hop int
		expected            int
	}{
		{0, 2048, 1024, 0},
		{2047, 2048, 1024, 0},
		{2048, 2048, 1024, 1},
		{4096, 2048, 1024, 3},
		{18048, 2048, 512, 32},
		{100, 0, 1, 0},
	}

	for _, tt := range tests {
		if got := frameCount(tt.n, tt.frameLength, tt.hop); got != tt.expected {
			t.Errorf("frameCount(%d, %d, %d) = %d, expected %d", tt.n, tt.frameLength, tt.hop, got, tt.expected)
		}
	}
}

func TestCenterPad(t *testing.T) {
	samples := []float64{1, 2, 3}

	zero := centerPad(samples, 4, padZero)
	if len(zero) != 7 {
		t.Fatalf("Expected padded length 7, got %d", len(zero))
	}
	if zero[0] != 0 || zero[1] != 0 || zero[5] != 0 || zero[6] != 0 {
		t.Errorf("Expected zero padding, got %v", zero)
	}

	edge := centerPad(samples, 4, padEdge)
	if edge[0] != 1 || edge[1] != 1 || edge[5] != 3 || edge[6] != 3 {
		t.Errorf("Expected edge padding, got %v", edge)
	}
	if edge[2] != 1 || edge[3] != 2 || edge[4] != 3 {
		t.Errorf("Original samples moved: %v", edge)
	}
}

func TestCenteredFramesCount(t *testing.T) {
	samples := make([]float64, 16000)
	calls := 0
	n := centeredFrames(samples, 2048, 512, padZero, func(i int, frame []float64) {
		if i != calls {
			t.Errorf("Expected frame index %d, got %d", calls, i)
		}
		if len(frame) != 2048 {
			t.Errorf("Expected frame length 2048, got %d", len(frame))
		}
		calls++
	})

	// 1 + len/hop frames when centred
	if n != 32 || calls != 32 {
		t.Errorf("Expected 32 frames, got n=%d calls=%d", n, calls)
	}
	if centeredFrames(nil, 2048, 512, padZero, func(int, []float64) {}) != 0 {
		t.Error("Expected no frames for empty input")
	}
}

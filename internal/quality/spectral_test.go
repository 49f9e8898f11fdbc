package quality

import (
	"math"
	"testing"
)

func sine(freq float64, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestHann(t *testing.T) {
	for _, size := range []int{128, 512, 2048} {
		window := Hann(size)

		if len(window) != size {
			t.Errorf("Expected window size %d, got %d", size, len(window))
		}
		if window[0] != 0 {
			t.Errorf("Periodic Hann should start at 0, got %f", window[0])
		}
		if math.Abs(window[size/2]-1) > 1e-12 {
			t.Errorf("Periodic Hann should peak at n/2, got %f", window[size/2])
		}
		for i, val := range window {
			if val < 0 || val > 1 {
				t.Errorf("Window value %d out of range [0,1]: %f", i, val)
			}
		}
	}
}

func TestMagnitudeSpectrum(t *testing.T) {
	spectrum := []complex128{
		complex(1.0, 0.0),
		complex(0.0, 1.0),
		complex(3.0, 4.0),
		complex(0.0, 1.0),
	}

	mag := MagnitudeSpectrum(spectrum)

	if len(mag) != 3 {
		t.Fatalf("Expected 3 bins including Nyquist, got %d", len(mag))
	}
	if mag[0] != 1.0 || mag[1] != 1.0 || mag[2] != 5.0 {
		t.Errorf("Unexpected magnitudes: %v", mag)
	}
}

func TestBinFrequencies(t *testing.T) {
	freqs := BinFrequencies(2048, 16000)

	if len(freqs) != 1025 {
		t.Fatalf("Expected 1025 bins, got %d", len(freqs))
	}
	if freqs[0] != 0 {
		t.Errorf("Expected DC bin at 0 Hz, got %f", freqs[0])
	}
	if freqs[1024] != 8000 {
		t.Errorf("Expected Nyquist bin at 8000 Hz, got %f", freqs[1024])
	}
}

func TestSTFT(t *testing.T) {
	samples := sine(440, 0.5, 16000, 16000)

	frames := 0
	n, err := STFT(samples, NFFT, SpectralHop, Hann(NFFT), func(i int, mag []float64) {
		if len(mag) != NFFT/2+1 {
			t.Errorf("Frame %d: expected %d bins, got %d", i, NFFT/2+1, len(mag))
		}
		frames++
	})
	if err != nil {
		t.Fatalf("STFT failed: %v", err)
	}
	if n != 32 || frames != 32 {
		t.Errorf("Expected 32 frames, got n=%d frames=%d", n, frames)
	}

	if _, err := STFT(samples, NFFT, SpectralHop, Hann(512), func(int, []float64) {}); err == nil {
		t.Error("Expected error for mismatched window length")
	}
	if _, err := STFT(nil, NFFT, SpectralHop, Hann(NFFT), func(int, []float64) {}); err == nil {
		t.Error("Expected error for empty input")
	}
}

func TestSpectralFeaturesPureTone(t *testing.T) {
	// 1000 Hz falls exactly on bin 128 at 16 kHz with a 2048-point FFT.
	samples := sine(1000, 0.5, 16000, 32000)

	centroid, rolloff := ComputeSpectralFeatures(samples, 16000, NFFT, SpectralHop, RolloffPercent)

	if math.Abs(centroid-1000) > 50 {
		t.Errorf("Expected centroid near 1000 Hz, got %f", centroid)
	}
	if rolloff < 900 || rolloff > 2000 {
		t.Errorf("Expected rolloff just above the tone, got %f", rolloff)
	}
}

func TestSpectralFeaturesSilence(t *testing.T) {
	centroid, rolloff := ComputeSpectralFeatures(make([]float64, 8000), 16000, NFFT, SpectralHop, RolloffPercent)
	if centroid != 0 || rolloff != 0 {
		t.Errorf("Expected zero features for silence, got centroid=%f rolloff=%f", centroid, rolloff)
	}

	centroid, rolloff = ComputeSpectralFeatures(nil, 16000, NFFT, SpectralHop, RolloffPercent)
	if centroid != 0 || rolloff != 0 {
		t.Error("Expected zero features for empty input")
	}
}

func TestHigherToneHasHigherCentroid(t *testing.T) {
	low, _ := ComputeSpectralFeatures(sine(300, 0.5, 16000, 16000), 16000, NFFT, SpectralHop, RolloffPercent)
	high, _ := ComputeSpectralFeatures(sine(3000, 0.5, 16000, 16000), 16000, NFFT, SpectralHop, RolloffPercent)

	if high <= low {
		t.Errorf("Expected 3 kHz centroid (%f) above 300 Hz centroid (%f)", high, low)
	}
}

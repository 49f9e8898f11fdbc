package quality

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Tunables
const (
	NFFT           = 2048
	SpectralHop    = 512
	RolloffPercent = 0.85
)

// Hann returns a periodic Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// FFTReal wraps the go-dsp FFT function and returns a complex spectrum.
func FFTReal(frame []float64) []complex128 {
	return fft.FFTReal(frame)
}

// MagnitudeSpectrum converts a complex spectrum into magnitudes for the
// non-negative frequencies, DC through Nyquist inclusive.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum)/2 + 1
	if half > len(spectrum) {
		half = len(spectrum)
	}
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// BinFrequencies returns the centre frequency in Hz of each magnitude bin.
func BinFrequencies(nfft, sampleRate int) []float64 {
	freqs := make([]float64, nfft/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}
	return freqs
}

// STFT computes a centred short-time FFT and calls fn with the magnitude
// spectrum of every frame. The signal is zero padded by windowSize/2 on both
// sides so the first frame is centred on sample 0.
func STFT(samples []float64, windowSize, hopSize int, window []float64, fn func(frameIdx int, mag []float64)) (int, error) {
	if len(window) != windowSize {
		return 0, errors.New("window length must equal windowSize")
	}
	if len(samples) == 0 {
		return 0, errors.New("empty input")
	}

	buf := make([]float64, windowSize)
	n := centeredFrames(samples, windowSize, hopSize, padZero, func(i int, frame []float64) {
		for j := range frame {
			buf[j] = frame[j] * window[j]
		}
		fn(i, MagnitudeSpectrum(FFTReal(buf)))
	})
	return n, nil
}

// spectralCentroid is the magnitude-weighted mean frequency; 0 for a silent frame.
func spectralCentroid(mag, freqs []float64) float64 {
	var num, den float64
	for k, m := range mag {
		num += freqs[k] * m
		den += m
	}
	if den <= math.SmallestNonzeroFloat64 {
		return 0
	}
	return num / den
}

// spectralRolloff is the lowest frequency below which rollPercent of the
// frame's total magnitude lies.
func spectralRolloff(mag, freqs []float64, rollPercent float64) float64 {
	var total float64
	for _, m := range mag {
		total += m
	}
	threshold := rollPercent * total

	var cum float64
	for k, m := range mag {
		cum += m
		if cum >= threshold {
			return freqs[k]
		}
	}
	return freqs[len(freqs)-1]
}

// ComputeSpectralFeatures returns the mean spectral centroid and the mean
// rolloff frequency across all STFT frames.
func ComputeSpectralFeatures(samples []float64, sampleRate, nfft, hop int, rollPercent float64) (centroid, rolloff float64) {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0, 0
	}

	freqs := BinFrequencies(nfft, sampleRate)
	var centroidSum, rolloffSum float64
	frames, err := STFT(samples, nfft, hop, Hann(nfft), func(_ int, mag []float64) {
		centroidSum += spectralCentroid(mag, freqs)
		rolloffSum += spectralRolloff(mag, freqs, rollPercent)
	})
	if err != nil || frames == 0 {
		return 0, 0
	}
	return centroidSum / float64(frames), rolloffSum / float64(frames)
}

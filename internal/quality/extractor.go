// Package quality computes the objective signal metrics used to gate speech
// recordings. Every function here is pure: the same samples and sample rate
// always give bit-identical results.
package quality

import (
	"math"

	"github.com/himanishpuri/SpeechGate/pkg/models"
)

const (
	FrameLength    = 2048
	HopLength      = 512
	SNRFrameLength = 2048

	// SNRCeilingDB is reported when the quietest frames carry no energy at all.
	SNRCeilingDB = 50.0

	SilenceTopDB     = 30.0
	ClipThreshold    = 0.99
	zeroCrossEpsilon = 1e-10

	powerFloor     = 1e-10 // amin for power in dB
	amplitudeFloor = 1e-5  // amin for amplitude in dB
	dbRangeLimit   = 80.0  // top_db when converting RMS to dB
	rmsOffset      = 1e-10
)

// Extractor computes a MetricSet from a mono waveform.
type Extractor struct {
	FrameLength    int
	HopLength      int
	SNRFrameLength int
	SilenceTopDB   float64
	ClipThreshold  float64
	RolloffPercent float64
}

func NewExtractor() *Extractor {
	return &Extractor{
		FrameLength:    FrameLength,
		HopLength:      HopLength,
		SNRFrameLength: SNRFrameLength,
		SilenceTopDB:   SilenceTopDB,
		ClipThreshold:  ClipThreshold,
		RolloffPercent: RolloffPercent,
	}
}

// Extract computes all eight metrics. The metrics do not depend on each other.
func (e *Extractor) Extract(samples []float64, sampleRate int) models.MetricSet {
	rms := ComputeRMSFrames(samples, e.FrameLength, e.HopLength)
	centroid, rolloff := ComputeSpectralFeatures(samples, sampleRate, e.FrameLength, e.HopLength, e.RolloffPercent)

	return models.MetricSet{
		SNRDB:                ComputeSNR(samples, e.SNRFrameLength),
		SilenceRatio:         ComputeSilenceRatio(samples, e.FrameLength, e.HopLength, e.SilenceTopDB),
		ClippingRatio:        ComputeClippingRatio(samples, e.ClipThreshold),
		ZeroCrossingRate:     ComputeZeroCrossingRate(samples, e.FrameLength, e.HopLength),
		SpectralCentroidMean: centroid,
		SpectralRolloffMean:  rolloff,
		RMSEnergy:            mean(rms),
		DynamicRangeDB:       dynamicRangeFromRMS(rms),
	}
}

// ComputeSNR splits the signal into half-overlapping frames and treats the
// frames at or below the 10th percentile of energy as noise.
//
//   - no complete frame: -Inf
//   - noise or signal bucket empty: 0
//   - zero noise power: SNRCeilingDB
func ComputeSNR(samples []float64, frameLength int) float64 {
	hop := frameLength / 2
	n := frameCount(len(samples), frameLength, hop)
	if n == 0 {
		return math.Inf(-1)
	}

	energy := make([]float64, 0, n)
	forEachFrame(samples, frameLength, hop, func(_ int, frame []float64) {
		var e float64
		for _, v := range frame {
			e += v * v
		}
		energy = append(energy, e)
	})

	threshold := percentile(energy, 10)
	var noiseSum, signalSum float64
	var noiseN, signalN int
	for _, e := range energy {
		if e <= threshold {
			noiseSum += e
			noiseN++
		} else {
			signalSum += e
			signalN++
		}
	}

	if noiseN == 0 || signalN == 0 {
		return 0.0
	}

	noisePower := noiseSum / float64(noiseN)
	signalPower := signalSum / float64(signalN)
	if noisePower == 0 {
		return SNRCeilingDB
	}
	return 10 * math.Log10(signalPower/noisePower)
}

// ComputeSilenceRatio is 1 minus the fraction of samples inside non-silent
// intervals. A frame is non-silent when its power is within topDB of the
// loudest frame.
func ComputeSilenceRatio(samples []float64, frameLength, hop int, topDB float64) float64 {
	total := len(samples)
	if total == 0 {
		return 1.0
	}

	power := make([]float64, 0, total/hop+1)
	centeredFrames(samples, frameLength, hop, padZero, func(_ int, frame []float64) {
		power = append(power, meanSquare(frame))
	})

	ref := 0.0
	for _, p := range power {
		ref = math.Max(ref, p)
	}
	if ref <= powerFloor {
		return 1.0
	}

	refDB := 10 * math.Log10(ref)
	nonSilent := 0
	runStart := -1
	closeRun := func(end int) {
		start := runStart * hop
		stop := end * hop
		if stop > total {
			stop = total
		}
		if stop > start {
			nonSilent += stop - start
		}
		runStart = -1
	}

	for i, p := range power {
		loud := 10*math.Log10(math.Max(powerFloor, p))-refDB > -topDB
		switch {
		case loud && runStart < 0:
			runStart = i
		case !loud && runStart >= 0:
			closeRun(i)
		}
	}
	if runStart >= 0 {
		closeRun(len(power))
	}

	if nonSilent == 0 {
		return 1.0
	}
	return clamp01(1.0 - float64(nonSilent)/float64(total))
}

// ComputeClippingRatio is the fraction of samples at or above threshold in magnitude.
func ComputeClippingRatio(samples []float64, threshold float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	clipped := 0
	for _, v := range samples {
		if math.Abs(v) >= threshold {
			clipped++
		}
	}
	return clamp01(float64(clipped) / float64(len(samples)))
}

// ComputeZeroCrossingRate averages, over centred frames, the fraction of
// adjacent sample pairs whose sign differs. Near-zero samples count as positive.
func ComputeZeroCrossingRate(samples []float64, frameLength, hop int) float64 {
	negative := func(v float64) bool {
		return math.Abs(v) > zeroCrossEpsilon && v < 0
	}

	var sum float64
	n := centeredFrames(samples, frameLength, hop, padEdge, func(_ int, frame []float64) {
		crossings := 0
		for i := 1; i < len(frame); i++ {
			if negative(frame[i]) != negative(frame[i-1]) {
				crossings++
			}
		}
		sum += float64(crossings) / float64(len(frame))
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ComputeRMSFrames returns the root-mean-square amplitude of each centred frame.
func ComputeRMSFrames(samples []float64, frameLength, hop int) []float64 {
	rms := make([]float64, 0, len(samples)/hop+1)
	centeredFrames(samples, frameLength, hop, padZero, func(_ int, frame []float64) {
		rms = append(rms, math.Sqrt(meanSquare(frame)))
	})
	return rms
}

// ComputeRMSEnergy is the mean of the per-frame RMS.
func ComputeRMSEnergy(samples []float64, frameLength, hop int) float64 {
	return mean(ComputeRMSFrames(samples, frameLength, hop))
}

// ComputeDynamicRange is the spread in dB between the loudest and quietest frames.
func ComputeDynamicRange(samples []float64, frameLength, hop int) float64 {
	return dynamicRangeFromRMS(ComputeRMSFrames(samples, frameLength, hop))
}

func dynamicRangeFromRMS(rms []float64) float64 {
	if len(rms) == 0 {
		return 0.0
	}

	maxDB := math.Inf(-1)
	minDB := math.Inf(1)
	for _, r := range rms {
		db := 20 * math.Log10(math.Max(amplitudeFloor, r+rmsOffset))
		maxDB = math.Max(maxDB, db)
		minDB = math.Min(minDB, db)
	}
	// Quiet frames are floored dbRangeLimit below the loudest one.
	minDB = math.Max(minDB, maxDB-dbRangeLimit)
	return maxDB - minDB
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

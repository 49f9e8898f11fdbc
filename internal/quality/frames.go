package quality

import (
	"math"
	"sort"
)

type padMode int

const (
	padZero padMode = iota
	padEdge
)

// centerPad returns samples with frameLength/2 values added on both sides,
// either zeros or copies of the outermost sample.
func centerPad(samples []float64, frameLength int, mode padMode) []float64 {
	half := frameLength / 2
	padded := make([]float64, len(samples)+2*half)
	copy(padded[half:], samples)
	if mode == padEdge && len(samples) > 0 {
		first, last := samples[0], samples[len(samples)-1]
		for i := 0; i < half; i++ {
			padded[i] = first
			padded[len(padded)-1-i] = last
		}
	}
	return padded
}

// frameCount is the number of complete frames of frameLength that fit in n
// samples when stepping by hop.
func frameCount(n, frameLength, hop int) int {
	if n < frameLength || frameLength <= 0 || hop <= 0 {
		return 0
	}
	return 1 + (n-frameLength)/hop
}

// forEachFrame calls fn with consecutive frames of x. Frames alias x.
func forEachFrame(x []float64, frameLength, hop int, fn func(i int, frame []float64)) int {
	n := frameCount(len(x), frameLength, hop)
	for i := 0; i < n; i++ {
		start := i * hop
		fn(i, x[start:start+frameLength])
	}
	return n
}

// centeredFrames frames samples the way a centred short-time analysis does:
// frame i is centred on sample i*hop.
func centeredFrames(samples []float64, frameLength, hop int, mode padMode, fn func(i int, frame []float64)) int {
	if len(samples) == 0 {
		return 0
	}
	return forEachFrame(centerPad(samples, frameLength, mode), frameLength, hop, fn)
}

func meanSquare(frame []float64) float64 {
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	return sum / float64(len(frame))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile uses linear interpolation between closest ranks. p is in [0,100].
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

package filter

import (
	"math"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Component maxima of the quality score.
const (
	maxSNRScore          = 30.0
	maxSilenceScore      = 20.0
	maxClippingScore     = 20.0
	maxDynamicRangeScore = 15.0
	maxRMSScore          = 15.0
)

// Scorer folds a MetricSet into one quality score. Each sub-score is clamped
// to its component maximum, but the weighted sum is not normalised: it is
// bounded by the weights, not by 100.
type Scorer struct {
	Weights config.Weights
}

func NewScorer(w config.Weights) Scorer {
	return Scorer{Weights: w}
}

// Score never fails; a -Inf SNR simply contributes nothing.
func (s Scorer) Score(m models.MetricSet) float64 {
	snr := clamp(m.SNRDB/20*maxSNRScore, 0, maxSNRScore)
	silence := (1 - m.SilenceRatio) * maxSilenceScore
	clipping := (1 - math.Min(1, m.ClippingRatio*100)) * maxClippingScore
	dynamicRange := clamp(m.DynamicRangeDB/40*maxDynamicRangeScore, 0, maxDynamicRangeScore)
	rms := clamp(m.RMSEnergy/0.1*maxRMSScore, 0, maxRMSScore)

	w := s.Weights
	return snr*w.SNR +
		silence*w.Silence +
		clipping*w.Clipping +
		dynamicRange*w.DynamicRange +
		rms*w.RMS
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

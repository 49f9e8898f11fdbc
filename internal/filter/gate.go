package filter

import (
	"fmt"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Gate applies the hard thresholds.
type Gate struct {
	Thresholds config.Thresholds
}

func NewGate(t config.Thresholds) Gate {
	return Gate{Thresholds: t}
}

// Evaluate checks every metric threshold and returns one reason per
// violation, in a fixed order. The file is accepted only when there are none.
func (g Gate) Evaluate(m models.MetricSet) (bool, []string) {
	t := g.Thresholds
	var reasons []string

	if m.SNRDB < t.MinSNRDB {
		reasons = append(reasons, fmt.Sprintf("Low SNR: %.2f dB", m.SNRDB))
	}
	if m.SilenceRatio > t.MaxSilenceRatio {
		reasons = append(reasons, fmt.Sprintf("Too much silence: %.2f%%", m.SilenceRatio*100))
	}
	if m.ClippingRatio > t.MaxClippingRatio {
		reasons = append(reasons, fmt.Sprintf("Clipping detected: %.2f%%", m.ClippingRatio*100))
	}
	if m.RMSEnergy < t.MinRMSEnergy {
		reasons = append(reasons, fmt.Sprintf("Low energy: %.4f", m.RMSEnergy))
	}
	if m.DynamicRangeDB < t.MinDynamicRangeDB {
		reasons = append(reasons, fmt.Sprintf("Low dynamic range: %.2f dB", m.DynamicRangeDB))
	}

	return len(reasons) == 0, reasons
}

// CheckDuration returns a rejection reason when duration falls outside the
// configured range, or "" when it is acceptable.
func (g Gate) CheckDuration(duration float64) string {
	switch {
	case duration < g.Thresholds.MinDurationSec:
		return fmt.Sprintf("Too short: %.2fs", duration)
	case duration > g.Thresholds.MaxDurationSec:
		return fmt.Sprintf("Too long: %.2fs", duration)
	default:
		return ""
	}
}

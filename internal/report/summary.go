package report

import (
	"math"
	"sort"

	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Stats describes the distribution of one value across a batch.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ReasonCount is one row of the rejection breakdown. Percent is relative to
// the number of rejected files.
type ReasonCount struct {
	Reason  string  `json:"reason"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// GroupStats compares accepted files with rejected ones on the metrics that
// drive the gate. Only files that reached metric extraction are counted.
type GroupStats struct {
	Accepted map[string]Stats `json:"accepted"`
	Rejected map[string]Stats `json:"rejected"`

	// Mean accepted quality score minus mean rejected quality score, or
	// zero when either group is empty.
	ScoreGap float64 `json:"score_gap"`
}

// groupMetrics are the values GroupStats reports, in display order.
var groupMetrics = []string{"quality_score", "snr_db", "silence_ratio", "dynamic_range_db"}

type Summary struct {
	Total          int           `json:"total"`
	Accepted       int           `json:"accepted"`
	Rejected       int           `json:"rejected"`
	AcceptanceRate float64       `json:"acceptance_rate"`
	TotalHours     float64       `json:"total_hours"`
	AcceptedHours  float64       `json:"accepted_hours"`
	Reasons        []ReasonCount `json:"reasons"`
	QualityScore   Stats         `json:"quality_score"`

	// Per-metric stats over files that reached metric extraction.
	Metrics map[string]Stats `json:"metrics"`
	Groups  GroupStats       `json:"groups"`
}

// Summarize aggregates a batch. The quality score stats cover every file,
// including short-circuited ones with a zero score.
func Summarize(results []models.FileResult) Summary {
	s := Summary{
		Total:   len(results),
		Reasons: []ReasonCount{},
		Metrics: map[string]Stats{},
		Groups: GroupStats{
			Accepted: map[string]Stats{},
			Rejected: map[string]Stats{},
		},
	}
	if len(results) == 0 {
		return s
	}

	counts := map[string]int{}
	scores := make([]float64, 0, len(results))
	metricValues := map[string][]float64{}
	groupValues := map[bool]map[string][]float64{true: {}, false: {}}
	for _, r := range results {
		s.TotalHours += r.Duration / 3600
		scores = append(scores, r.QualityScore)

		if r.IsAccepted {
			s.Accepted++
			s.AcceptedHours += r.Duration / 3600
		} else {
			s.Rejected++
			for _, reason := range r.RejectionReasons {
				counts[models.ReasonCategory(reason)]++
			}
		}

		if !analysed(r) {
			continue
		}
		group := groupValues[r.IsAccepted]
		for i, v := range []float64{r.QualityScore, r.SNRDB, r.SilenceRatio, r.DynamicRangeDB} {
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				group[groupMetrics[i]] = append(group[groupMetrics[i]], v)
			}
		}

		for name, v := range map[string]float64{
			"snr_db":           r.SNRDB,
			"silence_ratio":    r.SilenceRatio,
			"clipping_ratio":   r.ClippingRatio,
			"rms_energy":       r.RMSEnergy,
			"dynamic_range_db": r.DynamicRangeDB,
		} {
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				metricValues[name] = append(metricValues[name], v)
			}
		}
	}

	s.AcceptanceRate = float64(s.Accepted) / float64(s.Total)
	s.QualityScore = Describe(scores)
	for name, values := range metricValues {
		s.Metrics[name] = Describe(values)
	}
	for name, values := range groupValues[true] {
		s.Groups.Accepted[name] = Describe(values)
	}
	for name, values := range groupValues[false] {
		s.Groups.Rejected[name] = Describe(values)
	}
	acc, rej := s.Groups.Accepted["quality_score"], s.Groups.Rejected["quality_score"]
	if acc.Count > 0 && rej.Count > 0 {
		s.Groups.ScoreGap = acc.Mean - rej.Mean
	}

	for reason, n := range counts {
		s.Reasons = append(s.Reasons, ReasonCount{
			Reason:  reason,
			Count:   n,
			Percent: 100 * float64(n) / float64(s.Rejected),
		})
	}
	sort.Slice(s.Reasons, func(i, j int) bool {
		if s.Reasons[i].Count != s.Reasons[j].Count {
			return s.Reasons[i].Count > s.Reasons[j].Count
		}
		return s.Reasons[i].Reason < s.Reasons[j].Reason
	})

	return s
}

// Describe computes count, mean, median, population standard deviation and range.
func Describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Stats{
		Count:  n,
		Mean:   mean,
		Median: median,
		Std:    math.Sqrt(sq / float64(n)),
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

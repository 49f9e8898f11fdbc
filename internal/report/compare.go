package report

import (
	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/internal/filter"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Preset is a named set of thresholds a stored run can be re-gated against.
type Preset struct {
	Name       string            `json:"name"`
	Thresholds config.Thresholds `json:"thresholds"`
}

// Comparison is the outcome of re-gating one batch with one preset.
// MeanAcceptedScore is zero when the preset accepts nothing.
type Comparison struct {
	Preset            string  `json:"preset"`
	MinSNRDB          float64 `json:"min_snr_db"`
	MaxSilenceRatio   float64 `json:"max_silence_ratio"`
	Total             int     `json:"total"`
	Accepted          int     `json:"accepted"`
	AcceptanceRate    float64 `json:"acceptance_rate"`
	MeanAcceptedScore float64 `json:"mean_accepted_score"`
}

// PresetLimits names the SNR floor and silence ceiling of a preset.
type PresetLimits struct {
	Name            string  `json:"name"`
	MinSNRDB        float64 `json:"min_snr_db"`
	MaxSilenceRatio float64 `json:"max_silence_ratio"`
}

// StandardLimits are the presets every comparison includes.
var StandardLimits = []PresetLimits{
	{Name: "Default", MinSNRDB: 10, MaxSilenceRatio: 0.4},
	{Name: "Strict", MinSNRDB: 15, MaxSilenceRatio: 0.3},
	{Name: "Lenient", MinSNRDB: 7, MaxSilenceRatio: 0.5},
}

// ThresholdPresets builds the standard presets followed by extra on top of
// base. Only the SNR floor and the silence ceiling differ between them.
func ThresholdPresets(base config.Thresholds, extra ...PresetLimits) []Preset {
	limits := append(append([]PresetLimits(nil), StandardLimits...), extra...)
	presets := make([]Preset, len(limits))
	for i, l := range limits {
		t := base
		t.MinSNRDB = l.MinSNRDB
		t.MaxSilenceRatio = l.MaxSilenceRatio
		presets[i] = Preset{Name: l.Name, Thresholds: t}
	}
	return presets
}

// CompareThresholds re-evaluates stored metrics under each preset without
// decoding any audio. Files that never reached metric extraction stay
// rejected under every preset; stored quality scores are reused.
func CompareThresholds(results []models.FileResult, presets []Preset) []Comparison {
	out := make([]Comparison, 0, len(presets))
	for _, p := range presets {
		gate := filter.NewGate(p.Thresholds)
		c := Comparison{
			Preset:          p.Name,
			MinSNRDB:        p.Thresholds.MinSNRDB,
			MaxSilenceRatio: p.Thresholds.MaxSilenceRatio,
			Total:           len(results),
		}

		var scoreSum float64
		for _, r := range results {
			if !analysed(r) || gate.CheckDuration(r.Duration) != "" {
				continue
			}
			if ok, _ := gate.Evaluate(r.MetricSet); ok {
				c.Accepted++
				scoreSum += r.QualityScore
			}
		}

		if c.Total > 0 {
			c.AcceptanceRate = float64(c.Accepted) / float64(c.Total)
		}
		if c.Accepted > 0 {
			c.MeanAcceptedScore = scoreSum / float64(c.Accepted)
		}
		out = append(out, c)
	}
	return out
}

func analysed(r models.FileResult) bool {
	return !r.Errored() && r.MetricSet != (models.MetricSet{})
}

package models

import "strings"

// MetricSet holds the per-file signal measurements. Every value is a pure
// function of the decoded waveform and its sample rate.
type MetricSet struct {
	SNRDB                float64 `json:"snr_db"`
	SilenceRatio         float64 `json:"silence_ratio"`  // [0,1]
	ClippingRatio        float64 `json:"clipping_ratio"` // [0,1]
	ZeroCrossingRate     float64 `json:"zero_crossing_rate"`
	SpectralCentroidMean float64 `json:"spectral_centroid_mean"` // Hz
	SpectralRolloffMean  float64 `json:"spectral_rolloff_mean"`  // Hz
	RMSEnergy            float64 `json:"rms_energy"`
	DynamicRangeDB       float64 `json:"dynamic_range_db"`
}

// FileResult is the record produced for every input file, whether it was
// accepted, rejected by a threshold, or failed to load.
type FileResult struct {
	FilePath   string  `json:"file_path"`
	Duration   float64 `json:"duration"` // seconds
	SampleRate int     `json:"sample_rate"`
	MetricSet
	QualityScore     float64  `json:"quality_score"`
	IsAccepted       bool     `json:"is_accepted"`
	RejectionReasons []string `json:"rejection_reasons"`
}

// Rejected builds a rejected record with a single reason and zeroed metrics.
func Rejected(path string, duration float64, sampleRate int, reason string) FileResult {
	return FileResult{
		FilePath:         path,
		Duration:         duration,
		SampleRate:       sampleRate,
		IsAccepted:       false,
		RejectionReasons: []string{reason},
	}
}

// ReasonCategory is the text of a rejection reason before its first colon,
// e.g. "Low SNR" for "Low SNR: 3.20 dB".
func ReasonCategory(reason string) string {
	category, _, _ := strings.Cut(reason, ":")
	return strings.TrimSpace(category)
}

// Errored reports whether the file could not be analysed at all.
func (r FileResult) Errored() bool {
	for _, reason := range r.RejectionReasons {
		if ReasonCategory(reason) == "Processing error" {
			return true
		}
	}
	return false
}

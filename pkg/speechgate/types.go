package speechgate

import (
	"errors"

	"github.com/himanishpuri/SpeechGate/internal/audio"
	"github.com/himanishpuri/SpeechGate/internal/batch"
	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/internal/metrics"
	"github.com/himanishpuri/SpeechGate/internal/report"
	"github.com/himanishpuri/SpeechGate/internal/storage"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

type (
	FilterConfig = config.FilterConfig
	Thresholds   = config.Thresholds
	Weights      = config.Weights
	Summary      = report.Summary
	Stats        = report.Stats
	ReasonCount  = report.ReasonCount
	GroupStats   = report.GroupStats
	Preset       = report.Preset
	PresetLimits = report.PresetLimits
	Comparison   = report.Comparison

	// Source decodes a path into a mono Waveform; implement it to feed
	// audio from somewhere other than the local filesystem.
	Source     = audio.Source
	Waveform   = audio.Waveform
	FileSource = audio.FileSource

	// MetricsRecorder collects Prometheus metrics for the batches it observes.
	MetricsRecorder = metrics.Recorder
)

// NewFileSource returns the default decoder: WAV in-process, everything else via ffmpeg.
func NewFileSource(sampleRate int, tempDir string) *FileSource {
	return audio.NewFileSource(sampleRate, tempDir)
}

// NewMetricsRecorder returns a recorder with its own registry.
func NewMetricsRecorder() *MetricsRecorder {
	return metrics.NewRecorder()
}

// DefaultDBPath is the SQLite file used when no path is configured.
const DefaultDBPath = storage.DefaultDBFile

var (
	ErrNoInputFiles  = batch.ErrNoInputFiles
	ErrRunNotFound   = storage.ErrRunNotFound
	ErrInvalidConfig = config.ErrInvalidConfig

	// ErrNoStorage is returned by run queries when persistence is disabled.
	ErrNoStorage = errors.New("no result storage configured")

	// ErrPersistFailed is returned by FilterFiles together with a complete
	// RunReport when the batch finished but could not be stored.
	ErrPersistFailed = errors.New("run completed but could not be stored")
)

// ThresholdPresets returns the Default, Strict and Lenient presets, then extra,
// built on base.
func ThresholdPresets(base Thresholds, extra ...PresetLimits) []Preset {
	return report.ThresholdPresets(base, extra...)
}

// DefaultFilterConfig returns the default sample rate, thresholds and weights.
func DefaultFilterConfig() FilterConfig {
	return config.Default()
}

// RunReport is the outcome of one batch. RunID is empty when persistence is disabled.
type RunReport struct {
	RunID   string              `json:"run_id,omitempty"`
	Results []models.FileResult `json:"results"`
	Summary Summary             `json:"summary"`
}

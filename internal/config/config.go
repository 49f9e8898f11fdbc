package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// ErrInvalidConfig marks every configuration problem. It is the only error
// class that aborts a run before any file is processed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Thresholds are the hard limits applied by the gate.
type Thresholds struct {
	MinSNRDB          float64 `json:"min_snr_db"`
	MaxSilenceRatio   float64 `json:"max_silence_ratio"`
	MaxClippingRatio  float64 `json:"max_clipping_ratio"`
	MinRMSEnergy      float64 `json:"min_rms_energy"`
	MinDynamicRangeDB float64 `json:"min_dynamic_range_db"`
	MinDurationSec    float64 `json:"min_duration_sec"`
	MaxDurationSec    float64 `json:"max_duration_sec"`
}

// Weights scale each sub-score of the quality score. They should sum to 1.0;
// that is not enforced.
type Weights struct {
	SNR          float64 `json:"snr"`
	Silence      float64 `json:"silence"`
	Clipping     float64 `json:"clipping"`
	DynamicRange float64 `json:"dynamic_range"`
	RMS          float64 `json:"rms"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.SNR + w.Silence + w.Clipping + w.DynamicRange + w.RMS
}

// FilterConfig is created once per run and shared read-only by all workers.
type FilterConfig struct {
	SampleRate int        `json:"sample_rate"`
	Thresholds Thresholds `json:"thresholds"`
	Weights    Weights    `json:"weights"`
}

const (
	DefaultSampleRate = 16000
)

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSNRDB:          10.0,
		MaxSilenceRatio:   0.4,
		MaxClippingRatio:  0.01,
		MinRMSEnergy:      0.01,
		MinDynamicRangeDB: 15.0,
		MinDurationSec:    1.0,
		MaxDurationSec:    30.0,
	}
}

func DefaultWeights() Weights {
	return Weights{
		SNR:          0.30,
		Silence:      0.20,
		Clipping:     0.20,
		DynamicRange: 0.15,
		RMS:          0.15,
	}
}

func Default() FilterConfig {
	return FilterConfig{
		SampleRate: DefaultSampleRate,
		Thresholds: DefaultThresholds(),
		Weights:    DefaultWeights(),
	}
}

// Option mutates a FilterConfig before validation.
type Option func(*FilterConfig)

func WithSampleRate(rate int) Option {
	return func(c *FilterConfig) { c.SampleRate = rate }
}

func WithMinSNR(db float64) Option {
	return func(c *FilterConfig) { c.Thresholds.MinSNRDB = db }
}

func WithMaxSilence(ratio float64) Option {
	return func(c *FilterConfig) { c.Thresholds.MaxSilenceRatio = ratio }
}

func WithMaxClipping(ratio float64) Option {
	return func(c *FilterConfig) { c.Thresholds.MaxClippingRatio = ratio }
}

func WithDurationRange(minSec, maxSec float64) Option {
	return func(c *FilterConfig) {
		c.Thresholds.MinDurationSec = minSec
		c.Thresholds.MaxDurationSec = maxSec
	}
}

func WithWeights(w Weights) Option {
	return func(c *FilterConfig) { c.Weights = w }
}

// Apply returns a copy of c with opts applied.
func (c FilterConfig) Apply(opts ...Option) FilterConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate reports every problem found, joined, each wrapping ErrInvalidConfig.
func (c FilterConfig) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.SampleRate <= 0 {
		bad("sample_rate must be positive, got %d", c.SampleRate)
	}

	t := c.Thresholds
	named := []struct {
		name string
		v    float64
	}{
		{"min_snr_db", t.MinSNRDB},
		{"max_silence_ratio", t.MaxSilenceRatio},
		{"max_clipping_ratio", t.MaxClippingRatio},
		{"min_rms_energy", t.MinRMSEnergy},
		{"min_dynamic_range_db", t.MinDynamicRangeDB},
		{"min_duration_sec", t.MinDurationSec},
		{"max_duration_sec", t.MaxDurationSec},
	}
	for _, n := range named {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) {
			bad("%s must be finite, got %v", n.name, n.v)
		}
	}
	if t.MaxSilenceRatio < 0 || t.MaxSilenceRatio > 1 {
		bad("max_silence_ratio must be within [0,1], got %v", t.MaxSilenceRatio)
	}
	if t.MaxClippingRatio < 0 || t.MaxClippingRatio > 1 {
		bad("max_clipping_ratio must be within [0,1], got %v", t.MaxClippingRatio)
	}
	if t.MinRMSEnergy < 0 {
		bad("min_rms_energy must not be negative, got %v", t.MinRMSEnergy)
	}
	if t.MinDurationSec < 0 {
		bad("min_duration_sec must not be negative, got %v", t.MinDurationSec)
	}
	if t.MaxDurationSec <= t.MinDurationSec {
		bad("max_duration_sec (%v) must exceed min_duration_sec (%v)", t.MaxDurationSec, t.MinDurationSec)
	}

	w := c.Weights
	weights := []struct {
		name string
		v    float64
	}{
		{"snr", w.SNR},
		{"silence", w.Silence},
		{"clipping", w.Clipping},
		{"dynamic_range", w.DynamicRange},
		{"rms", w.RMS},
	}
	for _, n := range weights {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) || n.v < 0 {
			bad("weight %s must be a finite non-negative number, got %v", n.name, n.v)
		}
	}

	return errors.Join(errs...)
}

// WeightsBalanced reports whether the weights sum to 1 within a small tolerance.
func (c FilterConfig) WeightsBalanced() bool {
	return math.Abs(c.Weights.Sum()-1.0) <= 1e-6
}

// Parse decodes JSON on top of the defaults, so omitted keys keep their
// default value. Unknown keys are rejected.
func Parse(data []byte) (FilterConfig, error) {
	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return FilterConfig{}, fmt.Errorf("%w: decoding config: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Load reads a JSON config file. An empty path yields the defaults.
func Load(path string) (FilterConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FilterConfig{}, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}
	return Parse(data)
}

// Save writes the config as indented JSON, creating parent directories.
func (c FilterConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

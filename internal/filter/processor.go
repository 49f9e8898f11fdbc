// Package filter turns one audio file into one FileResult: load, duration
// check, metric extraction, scoring and gating.
package filter

import (
	"context"
	"fmt"

	"github.com/himanishpuri/SpeechGate/internal/audio"
	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/internal/quality"
	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Logger is the subset of *logger.Logger the engine packages use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ProcessingErrorPrefix starts the reason of every file that could not be analysed.
const ProcessingErrorPrefix = "Processing error: "

// Processor runs the per-file pipeline. It is safe for concurrent use: it
// holds only read-only configuration.
type Processor struct {
	cfg       config.FilterConfig
	source    audio.Source
	extractor *quality.Extractor
	scorer    Scorer
	gate      Gate
	log       Logger
}

type ProcessorOption func(*Processor)

// WithLogger replaces the default logger.
func WithLogger(l Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProcessor(cfg config.FilterConfig, src audio.Source, opts ...ProcessorOption) *Processor {
	p := &Processor{
		cfg:       cfg,
		source:    src,
		extractor: quality.NewExtractor(),
		scorer:    NewScorer(cfg.Weights),
		gate:      NewGate(cfg.Thresholds),
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process always returns a well-formed result. Load failures become a
// rejected result with a single "Processing error" reason.
func (p *Processor) Process(ctx context.Context, path string) models.FileResult {
	wf, err := p.source.Load(ctx, path)
	if err != nil {
		p.log.Debugf("load failed for %s: %v", path, err)
		return LoadErrorResult(path, err)
	}

	duration := wf.Duration()
	if reason := p.gate.CheckDuration(duration); reason != "" {
		p.log.Debugf("%s: %s", path, reason)
		return models.Rejected(path, duration, wf.SampleRate, reason)
	}

	metrics := p.extractor.Extract(wf.Samples, wf.SampleRate)
	score := p.scorer.Score(metrics)
	accepted, reasons := p.gate.Evaluate(metrics)
	if reasons == nil {
		reasons = []string{}
	}

	p.log.Debugf("%s: score=%.2f accepted=%t", path, score, accepted)

	return models.FileResult{
		FilePath:         path,
		Duration:         duration,
		SampleRate:       wf.SampleRate,
		MetricSet:        metrics,
		QualityScore:     score,
		IsAccepted:       accepted,
		RejectionReasons: reasons,
	}
}

// LoadErrorResult records a file the source could not decode.
func LoadErrorResult(path string, err error) models.FileResult {
	return models.Rejected(path, 0, 0, fmt.Sprintf("%sFailed to load %s: %v", ProcessingErrorPrefix, path, err))
}

// ErrorResult records a file that could not be analysed.
func ErrorResult(path string, cause error) models.FileResult {
	return models.Rejected(path, 0, 0, fmt.Sprintf("%s%v", ProcessingErrorPrefix, cause))
}

// Package metrics exposes batch progress and per-file outcomes as Prometheus
// metrics. Each Recorder owns its own registry, so several batches in one
// process never share counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Outcome labels.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeErrored  = "errored"
)

type Recorder struct {
	registry *prometheus.Registry

	filesProcessed   *prometheus.CounterVec
	rejectionReasons *prometheus.CounterVec
	processingTime   prometheus.Histogram
	qualityScore     prometheus.Histogram
	batchProgress    prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		filesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speechgate_files_processed_total",
				Help: "Total number of files processed, by outcome",
			},
			[]string{"outcome"},
		),
		rejectionReasons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speechgate_rejection_reasons_total",
				Help: "Total number of rejection reasons, by category",
			},
			[]string{"reason"},
		),
		processingTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "speechgate_file_processing_seconds",
				Help:    "Time spent loading and analysing one file",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		qualityScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "speechgate_quality_score",
				Help:    "Quality score of files that reached scoring",
				Buckets: prometheus.LinearBuckets(0, 2.5, 12),
			},
		),
		batchProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "speechgate_batch_progress",
				Help: "Fraction of the current batch that has completed",
			},
		),
	}

	r.registry.MustRegister(
		r.filesProcessed,
		r.rejectionReasons,
		r.processingTime,
		r.qualityScore,
		r.batchProgress,
	)
	return r
}

// Observe records one finished file.
func (r *Recorder) Observe(result models.FileResult, elapsed time.Duration) {
	r.processingTime.Observe(elapsed.Seconds())

	switch {
	case result.IsAccepted:
		r.filesProcessed.WithLabelValues(OutcomeAccepted).Inc()
	case result.Errored():
		r.filesProcessed.WithLabelValues(OutcomeErrored).Inc()
	default:
		r.filesProcessed.WithLabelValues(OutcomeRejected).Inc()
	}

	for _, reason := range result.RejectionReasons {
		r.rejectionReasons.WithLabelValues(models.ReasonCategory(reason)).Inc()
	}

	if result.SampleRate > 0 && result.QualityScore > 0 {
		r.qualityScore.Observe(result.QualityScore)
	}
}

// SetProgress updates the progress gauge.
func (r *Recorder) SetProgress(done, total int) {
	if total <= 0 {
		r.batchProgress.Set(0)
		return
	}
	r.batchProgress.Set(float64(done) / float64(total))
}

// RegisterRuntimeCollectors adds Go runtime and process metrics. Long-lived
// servers call it once; one-shot CLI runs leave it off.
func (r *Recorder) RegisterRuntimeCollectors() error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// WriteTextfile writes the current values for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

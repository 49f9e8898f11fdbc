package speechgate

import (
	"context"
	"fmt"

	"github.com/himanishpuri/SpeechGate/internal/batch"
	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/internal/filter"
	"github.com/himanishpuri/SpeechGate/internal/report"
	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/models"
	"github.com/himanishpuri/SpeechGate/pkg/utils"
)

// gateService is the default implementation of the Service interface.
type gateService struct {
	storage   Storage
	log       Logger
	config    *Config
	processor *filter.Processor
}

// NewService validates the filter configuration and opens storage. A
// configuration error is returned before anything else is created.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	if err := cfg.Filter.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Filter.WeightsBalanced() {
		cfg.Logger.Warnf("Quality weights sum to %.3f, not 1; scores will not be comparable with the defaults", cfg.Filter.Weights.Sum())
	}

	stor := cfg.Storage
	if stor == nil && cfg.DBPath != "" {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	src := cfg.Source
	if src == nil {
		src = NewFileSource(cfg.Filter.SampleRate, cfg.TempDir)
	}

	return &gateService{
		storage:   stor,
		log:       cfg.Logger,
		config:    cfg,
		processor: filter.NewProcessor(cfg.Filter, src, filter.WithLogger(cfg.Logger)),
	}, nil
}

// FilterFiles runs the quality gate over paths, persists the results when
// storage is configured and returns them with a summary.
func (s *gateService) FilterFiles(ctx context.Context, paths []string) (*RunReport, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputFiles
	}

	var runID string
	if s.storage != nil {
		id, err := s.storage.CreateRun(s.config.Filter)
		if err != nil {
			return nil, fmt.Errorf("creating run: %w", err)
		}
		runID = id
		s.log.Infof("Started run %s", runID)
	}

	opts := batch.Options{
		Workers:            s.config.Workers,
		PreserveInputOrder: s.config.PreserveInputOrder,
		Logger:             s.log,
	}
	if s.config.Metrics != nil {
		opts.Recorder = s.config.Metrics
	}

	results, err := batch.New(s.processor, opts).Run(ctx, paths)
	if err != nil {
		return nil, err
	}

	summary := report.Summarize(results)
	s.log.Infof("Accepted %d of %d files", summary.Accepted, summary.Total)
	rep := &RunReport{RunID: runID, Results: results, Summary: summary}

	if s.storage != nil {
		if err := s.persist(runID, results, summary); err != nil {
			rep.RunID = ""
			return rep, fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
	}
	return rep, nil
}

// persist stores the batch and closes the run. On failure the partial run is
// removed so no unfinished run is left behind.
func (s *gateService) persist(runID string, results []models.FileResult, summary Summary) error {
	err := s.storage.StoreResults(runID, results)
	if err != nil {
		err = fmt.Errorf("storing results: %w", err)
	} else if err = s.storage.FinishRun(runID, summary.Accepted, summary.Rejected); err != nil {
		err = fmt.Errorf("finishing run: %w", err)
	}
	if err == nil {
		return nil
	}

	if derr := s.storage.DeleteRun(runID); derr != nil {
		s.log.Warnf("Could not remove incomplete run %s: %v", runID, derr)
	}
	return err
}

// FilterDirectory scans dir recursively for audio files and filters them.
func (s *gateService) FilterDirectory(ctx context.Context, dir string) (*RunReport, error) {
	paths, err := utils.FindAudioFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, dir)
	}
	s.log.Infof("Found %d audio files in %s", len(paths), dir)
	return s.FilterFiles(ctx, paths)
}

func (s *gateService) ListRuns(limit int) ([]models.Run, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	return s.storage.ListRuns(limit)
}

func (s *gateService) GetRun(runID string) (models.Run, error) {
	if s.storage == nil {
		return models.Run{}, ErrNoStorage
	}
	return s.storage.GetRun(runID)
}

func (s *gateService) RunResults(runID string, rf models.ResultFilter) ([]models.FileResult, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	return s.storage.ListResults(runID, rf)
}

// CompareRun re-gates a stored run under the standard presets and any extra
// limits, all built on the thresholds the run was filtered with.
func (s *gateService) CompareRun(runID string, extra ...PresetLimits) ([]Comparison, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	run, err := s.storage.GetRun(runID)
	if err != nil {
		return nil, err
	}
	results, err := s.storage.ListResults(runID, models.ResultFilter{})
	if err != nil {
		return nil, err
	}
	return report.CompareThresholds(results, ThresholdPresets(s.runThresholds(run), extra...)), nil
}

// runThresholds recovers the thresholds stored with a run, falling back to
// the service's own.
func (s *gateService) runThresholds(run models.Run) Thresholds {
	if len(run.Config) == 0 {
		return s.config.Filter.Thresholds
	}
	cfg, err := config.Parse(run.Config)
	if err != nil {
		s.log.Warnf("Run %s has an unreadable config, using current thresholds: %v", run.ID, err)
		return s.config.Filter.Thresholds
	}
	return cfg.Thresholds
}

func (s *gateService) DeleteRun(runID string) error {
	if s.storage == nil {
		return ErrNoStorage
	}
	return s.storage.DeleteRun(runID)
}

func (s *gateService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}

package speechgate

import (
	"context"

	"github.com/himanishpuri/SpeechGate/pkg/models"
)

type Service interface {
	// FilterFiles returns a report whenever the batch itself ran; a storage
	// failure yields that report together with ErrPersistFailed.
	FilterFiles(ctx context.Context, paths []string) (*RunReport, error)
	FilterDirectory(ctx context.Context, dir string) (*RunReport, error)
	ListRuns(limit int) ([]models.Run, error)
	GetRun(runID string) (models.Run, error)
	RunResults(runID string, filter models.ResultFilter) ([]models.FileResult, error)
	CompareRun(runID string, extra ...PresetLimits) ([]Comparison, error)
	DeleteRun(runID string) error
	Close() error
}

type Storage interface {
	CreateRun(cfg FilterConfig) (string, error)
	StoreResults(runID string, results []models.FileResult) error
	FinishRun(runID string, accepted, rejected int) error
	GetRun(runID string) (models.Run, error)
	ListRuns(limit int) ([]models.Run, error)
	ListResults(runID string, filter models.ResultFilter) ([]models.FileResult, error)
	DeleteRun(runID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

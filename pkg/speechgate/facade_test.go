package speechgate_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/models"
	"github.com/himanishpuri/SpeechGate/pkg/speechgate"
)

// memorySource serves generated tones without touching the filesystem.
type memorySource struct {
	rate int
}

func (m memorySource) Load(_ context.Context, path string) (speechgate.Waveform, error) {
	if strings.HasSuffix(path, ".missing") {
		return speechgate.Waveform{}, fmt.Errorf("no such clip")
	}
	samples := make([]float64, 2*m.rate)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/float64(m.rate))
	}
	for i := len(samples) * 3 / 4; i < len(samples); i++ {
		samples[i] *= 0.001
	}
	return speechgate.Waveform{Samples: samples, SampleRate: m.rate}, nil
}

// brokenStorage accepts a run but fails to store its results.
type brokenStorage struct {
	created []string
	deleted []string
}

func (b *brokenStorage) CreateRun(speechgate.FilterConfig) (string, error) {
	id := fmt.Sprintf("run-%d", len(b.created)+1)
	b.created = append(b.created, id)
	return id, nil
}

func (b *brokenStorage) StoreResults(string, []models.FileResult) error {
	return errors.New("database is locked")
}

func (b *brokenStorage) FinishRun(string, int, int) error { return nil }

func (b *brokenStorage) GetRun(string) (models.Run, error) {
	return models.Run{}, speechgate.ErrRunNotFound
}

func (b *brokenStorage) ListRuns(int) ([]models.Run, error) { return nil, nil }

func (b *brokenStorage) ListResults(string, models.ResultFilter) ([]models.FileResult, error) {
	return nil, speechgate.ErrRunNotFound
}

func (b *brokenStorage) DeleteRun(id string) error {
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *brokenStorage) Close() error { return nil }

func TestCustomSourceAndMetrics(t *testing.T) {
	rec := speechgate.NewMetricsRecorder()
	svc, err := speechgate.NewService(
		speechgate.WithDBPath(""),
		speechgate.WithSource(memorySource{rate: 16000}),
		speechgate.WithMetrics(rec),
		speechgate.WithLogger(logger.Discard()),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	rep, err := svc.FilterFiles(context.Background(), []string{"one.clip", "two.missing"})
	if err != nil {
		t.Fatalf("FilterFiles failed: %v", err)
	}
	if len(rep.Results) != 2 || rep.RunID != "" {
		t.Fatalf("Unexpected report: %+v", rep)
	}
	if rep.Results[0].Duration != 2 || rep.Results[0].SampleRate != 16000 {
		t.Errorf("Expected the in-memory clip to be analysed, got %+v", rep.Results[0])
	}
	if !rep.Results[1].Errored() {
		t.Errorf("Expected a load error for the missing clip, got %v", rep.Results[1].RejectionReasons)
	}

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `speechgate_files_processed_total{outcome="errored"} 1`) {
		t.Errorf("Expected the errored file to be counted, got:\n%s", w.Body.String())
	}
}

func TestFilterFilesKeepsReportWhenStorageFails(t *testing.T) {
	store := &brokenStorage{}
	svc, err := speechgate.NewService(
		speechgate.WithStorage(store),
		speechgate.WithSource(memorySource{rate: 16000}),
		speechgate.WithLogger(logger.Discard()),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	rep, err := svc.FilterFiles(context.Background(), []string{"a.clip", "b.clip", "c.clip"})
	if !errors.Is(err, speechgate.ErrPersistFailed) {
		t.Fatalf("Expected ErrPersistFailed, got %v", err)
	}
	if rep == nil || len(rep.Results) != 3 || rep.Summary.Total != 3 {
		t.Fatalf("Expected the full report alongside the error, got %+v", rep)
	}
	if rep.RunID != "" {
		t.Errorf("A run that was not stored should have no ID, got %q", rep.RunID)
	}
	if len(store.deleted) != 1 || store.deleted[0] != store.created[0] {
		t.Errorf("Expected the incomplete run to be removed, deleted %v", store.deleted)
	}
}

func TestCompareRunUsesStoredThresholds(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.sqlite3")
	open := func(cfg speechgate.FilterConfig) speechgate.Service {
		t.Helper()
		svc, err := speechgate.NewService(
			speechgate.WithDBPath(dbPath),
			speechgate.WithFilterConfig(cfg),
			speechgate.WithSource(memorySource{rate: 16000}),
			speechgate.WithLogger(logger.Discard()),
		)
		if err != nil {
			t.Fatalf("NewService failed: %v", err)
		}
		return svc
	}

	demanding := speechgate.DefaultFilterConfig()
	demanding.Thresholds.MinDynamicRangeDB = 200
	svc := open(demanding)
	strictRun, err := svc.FilterFiles(context.Background(), []string{"one.clip", "two.missing"})
	if err != nil {
		t.Fatalf("FilterFiles failed: %v", err)
	}
	svc.Close()

	svc = open(speechgate.DefaultFilterConfig())
	defer svc.Close()
	plainRun, err := svc.FilterFiles(context.Background(), []string{"one.clip", "two.missing"})
	if err != nil {
		t.Fatalf("FilterFiles failed: %v", err)
	}

	anything := speechgate.PresetLimits{Name: "Anything", MinSNRDB: -1000, MaxSilenceRatio: 1}
	for _, tt := range []struct {
		runID    string
		accepted int
	}{
		{strictRun.RunID, 0},
		{plainRun.RunID, 1},
	} {
		rows, err := svc.CompareRun(tt.runID, anything)
		if err != nil {
			t.Fatalf("CompareRun(%s) failed: %v", tt.runID, err)
		}
		if len(rows) != 4 || rows[0].Preset != "Default" || rows[3].Preset != "Anything" {
			t.Fatalf("Unexpected presets: %+v", rows)
		}
		if rows[3].Total != 2 || rows[3].Accepted != tt.accepted {
			t.Errorf("Run %s: expected %d of 2 accepted, got %+v", tt.runID, tt.accepted, rows[3])
		}
	}

	if _, err := svc.CompareRun("no-such-run"); !errors.Is(err, speechgate.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestCompareRunWithoutStorage(t *testing.T) {
	svc, err := speechgate.NewService(speechgate.WithDBPath(""), speechgate.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	if _, err := svc.CompareRun("run-1"); !errors.Is(err, speechgate.ErrNoStorage) {
		t.Errorf("Expected ErrNoStorage, got %v", err)
	}
}

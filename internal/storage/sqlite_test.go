package storage

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_speechgate.sqlite3")
	t.Setenv("SPEECHGATE_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func sampleResults() []models.FileResult {
	return []models.FileResult{
		{
			FilePath:   "a.wav",
			Duration:   2.5,
			SampleRate: 16000,
			MetricSet: models.MetricSet{
				SNRDB: 24.5, SilenceRatio: 0.1, RMSEnergy: 0.08, DynamicRangeDB: 35,
				ZeroCrossingRate: 0.07, SpectralCentroidMean: 1500, SpectralRolloffMean: 3200,
			},
			QualityScore:     19.2,
			IsAccepted:       true,
			RejectionReasons: []string{},
		},
		{
			FilePath:         "b.wav",
			Duration:         0.05,
			SampleRate:       16000,
			MetricSet:        models.MetricSet{SNRDB: math.Inf(-1), SilenceRatio: 0.9},
			QualityScore:     4,
			RejectionReasons: []string{"Low SNR: -Inf dB", "Too much silence: 90.00%"},
		},
		models.Rejected("c.mp3", 0, 0, "Processing error: failed to load c.mp3; ffmpeg exited 1"),
	}
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client == nil || client.DB == nil || client.db == nil {
		t.Fatal("Expected initialised DB client")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithCustomPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	if err != nil {
		t.Fatalf("Failed to create DB with custom path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(customPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at custom path %s", customPath)
	}
}

func TestCreateAndGetRun(t *testing.T) {
	client, _ := setupTestDB(t)

	runID, err := client.CreateRun(config.Default())
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}
	if len(runID) != 36 {
		t.Errorf("Expected a UUID run ID, got %q", runID)
	}

	run, err := client.GetRun(runID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run.SampleRate != 16000 || run.FinishedAt != nil {
		t.Errorf("Unexpected run: %+v", run)
	}

	var cfg config.FilterConfig
	if err := json.Unmarshal(run.Config, &cfg); err != nil {
		t.Fatalf("Stored config is not valid JSON: %v", err)
	}
	if cfg != config.Default() {
		t.Errorf("Stored config mismatch: %+v", cfg)
	}
}

func TestGetRunNotFound(t *testing.T) {
	client, _ := setupTestDB(t)

	if _, err := client.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if _, err := client.ListResults("missing", models.ResultFilter{}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound from ListResults, got %v", err)
	}
	if err := client.FinishRun("missing", 1, 1); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound from FinishRun, got %v", err)
	}
	if err := client.DeleteRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound from DeleteRun, got %v", err)
	}
}

func TestStoreAndListResults(t *testing.T) {
	client, _ := setupTestDB(t)

	runID, err := client.CreateRun(config.Default())
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	want := sampleResults()
	if err := client.StoreResults(runID, want); err != nil {
		t.Fatalf("Failed to store results: %v", err)
	}

	got, err := client.ListResults(runID, models.ResultFilter{})
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Results did not survive storage:\n got %+v\nwant %+v", got, want)
	}

	accepted := true
	onlyAccepted, err := client.ListResults(runID, models.ResultFilter{Accepted: &accepted})
	if err != nil {
		t.Fatalf("Failed to list accepted results: %v", err)
	}
	if len(onlyAccepted) != 1 || onlyAccepted[0].FilePath != "a.wav" {
		t.Errorf("Expected only a.wav, got %+v", onlyAccepted)
	}

	rejected := false
	limited, err := client.ListResults(runID, models.ResultFilter{Accepted: &rejected, Limit: 1})
	if err != nil {
		t.Fatalf("Failed to list rejected results: %v", err)
	}
	if len(limited) != 1 || limited[0].FilePath != "b.wav" {
		t.Errorf("Expected first rejected result b.wav, got %+v", limited)
	}
}

func TestStoreResultsAppends(t *testing.T) {
	client, _ := setupTestDB(t)
	runID, _ := client.CreateRun(config.Default())

	results := sampleResults()
	if err := client.StoreResults(runID, results[:1]); err != nil {
		t.Fatalf("First store failed: %v", err)
	}
	if err := client.StoreResults(runID, results[1:]); err != nil {
		t.Fatalf("Second store failed: %v", err)
	}

	got, err := client.ListResults(runID, models.ResultFilter{})
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	for i, r := range got {
		if r.FilePath != results[i].FilePath {
			t.Errorf("Position %d: expected %s, got %s", i, results[i].FilePath, r.FilePath)
		}
	}
}

func TestFinishRun(t *testing.T) {
	client, _ := setupTestDB(t)
	runID, _ := client.CreateRun(config.Default())

	if err := client.FinishRun(runID, 7, 3); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	run, err := client.GetRun(runID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run.Total != 10 || run.Accepted != 7 || run.Rejected != 3 {
		t.Errorf("Unexpected counts: %+v", run)
	}
	if run.FinishedAt == nil || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("Expected a finish time after the start, got %v", run.FinishedAt)
	}
}

func TestListRuns(t *testing.T) {
	client, _ := setupTestDB(t)

	for i := 0; i < 3; i++ {
		if _, err := client.CreateRun(config.Default()); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
	}

	runs, err := client.ListRuns(0)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Error("Expected runs ordered newest first")
		}
	}

	limited, err := client.ListRuns(2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 runs with limit, got %d", len(limited))
	}
}

func TestDeleteRun(t *testing.T) {
	client, _ := setupTestDB(t)
	runID, _ := client.CreateRun(config.Default())
	if err := client.StoreResults(runID, sampleResults()); err != nil {
		t.Fatalf("Failed to store results: %v", err)
	}

	if err := client.DeleteRun(runID); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}

	if _, err := client.GetRun(runID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected run to be deleted, got %v", err)
	}
	var count int64
	client.DB.Model(&FileRecord{}).Where("run_id = ?", runID).Count(&count)
	if count != 0 {
		t.Errorf("Expected results to be deleted, found %d", count)
	}
}

func TestNilClient(t *testing.T) {
	var client *DBClient

	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
	if _, err := client.CreateRun(config.Default()); err == nil {
		t.Error("Expected error from nil client")
	}
	if err := client.StoreResults("x", sampleResults()); err == nil {
		t.Error("Expected error from nil client")
	}
}

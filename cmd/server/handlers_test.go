package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/internal/report"
	"github.com/himanishpuri/SpeechGate/pkg/models"
	"github.com/himanishpuri/SpeechGate/pkg/speechgate"
)

// stubService serves canned runs and records the paths it was asked to filter.
type stubService struct {
	runs     map[string][]models.FileResult
	filtered []string
	noStore  bool
}

func newStubService() *stubService {
	return &stubService{runs: map[string][]models.FileResult{
		"run-1": {
			{FilePath: "good.wav", Duration: 3, IsAccepted: true, QualityScore: 18, RejectionReasons: []string{}},
			models.Rejected("silent.wav", 2, 16000, "Too much silence: 99.00%"),
		},
	}}
}

func (s *stubService) FilterFiles(_ context.Context, paths []string) (*speechgate.RunReport, error) {
	if len(paths) == 0 {
		return nil, speechgate.ErrNoInputFiles
	}
	s.filtered = append(s.filtered, paths...)
	results := make([]models.FileResult, len(paths))
	for i, p := range paths {
		results[i] = models.Rejected(p, 0, 16000, "Too short: 0.00s")
		results[i].SNRDB = math.Inf(-1)
	}
	return &speechgate.RunReport{RunID: "run-new", Results: results, Summary: report.Summarize(results)}, nil
}

func (s *stubService) FilterDirectory(ctx context.Context, dir string) (*speechgate.RunReport, error) {
	return s.FilterFiles(ctx, []string{dir + "/a.wav"})
}

func (s *stubService) ListRuns(limit int) ([]models.Run, error) {
	if s.noStore {
		return nil, speechgate.ErrNoStorage
	}
	var runs []models.Run
	for id, results := range s.runs {
		runs = append(runs, models.Run{ID: id, Total: len(results)})
	}
	return runs, nil
}

func (s *stubService) GetRun(runID string) (models.Run, error) {
	results, ok := s.runs[runID]
	if !ok {
		return models.Run{}, speechgate.ErrRunNotFound
	}
	return models.Run{ID: runID, Total: len(results)}, nil
}

func (s *stubService) RunResults(runID string, rf models.ResultFilter) ([]models.FileResult, error) {
	results, ok := s.runs[runID]
	if !ok {
		return nil, speechgate.ErrRunNotFound
	}
	var out []models.FileResult
	for _, r := range results {
		if rf.Accepted == nil || *rf.Accepted == r.IsAccepted {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubService) CompareRun(runID string, extra ...speechgate.PresetLimits) ([]speechgate.Comparison, error) {
	results, ok := s.runs[runID]
	if !ok {
		return nil, speechgate.ErrRunNotFound
	}
	return report.CompareThresholds(results, speechgate.ThresholdPresets(config.DefaultThresholds(), extra...)), nil
}

func (s *stubService) DeleteRun(runID string) error {
	if _, ok := s.runs[runID]; !ok {
		return speechgate.ErrRunNotFound
	}
	delete(s.runs, runID)
	return nil
}

func (s *stubService) Close() error { return nil }

func newTestServer(t *testing.T, svc speechgate.Service) http.Handler {
	t.Helper()
	return NewServer(svc, nil, &ServerConfig{
		DBPath:         "test.sqlite3",
		TempDir:        t.TempDir(),
		Workers:        2,
		Filter:         config.Default(),
		AllowedOrigins: []string{"*"},
	}).setupRoutes()
}

func doRequest(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(newTestServer(t, newStubService()), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestStatusWithoutStorage(t *testing.T) {
	svc := newStubService()
	svc.noStore = true

	rec := doRequest(newTestServer(t, svc), http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if resp.DatabasePath != "" || resp.Filter.SampleRate != 16000 {
		t.Errorf("Unexpected status: %+v", resp)
	}
}

func TestCreateRunWithPaths(t *testing.T) {
	svc := newStubService()
	h := newTestServer(t, svc)

	body, _ := json.Marshal(FilterRequest{Paths: []string{"a.wav", "b.wav"}})
	rec := doRequest(h, http.MethodPost, "/api/runs", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RunID   string           `json:"run_id"`
		Count   int              `json:"count"`
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if resp.RunID != "run-new" || resp.Count != 2 {
		t.Errorf("Unexpected response: %+v", resp)
	}
	// -Inf SNR must survive encoding as null
	if v, ok := resp.Results[0]["snr_db"]; !ok || v != nil {
		t.Errorf("Expected null snr_db, got %v", v)
	}
	if len(svc.filtered) != 2 {
		t.Errorf("Expected 2 filtered paths, got %v", svc.filtered)
	}
}

func TestCreateRunValidation(t *testing.T) {
	h := newTestServer(t, newStubService())

	tests := []struct {
		name string
		body string
	}{
		{"empty", `{}`},
		{"both sources", `{"paths":["a.wav"],"dataset_dir":"/data"}`},
		{"blank path", `{"paths":[""]}`},
		{"malformed", `{"paths":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, "/api/runs", []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestGetRunAndResults(t *testing.T) {
	h := newTestServer(t, newStubService())

	rec := doRequest(h, http.MethodGet, "/api/runs/run-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var detail RunDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if detail.Run.ID != "run-1" || detail.Summary.Accepted != 1 || detail.Summary.Rejected != 1 {
		t.Errorf("Unexpected detail: %+v", detail)
	}

	rec = doRequest(h, http.MethodGet, "/api/runs/run-1/results?accepted=false", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var results ResultsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if results.Count != 1 {
		t.Errorf("Expected 1 rejected result, got %d", results.Count)
	}

	if rec := doRequest(h, http.MethodGet, "/api/runs/run-1/results?accepted=maybe", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad accepted value, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodGet, "/api/runs/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown run, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodGet, "/api/runs/run-1/other", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown sub-resource, got %d", rec.Code)
	}
}

func TestDeleteRun(t *testing.T) {
	svc := newStubService()
	h := newTestServer(t, svc)

	if rec := doRequest(h, http.MethodDelete, "/api/runs/run-1", nil); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if _, ok := svc.runs["run-1"]; ok {
		t.Error("Run should have been deleted")
	}
	if rec := doRequest(h, http.MethodDelete, "/api/runs/run-1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodPut, "/api/runs/run-1", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestCheckUpload(t *testing.T) {
	svc := newStubService()
	h := newTestServer(t, svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write([]byte("RIFF"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/check", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.filtered) != 1 || !strings.HasSuffix(svc.filtered[0], "clip.wav") {
		t.Errorf("Expected upload to be filtered under its own name, got %v", svc.filtered)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(newTestServer(t, newStubService()), http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "speechgate_batch_progress") {
		t.Errorf("Expected speechgate metrics in output")
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := doRequest(newTestServer(t, newStubService()), http.MethodOptions, "/api/runs", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected wildcard CORS origin")
	}
}

func TestParseOrigins(t *testing.T) {
	got := parseOrigins("http://a.test, http://b.test")
	if len(got) != 2 || got[1] != "http://b.test" {
		t.Errorf("Unexpected origins: %v", got)
	}
}

func TestCompareRun(t *testing.T) {
	svc := newStubService()
	svc.runs["run-2"] = []models.FileResult{
		{FilePath: "ok.wav", Duration: 4, QualityScore: 60, IsAccepted: true, RejectionReasons: []string{},
			MetricSet: models.MetricSet{SNRDB: 12, SilenceRatio: 0.2, RMSEnergy: 0.05, DynamicRangeDB: 30}},
	}
	h := newTestServer(t, svc)

	rec := doRequest(h, http.MethodGet, "/api/runs/run-2/compare?min_snr=13", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp CompareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Comparisons) != 4 {
		t.Fatalf("Expected three standard presets and a custom one, got %+v", resp.Comparisons)
	}
	accepted := map[string]int{}
	for _, c := range resp.Comparisons {
		accepted[c.Preset] = c.Accepted
	}
	if accepted["Default"] != 1 || accepted["Strict"] != 0 || accepted["Lenient"] != 1 || accepted["Custom"] != 0 {
		t.Errorf("Unexpected acceptance per preset: %v", accepted)
	}
	if custom := resp.Comparisons[3]; custom.MinSNRDB != 13 || custom.MaxSilenceRatio != 0.4 {
		t.Errorf("Custom preset should keep the default silence ceiling: %+v", custom)
	}

	if rec := doRequest(h, http.MethodGet, "/api/runs/run-2/compare?max_silence=2", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an out-of-range silence ceiling, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodGet, "/api/runs/run-2/compare?min_snr=loud", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-numeric SNR, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodGet, "/api/runs/missing/compare", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown run, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodPost, "/api/runs/run-2/compare", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

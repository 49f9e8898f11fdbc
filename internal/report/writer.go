// Package report writes batch results to disk in the formats downstream
// tooling reads: a CSV table, a JSON array and two plain-text manifests.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/himanishpuri/SpeechGate/pkg/models"
	"github.com/himanishpuri/SpeechGate/pkg/utils"
)

const (
	CSVFile      = "filtering_results.csv"
	JSONFile     = "filtering_results.json"
	AcceptedFile = "accepted_files.txt"
	RejectedFile = "rejected_files.txt"

	ReasonSeparator = "; "
)

// Columns is the field order shared by every output format.
var Columns = []string{
	"file_path", "duration", "sample_rate",
	"snr_db", "silence_ratio", "clipping_ratio",
	"zero_crossing_rate", "spectral_centroid_mean", "spectral_rolloff_mean",
	"rms_energy", "dynamic_range_db", "quality_score",
	"is_accepted", "rejection_reasons",
}

// JoinReasons renders rejection reasons the way the table and manifests do.
func JoinReasons(reasons []string) string {
	return strings.Join(reasons, ReasonSeparator)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func WriteCSV(w io.Writer, results []models.FileResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.FilePath,
			formatFloat(r.Duration),
			strconv.Itoa(r.SampleRate),
			formatFloat(r.SNRDB),
			formatFloat(r.SilenceRatio),
			formatFloat(r.ClippingRatio),
			formatFloat(r.ZeroCrossingRate),
			formatFloat(r.SpectralCentroidMean),
			formatFloat(r.SpectralRolloffMean),
			formatFloat(r.RMSEnergy),
			formatFloat(r.DynamicRangeDB),
			formatFloat(r.QualityScore),
			strconv.FormatBool(r.IsAccepted),
			JoinReasons(r.RejectionReasons),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonFloat encodes non-finite values as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type jsonRecord struct {
	FilePath             string    `json:"file_path"`
	Duration             jsonFloat `json:"duration"`
	SampleRate           int       `json:"sample_rate"`
	SNRDB                jsonFloat `json:"snr_db"`
	SilenceRatio         jsonFloat `json:"silence_ratio"`
	ClippingRatio        jsonFloat `json:"clipping_ratio"`
	ZeroCrossingRate     jsonFloat `json:"zero_crossing_rate"`
	SpectralCentroidMean jsonFloat `json:"spectral_centroid_mean"`
	SpectralRolloffMean  jsonFloat `json:"spectral_rolloff_mean"`
	RMSEnergy            jsonFloat `json:"rms_energy"`
	DynamicRangeDB       jsonFloat `json:"dynamic_range_db"`
	QualityScore         jsonFloat `json:"quality_score"`
	IsAccepted           bool      `json:"is_accepted"`
	RejectionReasons     []string  `json:"rejection_reasons"`
}

// JSONRecord converts a result into its JSON-safe form.
func JSONRecord(r models.FileResult) any {
	reasons := r.RejectionReasons
	if reasons == nil {
		reasons = []string{}
	}
	return jsonRecord{
		FilePath:             r.FilePath,
		Duration:             jsonFloat(r.Duration),
		SampleRate:           r.SampleRate,
		SNRDB:                jsonFloat(r.SNRDB),
		SilenceRatio:         jsonFloat(r.SilenceRatio),
		ClippingRatio:        jsonFloat(r.ClippingRatio),
		ZeroCrossingRate:     jsonFloat(r.ZeroCrossingRate),
		SpectralCentroidMean: jsonFloat(r.SpectralCentroidMean),
		SpectralRolloffMean:  jsonFloat(r.SpectralRolloffMean),
		RMSEnergy:            jsonFloat(r.RMSEnergy),
		DynamicRangeDB:       jsonFloat(r.DynamicRangeDB),
		QualityScore:         jsonFloat(r.QualityScore),
		IsAccepted:           r.IsAccepted,
		RejectionReasons:     reasons,
	}
}

// JSONRecords converts every result with JSONRecord.
func JSONRecords(results []models.FileResult) []any {
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = JSONRecord(r)
	}
	return out
}

func WriteJSON(w io.Writer, results []models.FileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONRecords(results))
}

// WriteManifests writes the accepted paths, and the rejected paths with their
// joined reasons separated by a tab.
func WriteManifests(dir string, results []models.FileResult) error {
	accepted, err := os.Create(filepath.Join(dir, AcceptedFile))
	if err != nil {
		return err
	}
	defer accepted.Close()

	rejected, err := os.Create(filepath.Join(dir, RejectedFile))
	if err != nil {
		return err
	}
	defer rejected.Close()

	aw := bufio.NewWriter(accepted)
	rw := bufio.NewWriter(rejected)
	for _, r := range results {
		if r.IsAccepted {
			fmt.Fprintf(aw, "%s\n", r.FilePath)
		} else {
			fmt.Fprintf(rw, "%s\t%s\n", r.FilePath, JoinReasons(r.RejectionReasons))
		}
	}

	if err := aw.Flush(); err != nil {
		return err
	}
	if err := rw.Flush(); err != nil {
		return err
	}
	if err := accepted.Close(); err != nil {
		return err
	}
	return rejected.Close()
}

// WriteAll creates dir if needed and writes every report file into it.
func WriteAll(dir string, results []models.FileResult) error {
	if err := utils.MakeDir(dir); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	writeFile := func(name string, write func(io.Writer, []models.FileResult) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		defer f.Close()
		if err := write(f, results); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return f.Close()
	}

	if err := writeFile(CSVFile, WriteCSV); err != nil {
		return err
	}
	if err := writeFile(JSONFile, WriteJSON); err != nil {
		return err
	}
	if err := WriteManifests(dir, results); err != nil {
		return fmt.Errorf("writing manifests: %w", err)
	}
	return nil
}

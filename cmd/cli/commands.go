package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/himanishpuri/SpeechGate/internal/cli"
	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/internal/report"
	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/models"
	"github.com/himanishpuri/SpeechGate/pkg/speechgate"
	"github.com/himanishpuri/SpeechGate/pkg/utils"
)

type FilterCmd struct {
	DatasetDir string   `help:"Directory scanned recursively for audio files" type:"existingdir"`
	FileList   string   `help:"Text file with one audio path per line" type:"existingfile"`
	Files      []string `arg:"" optional:"" help:"Audio files to filter"`

	Config    string `short:"c" help:"JSON filter configuration (defaults apply to omitted keys)" type:"existingfile"`
	OutputDir string `short:"o" help:"Directory for reports and manifests" default:"filtered_output" type:"path"`
	Workers   int    `short:"w" help:"Number of parallel workers (0 = all CPUs)" default:"4"`

	MinSNR      *float64 `help:"Override min_snr_db"`
	MaxSilence  *float64 `help:"Override max_silence_ratio"`
	MaxClipping *float64 `help:"Override max_clipping_ratio"`
	Rate        *int     `help:"Override the target sample rate"`

	Ordered     bool   `help:"Write results in input order instead of completion order" default:"true" negatable:""`
	MetricsFile string `help:"Write Prometheus metrics to this textfile when the run ends" type:"path"`
	NoDB        bool   `help:"Do not store the run in the database"`
}

// inputPaths resolves exactly one input source into a file list.
func (c *FilterCmd) inputPaths() ([]string, error) {
	sources := 0
	for _, set := range []bool{c.DatasetDir != "", c.FileList != "", len(c.Files) > 0} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return nil, errors.New("no input: pass --dataset-dir, --file-list or audio files")
	case sources > 1:
		return nil, errors.New("use only one of --dataset-dir, --file-list or audio files")
	}

	var (
		paths []string
		err   error
	)
	switch {
	case c.DatasetDir != "":
		paths, err = utils.FindAudioFiles(c.DatasetDir)
	case c.FileList != "":
		paths, err = utils.ReadFileList(c.FileList)
	default:
		paths = c.Files
	}
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, speechgate.ErrNoInputFiles
	}
	return paths, nil
}

// filterConfig loads the configuration file, if any, and applies flag overrides.
func (c *FilterCmd) filterConfig() (config.FilterConfig, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return config.FilterConfig{}, err
	}

	var opts []config.Option
	if c.MinSNR != nil {
		opts = append(opts, config.WithMinSNR(*c.MinSNR))
	}
	if c.MaxSilence != nil {
		opts = append(opts, config.WithMaxSilence(*c.MaxSilence))
	}
	if c.MaxClipping != nil {
		opts = append(opts, config.WithMaxClipping(*c.MaxClipping))
	}
	if c.Rate != nil {
		opts = append(opts, config.WithSampleRate(*c.Rate))
	}
	cfg = cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return config.FilterConfig{}, err
	}
	return cfg, nil
}

func (c *FilterCmd) Run(g *Globals) error {
	log := logger.GetLogger()

	cfg, err := c.filterConfig()
	if err != nil {
		return err
	}
	paths, err := c.inputPaths()
	if err != nil {
		return err
	}

	rec := speechgate.NewMetricsRecorder()
	opts := []speechgate.Option{
		speechgate.WithFilterConfig(cfg),
		speechgate.WithWorkers(c.Workers),
		speechgate.WithInputOrder(c.Ordered),
		speechgate.WithMetrics(rec),
	}
	if c.NoDB {
		opts = append(opts, speechgate.WithDBPath(""))
	}

	svc, err := g.newService(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, runErr := svc.FilterFiles(ctx, paths)
	if rep == nil {
		return runErr
	}
	if runErr != nil {
		log.Errorf("%v; writing reports anyway", runErr)
	}

	if err := report.WriteAll(c.OutputDir, rep.Results); err != nil {
		return err
	}
	if err := cfg.Save(filepath.Join(c.OutputDir, "config.json")); err != nil {
		return err
	}
	log.Infof("Results saved to %s", c.OutputDir)

	if c.MetricsFile != "" {
		if err := rec.WriteTextfile(c.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	cli.PrintSummary(os.Stdout, rep.RunID, rep.Summary)
	if log.Level() == logger.DEBUG {
		fmt.Println()
		cli.PrintResults(os.Stdout, rep.Results)
	}
	return runErr
}

type RunsCmd struct {
	List    RunsListCmd    `cmd:"" help:"List stored runs, newest first"`
	Show    RunsShowCmd    `cmd:"" help:"Show a run and its results"`
	Compare RunsCompareCmd `cmd:"" help:"Re-gate a stored run under stricter and looser thresholds"`
	Delete  RunsDeleteCmd  `cmd:"" help:"Delete a run and its results"`
}

type RunsListCmd struct {
	Limit int `short:"n" help:"Maximum number of runs to show (0 = all)" default:"20"`
}

func (c *RunsListCmd) Run(g *Globals) error {
	svc, err := g.newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	runs, err := svc.ListRuns(c.Limit)
	if err != nil {
		return err
	}
	cli.PrintRuns(os.Stdout, runs)
	return nil
}

type RunsShowCmd struct {
	ID    string `arg:"" help:"Run ID"`
	Only  string `help:"Which results to list" enum:"all,accepted,rejected" default:"all"`
	Limit int    `short:"n" help:"Maximum number of results to list (0 = all)" default:"0"`
}

func (c *RunsShowCmd) Run(g *Globals) error {
	accepted, err := parseAcceptedFilter(c.Only)
	if err != nil {
		return err
	}

	svc, err := g.newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	run, err := svc.GetRun(c.ID)
	if err != nil {
		return err
	}
	all, err := svc.RunResults(c.ID, models.ResultFilter{})
	if err != nil {
		return err
	}
	results := all
	if accepted != nil || c.Limit > 0 {
		results, err = svc.RunResults(c.ID, models.ResultFilter{Accepted: accepted, Limit: c.Limit})
		if err != nil {
			return err
		}
	}

	cli.PrintSummary(os.Stdout, run.ID, report.Summarize(all))
	fmt.Println()
	cli.PrintResults(os.Stdout, results)
	return nil
}

type RunsCompareCmd struct {
	ID         string   `arg:"" help:"Run ID"`
	MinSNR     *float64 `help:"Add a custom preset with this SNR floor in dB"`
	MaxSilence *float64 `help:"Add a custom preset with this silence ceiling (0-1)"`
	JSON       bool     `help:"Print the comparison as JSON"`
}

// custom returns the extra preset asked for on the command line, if any.
// An omitted limit keeps the Default preset's value.
func (c *RunsCompareCmd) custom() ([]speechgate.PresetLimits, error) {
	if c.MinSNR == nil && c.MaxSilence == nil {
		return nil, nil
	}
	l := report.StandardLimits[0]
	l.Name = "Custom"
	if c.MinSNR != nil {
		l.MinSNRDB = *c.MinSNR
	}
	if c.MaxSilence != nil {
		l.MaxSilenceRatio = *c.MaxSilence
	}
	if l.MaxSilenceRatio < 0 || l.MaxSilenceRatio > 1 {
		return nil, fmt.Errorf("%w: max silence %.2f is outside [0,1]", speechgate.ErrInvalidConfig, l.MaxSilenceRatio)
	}
	return []speechgate.PresetLimits{l}, nil
}

func (c *RunsCompareCmd) Run(g *Globals) error {
	extra, err := c.custom()
	if err != nil {
		return err
	}

	svc, err := g.newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	rows, err := svc.CompareRun(c.ID, extra...)
	if err != nil {
		return err
	}
	if c.JSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	cli.PrintComparison(os.Stdout, c.ID, rows)
	return nil
}

type RunsDeleteCmd struct {
	ID string `arg:"" help:"Run ID"`
}

func (c *RunsDeleteCmd) Run(g *Globals) error {
	svc, err := g.newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.DeleteRun(c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", c.ID)
	return nil
}

type ConfigCmd struct {
	Output string `short:"o" help:"Write to this file instead of stdout" type:"path"`
}

func (c *ConfigCmd) Run(_ *Globals) error {
	cfg := config.Default()
	if c.Output != "" {
		return cfg.Save(c.Output)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

type SpectrogramCmd struct {
	Files     []string `arg:"" optional:"" help:"Audio files to render"`
	RunID     string   `name:"run" help:"Render the files of a stored run instead"`
	Only      string   `help:"Which files of the run to render" enum:"all,accepted,rejected" default:"rejected"`
	OutputDir string   `short:"o" help:"Directory for PNG files" default:"spectrograms" type:"path"`
	Rate      int      `help:"Sample rate audio is decoded at" default:"${sample_rate}"`
	Width     int      `help:"Image width in pixels" default:"2048"`
	Height    int      `help:"Image height in pixels (frequency bins)" default:"512"`
}

func (c *SpectrogramCmd) paths(g *Globals) ([]string, error) {
	if c.RunID == "" {
		if len(c.Files) == 0 {
			return nil, errors.New("no input: pass audio files or --run")
		}
		return c.Files, nil
	}
	if len(c.Files) > 0 {
		return nil, errors.New("use either audio files or --run, not both")
	}

	accepted, err := parseAcceptedFilter(c.Only)
	if err != nil {
		return nil, err
	}
	svc, err := g.newService()
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	results, err := svc.RunResults(c.RunID, models.ResultFilter{Accepted: accepted})
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Errored() {
			paths = append(paths, r.FilePath)
		}
	}
	return paths, nil
}

func (c *SpectrogramCmd) Run(g *Globals) error {
	log := logger.GetLogger()

	paths, err := c.paths(g)
	if err != nil {
		return err
	}

	tempDir := g.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	src := speechgate.NewFileSource(c.Rate, tempDir)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outputs := report.SpectrogramPaths(c.OutputDir, paths)
	written := 0
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		wf, err := src.Load(ctx, p)
		if err != nil {
			log.Warnf("Skipping %s: %v", p, err)
			continue
		}
		out := outputs[i]
		if err := report.WriteSpectrogram(out, wf.Samples, wf.SampleRate, c.Width, c.Height); err != nil {
			log.Warnf("Skipping %s: %v", p, err)
			continue
		}
		log.Debugf("Saved spectrogram to %s", out)
		written++
	}

	fmt.Printf("Wrote %d of %d spectrograms to %s\n", written, len(paths), c.OutputDir)
	return nil
}

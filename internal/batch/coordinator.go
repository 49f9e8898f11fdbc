// Package batch fans the per-file pipeline out over a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"time"

	"github.com/himanishpuri/SpeechGate/internal/filter"
	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// ErrNoInputFiles is returned before any work starts when the input set is empty.
var ErrNoInputFiles = errors.New("no input files")

// FileProcessor analyses one file. Implementations must be safe for concurrent use.
type FileProcessor interface {
	Process(ctx context.Context, path string) models.FileResult
}

// Recorder observes finished files. *metrics.Recorder satisfies it.
type Recorder interface {
	Observe(result models.FileResult, elapsed time.Duration)
	SetProgress(done, total int)
}

type Options struct {
	// Workers is the pool size; zero or less means runtime.NumCPU().
	Workers int

	// PreserveInputOrder sorts results by input index. By default results are
	// returned in completion order.
	PreserveInputOrder bool

	// OnProgress is called from the collecting goroutine after every result.
	OnProgress func(done, total int)

	Recorder Recorder
	Logger   filter.Logger
}

type Coordinator struct {
	proc FileProcessor
	opts Options
	log  filter.Logger
}

type task struct {
	index int
	path  string
}

type taskResult struct {
	index   int
	result  models.FileResult
	elapsed time.Duration
}

func New(proc FileProcessor, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Coordinator{proc: proc, opts: opts, log: scoped(log, "batch")}
}

// scoped tags log with prefix when it supports child loggers.
func scoped(log filter.Logger, prefix string) filter.Logger {
	if s, ok := log.(interface{ With(string) *logger.Logger }); ok {
		return s.With(prefix)
	}
	return log
}

// Workers returns the effective pool size.
func (c *Coordinator) Workers() int {
	return c.opts.Workers
}

// Run processes every path and returns exactly one result per path. A failing
// or panicking file never stops the others. ctx is handed to the processor;
// tasks already queued still run to completion.
func (c *Coordinator) Run(ctx context.Context, paths []string) ([]models.FileResult, error) {
	total := len(paths)
	if total == 0 {
		return nil, ErrNoInputFiles
	}

	workers := min(c.opts.Workers, total)
	c.log.Infof("Processing %d files with %d workers", total, workers)

	tasks := make(chan task, total)
	results := make(chan taskResult, total)

	for i := 0; i < workers; i++ {
		go c.worker(ctx, i, tasks, results)
	}
	for i, p := range paths {
		tasks <- task{index: i, path: p}
	}
	close(tasks)

	collected := make([]taskResult, 0, total)
	step := max(1, total/10)
	accepted := 0
	for done := 1; done <= total; done++ {
		tr := <-results
		collected = append(collected, tr)
		if tr.result.IsAccepted {
			accepted++
		}

		if c.opts.Recorder != nil {
			c.opts.Recorder.Observe(tr.result, tr.elapsed)
			c.opts.Recorder.SetProgress(done, total)
		}
		if c.opts.OnProgress != nil {
			c.opts.OnProgress(done, total)
		}
		if done%step == 0 || done == total {
			c.log.Infof("Progress: %d/%d (%.0f%%), %d accepted", done, total, 100*float64(done)/float64(total), accepted)
		}
	}

	if c.opts.PreserveInputOrder {
		sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	}

	out := make([]models.FileResult, len(collected))
	for i, tr := range collected {
		out[i] = tr.result
	}
	return out, nil
}

func (c *Coordinator) worker(ctx context.Context, id int, tasks <-chan task, results chan<- taskResult) {
	log := scoped(c.log, fmt.Sprintf("worker-%d", id))
	for t := range tasks {
		start := time.Now()
		r := c.runTask(ctx, log, t.path)
		elapsed := time.Since(start)
		log.Debugf("%s done in %s", t.path, elapsed.Round(time.Millisecond))
		results <- taskResult{index: t.index, result: r, elapsed: elapsed}
	}
}

// runTask converts a panic inside the processor into an error-tagged result.
func (c *Coordinator) runTask(ctx context.Context, log filter.Logger, path string) (result models.FileResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic processing %s: %v\n%s", path, r, debug.Stack())
			result = filter.ErrorResult(path, fmt.Errorf("worker failure: %v", r))
		}
	}()
	return c.proc.Process(ctx, path)
}

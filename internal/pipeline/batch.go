package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Job is one input file and the MIDI file it should become
type Job struct {
	Input  string
	Output string
}

// Jobs pairs every input with an output named after it. Outputs go to outDir,
// or next to the input when outDir is empty.
func Jobs(inputs []string, outDir string) []Job {
	jobs := make([]Job, 0, len(inputs))
	for _, in := range inputs {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".mid"
		dir := outDir
		if dir == "" {
			dir = filepath.Dir(in)
		}
		jobs = append(jobs, Job{Input: in, Output: filepath.Join(dir, base)})
	}
	return jobs
}

// FileError is a failed conversion of a single input. Its message leads with
// the input so a batch report names every failing file.
type FileError struct {
	Input string
	Err   error
}

func (e *FileError) Error() string {
	return e.Input + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchError collects the failures of ConvertAll
type BatchError struct {
	Total    int
	Failures []*FileError
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d of %d conversions failed: %s", len(e.Failures), e.Total, strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// ConvertAll converts every job, running up to the configured number of
// workers at once. A failing job does not stop the others; all failures are
// returned together as a *BatchError.
func (c *Converter) ConvertAll(ctx context.Context, jobs []Job) error {
	workers := c.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)

	errs := make([]error, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			_, errs[i] = c.ConvertFile(ctx, job.Input, job.Output)
			return nil
		})
	}
	g.Wait()

	batch := &BatchError{Total: len(jobs)}
	for i, err := range errs {
		if err != nil {
			c.log.WithField("file", jobs[i].Input).WithError(err).Error("conversion failed")
			batch.Failures = append(batch.Failures, &FileError{Input: jobs[i].Input, Err: err})
		}
	}
	if len(batch.Failures) > 0 {
		return batch
	}
	return nil
}

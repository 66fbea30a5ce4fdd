// Package worker runs independent jobs on a bounded set of goroutines.
// The board engine uses it to persist the lanes of a cross-lane move:
// each lane is one job whose writes run in order, while different lanes
// may overlap.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Job is a named unit of work. A job runs its own steps sequentially;
// the pool only decides which jobs overlap.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result holds the outcome of a single job.
type Result struct {
	Name     string
	Duration time.Duration
	Error    error
}

// Pool manages parallel job execution.
type Pool struct {
	maxWorkers int
	log        log.FieldLogger
}

// PoolConfig holds configuration for creating a pool.
type PoolConfig struct {
	MaxWorkers int
	Logger     log.FieldLogger
}

// NewPool creates a new pool. MaxWorkers below one runs jobs sequentially.
func NewPool(pc PoolConfig) *Pool {
	logger := pc.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Pool{maxWorkers: pc.MaxWorkers, log: logger}
}

// MaxWorkers returns the concurrency limit.
func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

// Run executes all jobs (up to maxWorkers at a time) and returns their
// results in job order. Every job runs even if another one fails.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	if p.maxWorkers <= 1 || len(jobs) <= 1 {
		return p.runSequential(ctx, jobs)
	}
	return p.runParallel(ctx, jobs)
}

func (p *Pool) runSequential(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, 0, len(jobs))
	for _, j := range jobs {
		results = append(results, p.execute(ctx, j))
	}
	return results
}

func (p *Pool) runParallel(ctx context.Context, jobs []Job) []Result {
	sem := make(chan struct{}, p.maxWorkers)
	var wg sync.WaitGroup

	results := make([]Result, len(jobs))

	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{} // Acquire worker slot.

		go func(idx int, j Job) {
			defer wg.Done()
			defer func() { <-sem }() // Release worker slot.
			results[idx] = p.execute(ctx, j)
		}(i, j)
	}

	wg.Wait()
	return results
}

func (p *Pool) execute(ctx context.Context, j Job) Result {
	start := time.Now()
	err := j.Run(ctx)
	r := Result{Name: j.Name, Duration: time.Since(start), Error: err}

	entry := p.log.WithFields(log.Fields{"job": j.Name, "duration": r.Duration})
	if err != nil {
		entry.WithError(err).Warn("job failed")
	} else {
		entry.Debug("job done")
	}
	return r
}

// Err combines the errors of failed results, prefixed with the job name.
// It returns nil when every job succeeded.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Error))
		}
	}
	return errors.Join(errs...)
}

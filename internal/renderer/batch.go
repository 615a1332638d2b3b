package renderer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs a job with its outcome.
type BatchResult struct {
	Job    Job
	Result Result
	Err    error
}

// RenderBatch starts every job at once and waits for all of them. Jobs are
// independent: one failure does not cancel the others. parallel bounds the
// number of jobs fetching or waiting on the engine at a time; zero or less
// means unbounded.
func (r *Renderer) RenderBatch(ctx context.Context, jobs []Job, parallel int) []BatchResult {
	results := make([]BatchResult, len(jobs))
	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, job := range jobs {
		g.Go(func() error {
			res, err := r.Render(ctx, job)
			results[i] = BatchResult{Job: job, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

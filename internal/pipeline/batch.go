package pipeline

import (
	"context"

	"github.com/dkarpov/annotext/internal/model"
	"github.com/dkarpov/annotext/internal/worker"
)

// RunJob runs the whole pipeline over one document source.
type RunJob struct {
	Source   string
	Seeds    []model.SeedPair
	Pipeline *Pipeline
}

// Execute implements worker.Job.
func (j *RunJob) Execute(ctx context.Context) worker.Result {
	report, _, err := j.Pipeline.Run(ctx, j.Source, j.Seeds)
	return &RunJobResult{Source: j.Source, Report: report, Err: err}
}

// RunJobResult is one document's batch outcome.
type RunJobResult struct {
	Source string
	Report *model.Report
	Err    error
}

// GetError implements worker.Result.
func (r *RunJobResult) GetError() error { return r.Err }

// BatchProcessor fans whole pipeline runs out across documents. Every
// document gets its own store; nothing is shared between runs but the
// stage clients.
type BatchProcessor struct {
	pipeline    *Pipeline
	concurrency int
}

// NewBatchProcessor creates a processor running up to concurrency documents
// at once.
func NewBatchProcessor(p *Pipeline, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &BatchProcessor{pipeline: p, concurrency: concurrency}
}

// Process runs the pipeline over every source and returns the per-document
// results in completion order. Cancelling ctx aborts the in-flight runs.
func (b *BatchProcessor) Process(ctx context.Context, sources []string, seeds []model.SeedPair) []*RunJobResult {
	pool := worker.NewPool(b.concurrency)
	pool.Start(ctx)
	for _, source := range sources {
		pool.Submit(&RunJob{Source: source, Seeds: seeds, Pipeline: b.pipeline})
	}

	var out []*RunJobResult
	for _, res := range pool.Wait() {
		out = append(out, res.(*RunJobResult))
	}
	return out
}

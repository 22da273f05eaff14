package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job produces.
type Result interface {
	GetError() error
}

// Pool runs jobs across a fixed number of workers. Used for batch mode,
// where whole pipeline runs fan out across documents. Cancelling the context
// passed to Start reaches in-flight jobs; queued jobs still execute and
// observe the cancelled context themselves.
type Pool struct {
	workers  int
	jobQueue chan Job
	results  chan Result
	wg       sync.WaitGroup
}

// NewPool creates a pool with the given worker count.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, workers*2),
		results:  make(chan Result, workers*2),
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobQueue {
				p.results <- job.Execute(ctx)
			}
		}()
	}
}

// Submit queues a job. Must not be called after Wait.
func (p *Pool) Submit(job Job) {
	p.jobQueue <- job
}

// Wait closes the queue, waits for the workers to drain it and returns
// every result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)

	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/model"
	"github.com/dkarpov/annotext/internal/stage"
)

// Status is the executor's state machine position.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotIdle is returned when Run is called on an executor that already
// ran or is running. One executor drives one run.
var ErrNotIdle = errors.New("executor is not idle")

// StageRun pairs a stage with its failure policy.
type StageRun struct {
	Stage stage.Stage

	// ContinueOnError lets the run proceed past this stage's failure; the
	// store is left unmodified for the stage either way.
	ContinueOnError bool
}

// Options configures one executor.
type Options struct {
	// Timeout is the run-level deadline. Exceeding it aborts the in-flight
	// stage call and fails the run; annotations committed by earlier
	// stages are preserved.
	Timeout time.Duration

	// SkipVerify disables the pre-run health probe of stages that support
	// one.
	SkipVerify bool

	// StrictDuplicates turns a duplicate annotation in a stage's output
	// into a stage failure. Off by default: a duplicate from a retried,
	// idempotent producer is skipped.
	StrictDuplicates bool

	Logf func(format string, args ...any)
}

// RunResult is the outcome of one run. Stage errors are recorded per stage;
// Err holds the failure that ended the run, if any. The store remains
// readable either way, so the aggregator can summarize partial results.
type RunResult struct {
	Status   Status
	Duration time.Duration
	Stages   []model.StageTiming
	Err      error
}

// Executor drives an ordered stage list against one document's store.
// Stages run strictly in list order and each stage's output is committed
// before the next stage begins, so stage N+1 always observes stage N's
// annotations.
type Executor struct {
	opts Options

	mu         sync.Mutex
	status     Status
	stageIndex int
}

// NewExecutor creates an idle executor.
func NewExecutor(opts Options) *Executor {
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	return &Executor{opts: opts, status: StatusIdle}
}

// Status returns the current state.
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Executor) setStatus(s Status, index int) {
	e.mu.Lock()
	e.status = s
	e.stageIndex = index
	e.mu.Unlock()
}

// Run executes the stages against the document. It returns a result even
// when the run fails; the error return is reserved for misuse (an executor
// that is not idle).
func (e *Executor) Run(ctx context.Context, doc *annotation.Document, stages []StageRun) (*RunResult, error) {
	e.mu.Lock()
	if e.status != StatusIdle {
		e.mu.Unlock()
		return nil, fmt.Errorf("status %s: %w", e.status, ErrNotIdle)
	}
	e.status = StatusRunning
	e.mu.Unlock()

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	result := &RunResult{Status: StatusRunning}
	runStart := time.Now()
	defer func() { result.Duration = time.Since(runStart) }()

	if !e.opts.SkipVerify {
		if err := e.verify(ctx, stages); err != nil {
			result.Status = StatusFailed
			result.Err = err
			e.setStatus(StatusFailed, 0)
			return result, nil
		}
	}

	for i, sr := range stages {
		e.setStatus(StatusRunning, i)

		start := time.Now()
		adds, err := sr.Stage.Process(ctx, doc)
		if err == nil {
			var added int
			added, err = e.commit(doc.Store(), adds)
			if err == nil {
				result.Stages = append(result.Stages, model.StageTiming{
					Name:     sr.Stage.Name(),
					Duration: time.Since(start),
					Added:    added,
				})
				e.opts.Logf("stage %q: %d annotations in %v", sr.Stage.Name(), added, time.Since(start))
				continue
			}
		}

		timing := model.StageTiming{
			Name:     sr.Stage.Name(),
			Duration: time.Since(start),
			Error:    err.Error(),
		}
		if sr.ContinueOnError && ctx.Err() == nil {
			timing.Skipped = true
			result.Stages = append(result.Stages, timing)
			e.opts.Logf("stage %q failed, continuing: %v", sr.Stage.Name(), err)
			continue
		}

		result.Stages = append(result.Stages, timing)
		result.Status = StatusFailed
		result.Err = fmt.Errorf("stage %q: %w", sr.Stage.Name(), err)
		e.setStatus(StatusFailed, i)
		return result, nil
	}

	result.Status = StatusCompleted
	e.setStatus(StatusCompleted, len(stages))
	return result, nil
}

// verify probes every stage that supports a health check.
func (e *Executor) verify(ctx context.Context, stages []StageRun) error {
	for _, sr := range stages {
		hc, ok := sr.Stage.(stage.HealthChecker)
		if !ok {
			continue
		}
		if err := hc.Healthy(ctx); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		e.opts.Logf("stage %q: healthy", sr.Stage.Name())
	}
	return nil
}

// commit inserts the whole stage output atomically, so a rejected record
// never leaves a stage half-applied. A duplicate, in the store or within the
// batch itself, fails the stage under StrictDuplicates and is skipped
// otherwise.
func (e *Executor) commit(store *annotation.Store, adds []annotation.Annotation) (int, error) {
	added, err := store.AddAll(adds, !e.opts.StrictDuplicates)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, stage.ErrStageResponse)
	}
	if skipped := len(adds) - added; skipped > 0 {
		e.opts.Logf("skipped %d duplicate annotations", skipped)
	}
	return added, nil
}

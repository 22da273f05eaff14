// Package stage talks to the remote analysis services. One service is one
// stage: it receives the document text plus a read-only view of the current
// annotation store and produces zero or more new annotations. Stages never
// write to the store themselves; the executor commits their output, so a
// failed stage leaves the store untouched.
package stage

import (
	"context"
	"errors"

	"github.com/dkarpov/annotext/internal/annotation"
)

var (
	// ErrStageUnavailable means the service could not be reached or
	// refused to serve.
	ErrStageUnavailable = errors.New("stage unavailable")

	// ErrStageTimeout means no response arrived within the configured
	// deadline.
	ErrStageTimeout = errors.New("stage timeout")

	// ErrStageResponse means the response could not be parsed into valid
	// annotations.
	ErrStageResponse = errors.New("stage response invalid")
)

// Stage is one analysis step in the pipeline.
type Stage interface {
	Name() string

	// Process reads the document and its store and returns the new
	// annotations this stage produced. It must not mutate the store.
	Process(ctx context.Context, doc *annotation.Document) ([]annotation.Annotation, error)
}

// HealthChecker is implemented by stages that can be probed before a run.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

package model

import (
	"time"

	"github.com/dkarpov/annotext/internal/annotation"
)

// Summary is the aggregator's per-kind view of a finished (or aborted)
// run's store. Absent kinds report zero, never an error.
type Summary struct {
	Counts map[annotation.Kind]int `json:"counts"`
	Total  int                     `json:"total"`

	// FactChecks joins each verdict with the claim and fact it references.
	FactChecks []FactCheckRow `json:"fact_checks,omitempty"`
}

// FactCheckRow is one verdict triple for direct inspection.
type FactCheckRow struct {
	Claim       string  `json:"claim"`
	Fact        string  `json:"fact"`
	Consistency float64 `json:"consistency"`
}

// Report is the full run outcome: terminal status alongside the summary, so
// a caller can tell "succeeded" from "degraded but informative".
type Report struct {
	Source     string        `json:"source"`
	Language   string        `json:"language"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"duration"`
	Stages     []StageTiming `json:"stages"`
	Summary    Summary       `json:"summary"`
	LLMSummary string        `json:"llm_summary,omitempty"`
}

// StageTiming is the wall-clock record for one stage.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Added    int           `json:"added"`
	Skipped  bool          `json:"skipped,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Package llm generates an optional prose summary of a finished run. The
// summary is presentation only: it is produced after aggregation and never
// feeds back into the store or the run status.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkarpov/annotext/internal/model"
)

// Provider is an LLM backend able to summarize a report.
type Provider interface {
	Name() string
	Summarize(ctx context.Context, report *model.Report) (string, error)
	IsAvailable(ctx context.Context) bool
}

// Config holds provider configuration.
type Config struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   int // seconds
}

// BuildPrompt renders the report into the summarization prompt. Only data
// already in the report goes in; the model is told not to add facts of its
// own.
func BuildPrompt(report *model.Report) string {
	var b strings.Builder
	b.WriteString("Summarize the following text-analysis pipeline run in a short paragraph.\n")
	b.WriteString("Use only the data below; do not invent findings.\n\n")
	fmt.Fprintf(&b, "Run status: %s (%v)\n", report.Status, report.Duration)
	fmt.Fprintf(&b, "Annotations: %d total\n", report.Summary.Total)
	for kind, n := range report.Summary.Counts {
		fmt.Fprintf(&b, "  %s: %d\n", kind, n)
	}
	if len(report.Summary.FactChecks) > 0 {
		b.WriteString("Fact-check verdicts:\n")
		for _, row := range report.Summary.FactChecks {
			fmt.Fprintf(&b, "  claim %q vs fact %q: consistency %.2f\n", row.Claim, row.Fact, row.Consistency)
		}
	}
	return b.String()
}

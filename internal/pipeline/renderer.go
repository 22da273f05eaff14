package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/model"
)

// Renderer writes the run report to a terminal.
type Renderer struct {
	out        io.Writer
	maxCovered int
}

// NewRenderer creates a renderer. maxCovered bounds the covered-text width.
func NewRenderer(out io.Writer, maxCovered int) *Renderer {
	if maxCovered <= 0 {
		maxCovered = 60
	}
	return &Renderer{out: out, maxCovered: maxCovered}
}

// RenderReport prints the per-kind sections and the summary.
func (r *Renderer) RenderReport(doc *annotation.Document, report *model.Report) {
	line := strings.Repeat("=", 70)
	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out, "PIPELINE RESULTS")
	fmt.Fprintln(r.out, line)

	store := doc.Store()

	fmt.Fprintln(r.out, "\n--- SENTIMENT ---")
	sentiments := store.ByKind(annotation.KindSentiment)
	if len(sentiments) == 0 {
		fmt.Fprintln(r.out, "  (none)")
	}
	for _, e := range sentiments {
		s := e.Annotation.(annotation.Sentiment)
		fmt.Fprintf(r.out, "  [%d-%d] %s\n", s.Span.Begin, s.Span.End, r.covered(doc, e))
		if s.Label != "" {
			fmt.Fprintf(r.out, "          %s (%.4f)\n", s.Label, s.Score)
		} else {
			fmt.Fprintf(r.out, "          score: %.4f\n", s.Score)
		}
	}

	fmt.Fprintln(r.out, "\n--- HATE SPEECH ---")
	hates := store.ByKind(annotation.KindHate)
	if len(hates) == 0 {
		fmt.Fprintln(r.out, "  (none)")
	}
	for _, e := range hates {
		h := e.Annotation.(annotation.Hate)
		fmt.Fprintf(r.out, "  [%d-%d] %s\n", h.Span.Begin, h.Span.End, r.covered(doc, e))
		fmt.Fprintf(r.out, "          hate: %.4f | non-hate: %.4f\n", h.Hate, h.NonHate)
	}

	fmt.Fprintln(r.out, "\n--- FACT CHECKING ---")
	if len(report.Summary.FactChecks) == 0 {
		fmt.Fprintln(r.out, "  (none)")
	}
	for _, row := range report.Summary.FactChecks {
		fmt.Fprintf(r.out, "  Claim: %q\n", truncate(row.Claim, r.maxCovered))
		fmt.Fprintf(r.out, "  Fact:  %q\n", truncate(row.Fact, r.maxCovered))
		fmt.Fprintf(r.out, "  Consistency: %.4f (%s)\n\n", row.Consistency, verdictLabel(row.Consistency))
	}

	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out, "SUMMARY")
	fmt.Fprintln(r.out, line)
	fmt.Fprintf(r.out, "  Status: %s (%v)\n", report.Status, report.Duration.Round(time.Millisecond))
	for _, st := range report.Stages {
		switch {
		case st.Skipped:
			fmt.Fprintf(r.out, "    %-12s %8v  skipped: %s\n", st.Name, st.Duration.Round(time.Millisecond), st.Error)
		case st.Error != "":
			fmt.Fprintf(r.out, "    %-12s %8v  failed: %s\n", st.Name, st.Duration.Round(time.Millisecond), st.Error)
		default:
			fmt.Fprintf(r.out, "    %-12s %8v  +%d annotations\n", st.Name, st.Duration.Round(time.Millisecond), st.Added)
		}
	}
	fmt.Fprintf(r.out, "  Annotations: %d total\n", report.Summary.Total)
	for _, kind := range annotation.Kinds() {
		fmt.Fprintf(r.out, "    %-12s %d\n", kind, report.Summary.Counts[kind])
	}

	if report.LLMSummary != "" {
		fmt.Fprintln(r.out, "\n--- LLM SUMMARY ---")
		fmt.Fprintln(r.out, report.LLMSummary)
	}
}

// RenderJSON writes the report as JSON to the given path.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (r *Renderer) covered(doc *annotation.Document, e annotation.Entry) string {
	return truncate(annotation.Covered(doc.Text, e.Annotation), r.maxCovered)
}

func truncate(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return text[:maxLen]
	}
	return text[:maxLen-3] + "..."
}

func verdictLabel(score float64) string {
	switch {
	case score > 0.7:
		return "supported"
	case score > 0.5:
		return "partially supported"
	case score > 0.3:
		return "weakly supported"
	default:
		return "contradicted"
	}
}

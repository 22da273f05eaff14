package pipeline

import (
	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/model"
)

// Aggregate classifies the store's annotations by kind. Read-only: it never
// mutates the store, and it works the same over the partial store of a
// failed run. A kind with no annotations reports zero; absence is a valid
// outcome.
func Aggregate(store *annotation.Store) model.Summary {
	summary := model.Summary{
		Counts: make(map[annotation.Kind]int, len(annotation.Kinds())),
		Total:  store.Len(),
	}
	for _, kind := range annotation.Kinds() {
		summary.Counts[kind] = len(store.ByKind(kind))
	}

	for _, e := range store.ByKind(annotation.KindFactCheck) {
		verdict := e.Annotation.(annotation.FactCheck)
		row := model.FactCheckRow{Consistency: verdict.Consistency}
		if claim, err := store.Get(verdict.ClaimID); err == nil {
			row.Claim = claim.Annotation.(annotation.Claim).Value
		}
		if fact, err := store.Get(verdict.FactID); err == nil {
			row.Fact = fact.Annotation.(annotation.Fact).Value
		}
		summary.FactChecks = append(summary.FactChecks, row)
	}
	return summary
}

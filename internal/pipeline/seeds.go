package pipeline

import (
	"fmt"
	"strings"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/model"
)

// SpanResolver turns a hint match into the claim's span. The boundary
// heuristic is deliberately pluggable: claims spanning several sentences or
// abbreviation-heavy text may need a different strategy.
type SpanResolver interface {
	Resolve(text string, start, claimLen int) annotation.Span
}

// SentenceResolver expands a claim span from the hint position to the next
// period, inclusive. Without one, the span falls back to the claim's own
// length, clamped to the text end.
type SentenceResolver struct{}

func (SentenceResolver) Resolve(text string, start, claimLen int) annotation.Span {
	end := strings.Index(text[start:], ".")
	if end == -1 {
		end = start + claimLen
	} else {
		end = start + end + 1
	}
	if end > len(text) {
		end = len(text)
	}
	return annotation.Span{Begin: start, End: end}
}

// Seed places the configured claim/fact pairs into the store before the
// run. Each claim is anchored where its hint first occurs in the text and
// linked to a zero-span fact (externally supplied ground truth has no
// position in the source). Pairs whose hint is absent are skipped.
func Seed(doc *annotation.Document, seeds []model.SeedPair, resolver SpanResolver, logf func(string, ...any)) (int, error) {
	if resolver == nil {
		resolver = SentenceResolver{}
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	store := doc.Store()

	seeded := 0
	for _, seed := range seeds {
		hint := seed.Hint
		if hint == "" {
			hint = seed.Claim
		}
		start := strings.Index(doc.Text, hint)
		if start == -1 {
			logf("seed skipped, hint %q not in document", hint)
			continue
		}

		span := resolver.Resolve(doc.Text, start, len(seed.Claim))
		claimID, err := store.Add(annotation.Claim{Span: span, Value: seed.Claim})
		if err != nil {
			return seeded, fmt.Errorf("seed claim %q: %w", seed.Claim, err)
		}
		factID, err := store.Add(annotation.Fact{Value: seed.Fact})
		if err != nil {
			return seeded, fmt.Errorf("seed fact %q: %w", seed.Fact, err)
		}
		if err := store.Link(claimID, []annotation.ID{factID}); err != nil {
			return seeded, fmt.Errorf("seed link: %w", err)
		}
		seeded++
		logf("seeded claim at [%d-%d)", span.Begin, span.End)
	}
	return seeded, nil
}

// DemoSeeds are the built-in claim/fact pairs used with the demo document.
func DemoSeeds() []model.SeedPair {
	return []model.SeedPair{
		{
			Claim: "the city has more than ten million inhabitants",
			Fact:  "Official statistics show the city population is approximately 3.5 million.",
			Hint:  "ten million",
		},
		{
			Claim: "our metro system first opened in 1895",
			Fact:  "The city metro system opened in 1976 according to transport authority records.",
			Hint:  "1895",
		},
		{
			Claim: "unemployment in the region has dropped for three years in a row",
			Fact:  "Regional unemployment statistics show a decline in 2022 and 2023 but a slight increase in 2021.",
			Hint:  "unemployment",
		},
	}
}

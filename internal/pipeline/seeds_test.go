package pipeline

import (
	"strings"
	"testing"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/model"
)

func TestSentenceResolver(t *testing.T) {
	r := SentenceResolver{}

	text := "Before. The metro opened in 1895, they say. After."
	start := strings.Index(text, "The metro")
	span := r.Resolve(text, start, 10)
	if got := text[span.Begin:span.End]; got != "The metro opened in 1895, they say." {
		t.Errorf("expanded to %q", got)
	}

	// No period after the hint: fall back to the claim's own length.
	text = "Trailing claim without punctuation"
	span = r.Resolve(text, 9, 5)
	if span != (annotation.Span{Begin: 9, End: 14}) {
		t.Errorf("fallback span: %+v", span)
	}

	// Fallback clamps to the text end.
	span = r.Resolve(text, 30, 100)
	if span.End != len(text) {
		t.Errorf("unclamped span: %+v", span)
	}
}

func TestSeed_AnchorsAndLinks(t *testing.T) {
	text := "Filler sentence. The metro opened in 1895, which is remarkable. More filler."
	doc := annotation.NewDocument(text, "en")

	seeds := []model.SeedPair{{
		Claim: "our metro system first opened in 1895",
		Fact:  "The metro opened in 1976.",
		Hint:  "1895",
	}}

	seeded, err := Seed(doc, seeds, nil, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded != 1 {
		t.Fatalf("seeded: %d", seeded)
	}

	store := doc.Store()
	claims := store.ByKind(annotation.KindClaim)
	facts := store.ByKind(annotation.KindFact)
	if len(claims) != 1 || len(facts) != 1 {
		t.Fatalf("claims %d facts %d", len(claims), len(facts))
	}

	// Anchored at the hint, expanded to the next period.
	span := claims[0].Bounds()
	if got := annotation.Covered(text, claims[0].Annotation); got != "1895, which is remarkable." {
		t.Errorf("claim covers %q (span %+v)", got, span)
	}
	if !facts[0].Bounds().IsZero() {
		t.Errorf("fact span: %+v", facts[0].Bounds())
	}

	// The pair is linked both ways.
	pairs := store.Pairs()
	if len(pairs) != 1 {
		t.Fatalf("pairs: %d", len(pairs))
	}
	if pairs[0].Claim.ID != claims[0].ID || pairs[0].Fact.ID != facts[0].ID {
		t.Errorf("pair: %+v", pairs[0])
	}
}

func TestSeed_MissingHintIsSkipped(t *testing.T) {
	doc := annotation.NewDocument("Nothing relevant here.", "en")

	var logged []string
	logf := func(format string, args ...any) {
		logged = append(logged, format)
	}

	seeds := []model.SeedPair{
		{Claim: "absent claim", Fact: "some fact", Hint: "no such hint"},
	}
	seeded, err := Seed(doc, seeds, nil, logf)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded != 0 {
		t.Errorf("seeded: %d", seeded)
	}
	if doc.Store().Len() != 0 {
		t.Errorf("store len: %d", doc.Store().Len())
	}
	if len(logged) == 0 {
		t.Error("skip was not logged")
	}
}

func TestSeed_HintDefaultsToClaim(t *testing.T) {
	doc := annotation.NewDocument("They say the sky is green today.", "en")

	seeds := []model.SeedPair{{Claim: "the sky is green", Fact: "The sky is blue."}}
	seeded, err := Seed(doc, seeds, nil, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded != 1 {
		t.Fatalf("seeded: %d", seeded)
	}

	claims := doc.Store().ByKind(annotation.KindClaim)
	if got := annotation.Covered(doc.Text, claims[0].Annotation); got != "the sky is green today." {
		t.Errorf("claim covers %q", got)
	}
}

func TestDemoSeeds_AnchorInDemoText(t *testing.T) {
	// Every built-in pair must anchor somewhere; a fixed fixture stands in
	// for the demo document.
	text := "The city has grown: some insist the city has more than ten million inhabitants. " +
		"Our metro system first opened in 1895, locals claim. " +
		"And unemployment in the region has dropped for three years in a row."
	doc := annotation.NewDocument(text, "en")

	seeded, err := Seed(doc, DemoSeeds(), nil, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if want := len(DemoSeeds()); seeded != want {
		t.Errorf("seeded %d of %d demo pairs", seeded, want)
	}
	if pairs := doc.Store().Pairs(); len(pairs) != seeded {
		t.Errorf("pairs: %d", len(pairs))
	}
}

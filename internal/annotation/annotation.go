package annotation

import "fmt"

// Kind identifies the annotation variant. The set is closed: the pipeline
// knows every type it can produce in advance.
type Kind string

const (
	KindSentiment Kind = "sentiment"
	KindHate      Kind = "hate"
	KindClaim     Kind = "claim"
	KindFact      Kind = "fact"
	KindFactCheck Kind = "fact_check"
)

// Kinds returns every annotation kind in display order.
func Kinds() []Kind {
	return []Kind{KindSentiment, KindHate, KindClaim, KindFact, KindFactCheck}
}

// ID is a store-assigned handle for an annotation. The zero value is never
// assigned and means "no annotation".
type ID int

// Span is a half-open character offset range [Begin, End) into the document
// text. Facts may carry the zero span: externally supplied ground truth has
// no position in the source.
type Span struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Validate checks the span against the document length.
func (s Span) Validate(textLen int) error {
	if s.Begin < 0 || s.Begin > s.End || s.End > textLen {
		return fmt.Errorf("span [%d-%d) outside document of length %d: %w", s.Begin, s.End, textLen, ErrInvalidSpan)
	}
	return nil
}

// IsZero reports whether the span is the degenerate [0, 0) range.
func (s Span) IsZero() bool {
	return s.Begin == 0 && s.End == 0
}

// less orders spans by (Begin, End) ascending.
func (s Span) less(other Span) bool {
	if s.Begin != other.Begin {
		return s.Begin < other.Begin
	}
	return s.End < other.End
}

// Annotation is the closed union over the five variants. The unexported
// method keeps the set closed to this package.
type Annotation interface {
	Kind() Kind
	Bounds() Span

	// dedupeKey identifies the (kind, span, value) triple used for
	// duplicate detection on Store.Add.
	dedupeKey() string
}

// Sentiment is produced by the sentiment stage. The polarity shape belongs
// to the service: Label and Score are carried verbatim, never interpreted.
type Sentiment struct {
	Span  Span
	Label string
	Score float64
}

func (s Sentiment) Kind() Kind   { return KindSentiment }
func (s Sentiment) Bounds() Span { return s.Span }
func (s Sentiment) dedupeKey() string {
	return fmt.Sprintf("%s|%s|%g", s.Kind(), s.Label, s.Score)
}

// Hate is produced by the hate-speech stage. The two scores are independent
// probabilities and need not sum to 1.
type Hate struct {
	Span    Span
	Hate    float64
	NonHate float64
}

func (h Hate) Kind() Kind   { return KindHate }
func (h Hate) Bounds() Span { return h.Span }
func (h Hate) dedupeKey() string {
	return fmt.Sprintf("%s|%g|%g", h.Kind(), h.Hate, h.NonHate)
}

// Claim is an assertion extracted from or seeded into the document, to be
// checked against one or more facts. A claim is only checkable once linked;
// see Store.Link.
type Claim struct {
	Span  Span
	Value string
}

func (c Claim) Kind() Kind        { return KindClaim }
func (c Claim) Bounds() Span      { return c.Span }
func (c Claim) dedupeKey() string { return string(c.Kind()) + "|" + c.Value }

// Fact is a ground-truth statement claims are checked against.
type Fact struct {
	Span  Span
	Value string
}

func (f Fact) Kind() Kind        { return KindFact }
func (f Fact) Bounds() Span      { return f.Span }
func (f Fact) dedupeKey() string { return string(f.Kind()) + "|" + f.Value }

// FactCheck is the fact-checking stage's verdict for one claim/fact pair
// already present in the store. Consistency is in [0, 1].
type FactCheck struct {
	Span        Span
	ClaimID     ID
	FactID      ID
	Consistency float64
}

func (v FactCheck) Kind() Kind   { return KindFactCheck }
func (v FactCheck) Bounds() Span { return v.Span }
func (v FactCheck) dedupeKey() string {
	return fmt.Sprintf("%s|%d|%d|%g", v.Kind(), v.ClaimID, v.FactID, v.Consistency)
}

// Covered returns the document text covered by the annotation's span.
func Covered(text string, a Annotation) string {
	s := a.Bounds()
	if s.End > len(text) {
		return ""
	}
	return text[s.Begin:s.End]
}

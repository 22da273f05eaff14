package annotation

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateAnnotation is returned by Add when an identical
	// (kind, span, value) triple is already stored. Callers running
	// idempotent producers may treat it as a no-op.
	ErrDuplicateAnnotation = errors.New("duplicate annotation")

	// ErrInvalidSpan is returned when a span falls outside the document.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrUnknownID is returned when an annotation references an id the
	// store never assigned, or one of the wrong kind.
	ErrUnknownID = errors.New("unknown annotation id")

	// ErrEmptyLink is returned by Link when the fact list is empty. An
	// unlinked claim is a caller bug, not a valid state.
	ErrEmptyLink = errors.New("claim must link at least one fact")
)

// Entry is an annotation together with its store-assigned id.
type Entry struct {
	ID ID
	Annotation
}

// Document is one immutable text buffer plus its language tag. It owns the
// annotation store for its lifetime: one document, one store, one run.
type Document struct {
	Text     string
	Language string

	store *Store
}

// NewDocument creates a document and its empty store.
func NewDocument(text, language string) *Document {
	d := &Document{Text: text, Language: language}
	d.store = newStore(len(text))
	return d
}

// Store returns the document's annotation store.
func (d *Document) Store() *Store { return d.store }

// Store is the append-only, span-indexed annotation collection for one
// document run. Annotations are immutable once added; the only later
// mutation is linking claims and facts (see graph.go). A single writer at a
// time is assumed across stages, but reads are safe while a stage's
// parallel workers are still writing: every query returns a snapshot.
type Store struct {
	mu      sync.RWMutex
	textLen int

	arena  []Entry          // indexed by ID-1
	byKind map[Kind][]Entry // kept sorted by (begin, end, id)
	seen   map[string]struct{}

	claimFacts map[ID][]ID
	factClaims map[ID][]ID
}

func newStore(textLen int) *Store {
	return &Store{
		textLen:    textLen,
		byKind:     make(map[Kind][]Entry),
		seen:       make(map[string]struct{}),
		claimFacts: make(map[ID][]ID),
		factClaims: make(map[ID][]ID),
	}
}

// Add inserts an annotation and returns its assigned id. Annotations are
// never removed for the duration of a run, so later stages always observe a
// superset of what earlier stages produced.
func (s *Store) Add(a Annotation) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateLocked(a); err != nil {
		return 0, err
	}
	return s.insertLocked(a), nil
}

// AddAll inserts a whole batch atomically: every record is validated first,
// against the store and against the records before it in the batch, and
// nothing is inserted unless the batch as a whole passes. Duplicates are
// skipped instead of rejected when skipDuplicates is set. Returns the number
// of records inserted.
func (s *Store) AddAll(adds []Annotation, skipDuplicates bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	skip := make([]bool, len(adds))
	batch := make(map[string]struct{}, len(adds))
	for i, a := range adds {
		err := s.validateLocked(a)
		if err == nil {
			if _, dup := batch[s.keyFor(a)]; dup {
				err = fmt.Errorf("%s at [%d-%d): repeated in batch: %w",
					a.Kind(), a.Bounds().Begin, a.Bounds().End, ErrDuplicateAnnotation)
			}
		}
		if err != nil {
			if skipDuplicates && errors.Is(err, ErrDuplicateAnnotation) {
				skip[i] = true
				continue
			}
			return 0, err
		}
		batch[s.keyFor(a)] = struct{}{}
	}

	added := 0
	for i, a := range adds {
		if skip[i] {
			continue
		}
		s.insertLocked(a)
		added++
	}
	return added, nil
}

func (s *Store) insertLocked(a Annotation) ID {
	id := ID(len(s.arena) + 1)
	entry := Entry{ID: id, Annotation: a}
	s.arena = append(s.arena, entry)
	s.seen[s.keyFor(a)] = struct{}{}

	// Insert in (begin, end) order; the id tie-break keeps equal spans in
	// insertion order.
	kind := a.Kind()
	entries := s.byKind[kind]
	pos := sort.Search(len(entries), func(i int) bool {
		if entries[i].Bounds() == a.Bounds() {
			return entries[i].ID > id
		}
		return a.Bounds().less(entries[i].Bounds())
	})
	entries = append(entries, Entry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = entry
	s.byKind[kind] = entries

	return id
}

func (s *Store) validateLocked(a Annotation) error {
	if err := a.Bounds().Validate(s.textLen); err != nil {
		return err
	}
	if _, dup := s.seen[s.keyFor(a)]; dup {
		return fmt.Errorf("%s at [%d-%d): %w", a.Kind(), a.Bounds().Begin, a.Bounds().End, ErrDuplicateAnnotation)
	}
	if v, ok := a.(FactCheck); ok {
		if err := s.checkIDLocked(v.ClaimID, KindClaim); err != nil {
			return fmt.Errorf("verdict claim: %w", err)
		}
		if err := s.checkIDLocked(v.FactID, KindFact); err != nil {
			return fmt.Errorf("verdict fact: %w", err)
		}
		if v.Consistency < 0 || v.Consistency > 1 {
			return fmt.Errorf("consistency %g outside [0,1]", v.Consistency)
		}
	}
	return nil
}

func (s *Store) keyFor(a Annotation) string {
	b := a.Bounds()
	return fmt.Sprintf("%d|%d|%s", b.Begin, b.End, a.dedupeKey())
}

func (s *Store) checkIDLocked(id ID, want Kind) error {
	if id < 1 || int(id) > len(s.arena) {
		return fmt.Errorf("id %d: %w", id, ErrUnknownID)
	}
	if got := s.arena[id-1].Kind(); got != want {
		return fmt.Errorf("id %d is %s, want %s: %w", id, got, want, ErrUnknownID)
	}
	return nil
}

// Get returns the annotation with the given id.
func (s *Store) Get(id ID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || int(id) > len(s.arena) {
		return Entry{}, fmt.Errorf("id %d: %w", id, ErrUnknownID)
	}
	return s.arena[id-1], nil
}

// ByKind returns all annotations of one kind, ordered by (begin, end)
// ascending. The result is a snapshot: repeat queries are side-effect free
// and a query taken during a write never observes a partial annotation.
func (s *Store) ByKind(kind Kind) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.byKind[kind]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// All returns every annotation regardless of kind, same ordering rule as
// ByKind.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.arena))
	for _, entries := range s.byKind {
		out = append(out, entries...)
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := out[i].Bounds(), out[j].Bounds()
		if bi == bj {
			return out[i].ID < out[j].ID
		}
		return bi.less(bj)
	})
	return out
}

// Len returns the total number of annotations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena)
}

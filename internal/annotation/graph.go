package annotation

import "fmt"

// Link sets the claim's fact list and appends the claim to each fact's
// claim list in one step under the store lock: no reader ever observes a
// dangling one-way reference. Linking the same claim again replaces its
// fact list.
func (s *Store) Link(claim ID, facts []ID) error {
	if len(facts) == 0 {
		return fmt.Errorf("claim %d: %w", claim, ErrEmptyLink)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIDLocked(claim, KindClaim); err != nil {
		return fmt.Errorf("link claim: %w", err)
	}
	for _, f := range facts {
		if err := s.checkIDLocked(f, KindFact); err != nil {
			return fmt.Errorf("link fact: %w", err)
		}
	}

	for _, f := range s.claimFacts[claim] {
		s.factClaims[f] = removeID(s.factClaims[f], claim)
	}
	s.claimFacts[claim] = append([]ID(nil), facts...)
	for _, f := range facts {
		s.factClaims[f] = append(s.factClaims[f], claim)
	}
	return nil
}

// ResolveClaim returns the facts linked to a claim, in link order.
func (s *Store) ResolveClaim(claim ID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkIDLocked(claim, KindClaim); err != nil {
		return nil, err
	}
	return s.entriesLocked(s.claimFacts[claim]), nil
}

// ResolveFact returns the claims citing a fact, in link order.
func (s *Store) ResolveFact(fact ID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkIDLocked(fact, KindFact); err != nil {
		return nil, err
	}
	return s.entriesLocked(s.factClaims[fact]), nil
}

// Pair is one claim together with one fact it is checked against.
type Pair struct {
	Claim Entry
	Fact  Entry
}

// Pairs returns every linked (claim, fact) combination in claim span order,
// facts in link order within a claim. This is the view the fact-checking
// stage receives.
func (s *Store) Pairs() []Pair {
	claims := s.ByKind(KindClaim)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var pairs []Pair
	for _, c := range claims {
		for _, fid := range s.claimFacts[c.ID] {
			pairs = append(pairs, Pair{Claim: c, Fact: s.arena[fid-1]})
		}
	}
	return pairs
}

func (s *Store) entriesLocked(ids []ID) []Entry {
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = s.arena[id-1]
	}
	return out
}

func removeID(ids []ID, drop ID) []ID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

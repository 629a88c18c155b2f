package index

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"ctph/internal/fuzzy"
)

// Assert that InMemoryIndex implements the Index interface
var _ Index = (*InMemoryIndex)(nil)

// InMemoryIndex holds signatures in memory. Besides the signatures it keeps
// a posting list from each gram to the IDs containing it, so Match only
// scores signatures that can have a non-zero score.
type InMemoryIndex struct {
	mu    sync.RWMutex
	sigs  map[string]fuzzy.Signature
	grams map[gramKey]map[string]struct{}
	exact map[string]map[string]struct{}
}

func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{
		sigs:  make(map[string]fuzzy.Signature),
		grams: make(map[gramKey]map[string]struct{}),
		exact: make(map[string]map[string]struct{}),
	}
}

func (x *InMemoryIndex) Add(sig fuzzy.Signature) (string, error) {
	if !fuzzy.ValidBlockSize(sig.BlockSize) {
		return "", fmt.Errorf("%w: invalid block size %d", fuzzy.ErrMalformedSignature, sig.BlockSize)
	}
	id := ID(sig)

	x.mu.Lock()
	defer x.mu.Unlock()
	x.addLocked(id, sig)
	return id, nil
}

func (x *InMemoryIndex) addLocked(id string, sig fuzzy.Signature) {
	if _, ok := x.sigs[id]; ok {
		return
	}
	x.sigs[id] = sig
	for _, k := range grams(sig) {
		addPosting(x.grams, k, id)
	}
	addPosting(x.exact, exactKey(sig), id)
}

func (x *InMemoryIndex) Get(id string) (fuzzy.Signature, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	sig, ok := x.sigs[id]
	return sig, ok
}

func (x *InMemoryIndex) Remove(id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	sig, ok := x.sigs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(x.sigs, id)
	for _, k := range grams(sig) {
		removePosting(x.grams, k, id)
	}
	removePosting(x.exact, exactKey(sig), id)
	return nil
}

// Match returns the stored signatures scoring at least threshold against
// sig, best first. Signatures scoring 0 are never returned.
func (x *InMemoryIndex) Match(sig fuzzy.Signature, threshold int) ([]Match, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	candidates := make(map[string]struct{})
	for _, k := range grams(sig) {
		for id := range x.grams[k] {
			candidates[id] = struct{}{}
		}
	}
	for id := range x.exact[exactKey(sig)] {
		candidates[id] = struct{}{}
	}

	var matches []Match
	for id := range candidates {
		stored := x.sigs[id]
		score := fuzzy.CompareSignatures(sig, stored)
		if score == 0 || score < threshold {
			continue
		}
		matches = append(matches, Match{ID: id, Signature: stored.String(), Score: score})
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return cmp.Compare(a.Signature, b.Signature)
	})
	return matches, nil
}

func (x *InMemoryIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.sigs)
}

// All returns every stored signature ordered by canonical text.
func (x *InMemoryIndex) All() []fuzzy.Signature {
	x.mu.RLock()
	defer x.mu.RUnlock()
	sigs := make([]fuzzy.Signature, 0, len(x.sigs))
	for _, sig := range x.sigs {
		sigs = append(sigs, sig)
	}
	slices.SortFunc(sigs, func(a, b fuzzy.Signature) int {
		return cmp.Compare(a.String(), b.String())
	})
	return sigs
}

func addPosting[K comparable](m map[K]map[string]struct{}, k K, id string) {
	ids, ok := m[k]
	if !ok {
		ids = make(map[string]struct{})
		m[k] = ids
	}
	ids[id] = struct{}{}
}

func removePosting[K comparable](m map[K]map[string]struct{}, k K, id string) {
	ids := m[k]
	delete(ids, id)
	if len(ids) == 0 {
		delete(m, k)
	}
}

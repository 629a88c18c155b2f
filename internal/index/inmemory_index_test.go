package index

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ctph/internal/fuzzy"
)

const (
	baseSig      = "384:Ze2UAihx22QNwuQwX2BMTKijsvA1x6ykNq+s+xWnX:QjDZuTX2jAxx6yMCX"
	insertedSig  = "384:Ze2UAihx22QNwuQwX2gjWpMTKijsvA1x6ykNq+s+xWnX:QjDZuTX2g6bAxx6yMCX"
	truncatedSig = "192:Ze2UyOX92LctmmOREFhxq120BNwuQwVu++o2QIwOMTKY3rW2svA1q:Ze2UAihx22QNwuQwX2BMTKijsvA1q"
	helloSig     = "3:aNRn:aNRn"
)

func addAll(t *testing.T, x Index, texts ...string) []string {
	t.Helper()
	var ids []string
	for _, text := range texts {
		id, err := x.Add(fuzzy.MustParse(text))
		if err != nil {
			t.Fatalf("Add(%q) error: %v", text, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestInMemoryIndexAddGetRemove(t *testing.T) {
	x := NewInMemoryIndex()
	ids := addAll(t, x, baseSig, helloSig)

	if ids[0] != ID(fuzzy.MustParse(baseSig)) {
		t.Errorf("expected content address, got %s", ids[0])
	}
	if x.Len() != 2 {
		t.Fatalf("expected 2 signatures, got %d", x.Len())
	}

	// Adding the same signature again is a no-op
	again := addAll(t, x, baseSig)
	if again[0] != ids[0] || x.Len() != 2 {
		t.Errorf("duplicate add changed the index: id %s, len %d", again[0], x.Len())
	}

	sig, ok := x.Get(ids[1])
	if !ok || sig.String() != helloSig {
		t.Errorf("Get returned %q, %v", sig, ok)
	}

	if err := x.Remove(ids[1]); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, ok := x.Get(ids[1]); ok {
		t.Error("signature still present after Remove")
	}
	if err := x.Remove(ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(x.grams) == 0 {
		t.Error("removing one signature dropped the postings of another")
	}
	x.Remove(ids[0])
	if len(x.grams) != 0 || len(x.exact) != 0 {
		t.Errorf("postings left after removing everything: %d grams, %d exact", len(x.grams), len(x.exact))
	}
}

func TestInMemoryIndexRejectsInvalidBlockSize(t *testing.T) {
	x := NewInMemoryIndex()
	_, err := x.Add(fuzzy.Signature{BlockSize: 5, Part1: "abc"})
	if !errors.Is(err, fuzzy.ErrMalformedSignature) {
		t.Errorf("expected ErrMalformedSignature, got %v", err)
	}
}

func TestInMemoryIndexMatch(t *testing.T) {
	x := NewInMemoryIndex()
	ids := addAll(t, x, baseSig, insertedSig, truncatedSig, helloSig)

	got, err := x.Match(fuzzy.MustParse(baseSig), 0)
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	want := []Match{
		{ID: ids[0], Signature: baseSig, Score: 100},
		{ID: ids[1], Signature: insertedSig, Score: 96},
		{ID: ids[2], Signature: truncatedSig, Score: 85},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Match mismatch (-want +got):\n%s", diff)
	}

	got, _ = x.Match(fuzzy.MustParse(baseSig), 90)
	if len(got) != 2 {
		t.Errorf("expected 2 matches at threshold 90, got %d", len(got))
	}

	// Short signatures share no gram but still find their exact copy
	got, _ = x.Match(fuzzy.MustParse(helloSig), 0)
	if len(got) != 1 || got[0].ID != ids[3] || got[0].Score != 100 {
		t.Errorf("unexpected matches for short signature: %+v", got)
	}
}

func TestInMemoryIndexMatchAgreesWithCompare(t *testing.T) {
	texts := []string{baseSig, insertedSig, truncatedSig, helloSig, "3::", "6:E:E", "768:QjDZuTX2jAxx6yMCX:AAA"}
	x := NewInMemoryIndex()
	addAll(t, x, texts...)

	for _, query := range texts {
		matches, err := x.Match(fuzzy.MustParse(query), 1)
		if err != nil {
			t.Fatalf("Match error: %v", err)
		}
		found := make(map[string]int)
		for _, m := range matches {
			found[m.Signature] = m.Score
		}
		for _, stored := range texts {
			want, _ := fuzzy.Compare(query, stored)
			if found[stored] != want {
				t.Errorf("Match(%q) scored %q as %d, Compare gives %d", query, stored, found[stored], want)
			}
		}
	}
}

func TestAll(t *testing.T) {
	x := NewInMemoryIndex()
	addAll(t, x, helloSig, baseSig, truncatedSig)

	var got []string
	for _, sig := range x.All() {
		got = append(got, sig.String())
	}
	want := []string{truncatedSig, baseSig, helloSig}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("All mismatch (-want +got):\n%s", diff)
	}
}

package fuzzy_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ctph/internal/fuzzy"
)

// xorshift returns n deterministic pseudo-random bytes.
func xorshift(n int, seed uint32) []byte {
	x := seed
	out := make([]byte, n)
	for i := range out {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		out[i] = byte(x >> 24)
	}
	return out
}

func splice(data []byte, at int, insert []byte) []byte {
	out := append([]byte(nil), data[:at]...)
	out = append(out, insert...)
	return append(out, data[at:]...)
}

func TestHashKnownVectors(t *testing.T) {
	base := xorshift(20000, 1)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"hello", []byte("Hello there!"), "3:aNRn:aNRn"},
		{"empty", nil, "3::"},
		{"single byte", []byte("a"), "3:E:E"},
		{"zeros", make([]byte, 5000), "3::"},
		{"random 20000", base, "384:Ze2UAihx22QNwuQwX2BMTKijsvA1x6ykNq+s+xWnX:QjDZuTX2jAxx6yMCX"},
		{"random 20000 with insert", splice(base, 8000, xorshift(600, 7)), "384:Ze2UAihx22QNwuQwX2gjWpMTKijsvA1x6ykNq+s+xWnX:QjDZuTX2g6bAxx6yMCX"},
		{"truncated", base[:11000], "192:Ze2UyOX92LctmmOREFhxq120BNwuQwVu++o2QIwOMTKY3rW2svA1q:Ze2UAihx22QNwuQwX2BMTKijsvA1q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fuzzy.Hash(tt.data)
			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHashCapsSecondPart(t *testing.T) {
	sig, err := fuzzy.Generate(append(xorshift(1024, 3), xorshift(1024, 3)...), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sig.Part1) > fuzzy.SignatureLength {
		t.Errorf("part1 has %d characters", len(sig.Part1))
	}
	if len(sig.Part2) > fuzzy.SignatureLength/2 {
		t.Errorf("part2 has %d characters", len(sig.Part2))
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("Hello there!"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := fuzzy.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if got != "3:aNRn:aNRn" {
		t.Errorf("expected 3:aNRn:aNRn, got %q", got)
	}
}

func TestHashFileMissing(t *testing.T) {
	_, err := fuzzy.HashFile(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fuzzy.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the underlying error to be kept, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	base := xorshift(20000, 1)
	similar, _ := fuzzy.Hash(splice(base, 8000, xorshift(600, 7)))
	original, _ := fuzzy.Hash(base)
	truncated, _ := fuzzy.Hash(base[:11000])
	unrelated, _ := fuzzy.Hash(xorshift(20000, 99))
	larger, _ := fuzzy.Hash(append(append([]byte(nil), base...), xorshift(30000, 5)...))

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "3:AXGBicFlgVNhBGcL6wCrFQEv:AXGHsNhxLsr2C", "3:AXGBicFlgVNhBGcL6wCrFQEv:AXGHsNhxLsr2C", 100},
		{"similar", "3:AXGBicFlgVNhBGcL6wCrFQEv:AXGHsNhxLsr2C", "3:AXGBicFlIHBGcL6wCrFQEv:AXGH6xLsr2Cx", 22},
		{"dissimilar", "3:u+N:u+N", "3:OWIXTn:OWQ", 0},
		{"insertion", original, similar, 96},
		{"half block size", original, truncated, 85},
		{"unrelated content", original, unrelated, 0},
		{"incompatible block sizes", original, larger, 0},
		{"ratio 64", "3:AXGBicFlgVNhBGcL6wCrFQEv:AXGHsNhxLsr2C", "192:AXGBicFlgVNhBGcL6wCrFQEv:AXGHsNhxLsr2C", 0},
		{"empty", "3::", "3::", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fuzzy.Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compare failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCompareMalformed(t *testing.T) {
	valid := "3:tc:u"
	for _, text := range []string{
		"XYZ",
		"3",
		"3:abc",
		"x:abc:def",
		"-3:abc:def",
		"5:abc:def",
		"0:abc:def",
		"3:ab!c:def",
	} {
		if _, err := fuzzy.Compare(text, valid); !errors.Is(err, fuzzy.ErrMalformedSignature) {
			t.Errorf("Compare(%q): expected ErrMalformedSignature, got %v", text, err)
		}
		if _, err := fuzzy.Compare(valid, text); !errors.Is(err, fuzzy.ErrMalformedSignature) {
			t.Errorf("Compare(valid, %q): expected ErrMalformedSignature, got %v", text, err)
		}
	}
}

func TestCompareCollapsesRuns(t *testing.T) {
	long := fuzzy.MustParse("3:AAAAAAAAAAbcdefghijkl:AAAAAAAAAAmnopq")
	short := fuzzy.MustParse("3:AAAbcdefghijkl:AAAmnopq")
	third := fuzzy.MustParse("3:AAAbcdefgXijkl:AAAmnopr")

	if got := fuzzy.CompareSignatures(long, short); got != 100 {
		t.Errorf("expected collapsed runs to compare as identical, got %d", got)
	}
	if a, b := fuzzy.CompareSignatures(long, third), fuzzy.CompareSignatures(short, third); a != b {
		t.Errorf("expected equal scores against a third signature, got %d and %d", a, b)
	}
}

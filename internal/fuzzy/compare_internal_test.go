package fuzzy

import "testing"

func TestRollingHashWindow(t *testing.T) {
	var a, b RollingHash
	for _, c := range []byte("prefix that differs") {
		a.Roll(c)
	}
	for _, c := range []byte("another, longer prefix") {
		b.Roll(c)
	}

	// All three accumulators depend only on the last rollingWindow bytes.
	var sa, sb uint32
	for _, c := range []byte("shared window!") {
		sa = a.Roll(c)
		sb = b.Roll(c)
	}
	if sa != sb {
		t.Errorf("expected equal sums after a shared tail, got %d and %d", sa, sb)
	}

	a.Reset()
	if a.Sum() != 0 {
		t.Errorf("expected zero sum after Reset, got %d", a.Sum())
	}
}

func TestSelectBlockSize(t *testing.T) {
	tests := []struct {
		n    int64
		want uint64
	}{
		{0, 3},
		{1, 3},
		{192, 3},
		{193, 6},
		{384, 6},
		{385, 12},
		{1000000, 24576},
		{MaxInputSize, MaxBlockSize},
		{MaxInputSize * 4, MaxBlockSize},
	}
	for _, tt := range tests {
		if got := SelectBlockSize(tt.n); got != tt.want {
			t.Errorf("SelectBlockSize(%d): expected %d, got %d", tt.n, tt.want, got)
		}
	}
}

func TestValidBlockSize(t *testing.T) {
	for _, bs := range []uint64{3, 6, 12, 192, 24576, MaxBlockSize} {
		if !ValidBlockSize(bs) {
			t.Errorf("expected %d to be valid", bs)
		}
	}
	for _, bs := range []uint64{0, 1, 2, 4, 5, 9, 18, 64, MaxBlockSize * 2} {
		if ValidBlockSize(bs) {
			t.Errorf("expected %d to be invalid", bs)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abc", "abc"},
		{"aaa", "aaa"},
		{"aaaa", "aaa"},
		{"aaaaaaaaaab", "aaab"},
		{"abbbbbcddddd", "abbbcddd"},
		{"aabbaabb", "aabbaabb"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 2},
		{"abc", "ab", 1},
		{"gVNh", "IH", 6},
		{"kitten", "sitting", 5},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q): expected %d, got %d", tt.a, tt.b, tt.want, got)
		}
		if got := editDistance(tt.b, tt.a); got != tt.want {
			t.Errorf("editDistance(%q, %q): expected %d, got %d", tt.b, tt.a, tt.want, got)
		}
	}
}

func TestHasCommonSubstring(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"abcdefg", "abcdefg", true},
		{"abcdef", "abcdef", false},
		{"xxabcdefgyy", "zzzabcdefg", true},
		{"AXGHsNhxLsr2C", "AXGH6xLsr2Cx", false},
		{"AXGBicFlgVNhBGcL6wCrFQEv", "AXGBicFlIHBGcL6wCrFQEv", true},
	}
	for _, tt := range tests {
		if got := hasCommonSubstring(tt.a, tt.b); got != tt.want {
			t.Errorf("hasCommonSubstring(%q, %q): expected %v, got %v", tt.a, tt.b, tt.want, got)
		}
	}
}

// Package fuzzy implements context triggered piecewise hashing (CTPH), the
// fuzzy hashing scheme popularised by ssdeep.
//
// A signature is computed in one pass over the input: a rolling hash over
// a seven byte window picks trigger points, and at each trigger one base64
// character summarising the bytes since the previous trigger is emitted.
// Two signatures are compared with a weighted edit distance over their
// parts and scored from 0 to 100.
//
// CTPH is not collision resistant. Do not use it where an adversary may
// forge inputs.
package fuzzy

import (
	"fmt"
	"os"
)

// Hash returns the canonical signature text of data.
func Hash(data []byte) (string, error) {
	sig, err := Generate(data, "")
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// HashFile reads the named file and returns the canonical signature text
// of its content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	sig, err := GenerateReader(f, "")
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// Compare parses two signature texts and returns their similarity score.
func Compare(a, b string) (int, error) {
	sigA, err := Parse(a)
	if err != nil {
		return 0, err
	}
	sigB, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return CompareSignatures(sigA, sigB), nil
}

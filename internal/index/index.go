// Package index keeps a searchable collection of fuzzy signatures.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"ctph/internal/fuzzy"
)

// ErrNotFound is returned when no signature is stored under an ID.
var ErrNotFound = errors.New("signature not found")

// Index dictates the requirements for a signature store that can be
// searched for similar signatures.
type Index interface {
	Add(sig fuzzy.Signature) (string, error)
	Get(id string) (fuzzy.Signature, bool)
	Remove(id string) error
	Match(sig fuzzy.Signature, threshold int) ([]Match, error)
	Len() int
}

// Match is a stored signature scoring at or above a match threshold.
type Match struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
	Score     int    `json:"score"`
}

// ID returns the content address of sig: the hex SHA-256 of its canonical
// text, label included.
func ID(sig fuzzy.Signature) string {
	sum := sha256.Sum256([]byte(sig.String()))
	return hex.EncodeToString(sum[:])
}

package fuzzy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// KnownHeader is the first line of an ssdeep list of known hashes.
const KnownHeader = "ssdeep,1.1--blocksize:hash:hash,filename"

// ReadKnown parses a list of known hashes as written by WriteKnown or by
// ssdeep itself. Blank lines are skipped.
func ReadKnown(r io.Reader) ([]Signature, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		return nil, fmt.Errorf("%w: empty known hashes list", ErrMalformedSignature)
	}
	if header := strings.TrimSpace(scanner.Text()); header != KnownHeader {
		return nil, fmt.Errorf("%w: unexpected known hashes header %q", ErrMalformedSignature, header)
	}

	var sigs []Signature
	for line := 2; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		sig, err := Parse(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sigs = append(sigs, sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return sigs, nil
}

// WriteKnown writes sigs in ssdeep's list format, labels quoted as file
// names. Labels containing line breaks cannot be represented and are
// rejected before anything is written.
func WriteKnown(w io.Writer, sigs []Signature) error {
	for _, sig := range sigs {
		if strings.ContainsAny(sig.Label, "\r\n") {
			return fmt.Errorf("%w: label %q contains a line break", ErrInvalidInput, sig.Label)
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, KnownHeader)
	for _, sig := range sigs {
		fmt.Fprintf(bw, "%d:%s:%s,%s\n", sig.BlockSize, sig.Part1, sig.Part2, quoteLabel(sig.Label))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

package fuzzy

import (
	"fmt"
	"strconv"
	"strings"
)

// Signature is a context triggered piecewise hash. Part1 was produced with
// trigger window BlockSize and Part2 with 2*BlockSize.
type Signature struct {
	BlockSize uint64
	Part1     string
	Part2     string
	Label     string
}

// String renders the signature in its canonical form, blocksize:part1:part2,
// followed by :label when a label is set.
func (s Signature) String() string {
	return Format(s)
}

// Format renders sig as blocksize:part1:part2[:label].
func Format(sig Signature) string {
	var b strings.Builder
	b.Grow(24 + len(sig.Part1) + len(sig.Part2) + len(sig.Label))
	b.WriteString(strconv.FormatUint(sig.BlockSize, 10))
	b.WriteByte(':')
	b.WriteString(sig.Part1)
	b.WriteByte(':')
	b.WriteString(sig.Part2)
	if sig.Label != "" {
		b.WriteByte(':')
		b.WriteString(sig.Label)
	}
	return b.String()
}

// Parse reads a signature in canonical form. The label may follow the
// second part either as :label or in ssdeep's ,"label" form. Everything
// after the label delimiter belongs to the label.
func Parse(text string) (Signature, error) {
	bsText, rest, ok := strings.Cut(text, ":")
	if !ok {
		return Signature{}, fmt.Errorf("%w: missing block size delimiter in %q", ErrMalformedSignature, text)
	}
	bs, err := parseBlockSize(bsText)
	if err != nil {
		return Signature{}, err
	}

	part1, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return Signature{}, fmt.Errorf("%w: missing part delimiter in %q", ErrMalformedSignature, text)
	}

	part2, label := rest, ""
	if i := strings.IndexAny(rest, ":,"); i >= 0 {
		part2 = rest[:i]
		if rest[i] == ',' {
			label = unquoteLabel(rest[i+1:])
		} else {
			label = rest[i+1:]
		}
	}

	if err := checkPart(part1); err != nil {
		return Signature{}, err
	}
	if err := checkPart(part2); err != nil {
		return Signature{}, err
	}

	return Signature{
		BlockSize: bs,
		Part1:     part1,
		Part2:     part2,
		Label:     label,
	}, nil
}

// MustParse is like Parse but panics on error. It is meant for literals.
func MustParse(text string) Signature {
	sig, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return sig
}

func parseBlockSize(text string) (uint64, error) {
	if text == "" {
		return 0, fmt.Errorf("%w: empty block size", ErrMalformedSignature)
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, fmt.Errorf("%w: block size %q is not a decimal number", ErrMalformedSignature, text)
		}
	}
	bs, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: block size %q: %w", ErrMalformedSignature, text, err)
	}
	if !ValidBlockSize(bs) {
		return 0, fmt.Errorf("%w: invalid block size %d", ErrMalformedSignature, bs)
	}
	return bs, nil
}

func checkPart(part string) error {
	if len(part) > SignatureLength {
		return fmt.Errorf("%w: part of %d characters exceeds %d", ErrMalformedSignature, len(part), SignatureLength)
	}
	for i := 0; i < len(part); i++ {
		if strings.IndexByte(b64, part[i]) < 0 {
			return fmt.Errorf("%w: invalid character %q in part", ErrMalformedSignature, part[i])
		}
	}
	return nil
}

// quoteLabel renders label the way ssdeep prints file names.
func quoteLabel(label string) string {
	return `"` + strings.ReplaceAll(label, `"`, `\"`) + `"`
}

func unquoteLabel(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}

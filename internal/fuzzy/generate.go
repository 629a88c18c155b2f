package fuzzy

import (
	"fmt"
	"io"
)

const (
	hashPrime uint32 = 0x01000193
	hashInit  uint32 = 0x28021967

	b64 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

func sumHash(c byte, h uint32) uint32 {
	return (h * hashPrime) ^ uint32(c)
}

// generator holds the state of one pass over the input at a fixed block
// size. It lives on the caller's stack and is discarded after digest.
type generator struct {
	blockSize uint64
	roll      RollingHash

	h1 uint32
	h2 uint32

	part1 [SignatureLength]byte
	part2 [SignatureLength / 2]byte
	n1    int
	n2    int
}

func newGenerator(blockSize uint64) generator {
	return generator{
		blockSize: blockSize,
		h1:        hashInit,
		h2:        hashInit,
	}
}

func (g *generator) write(data []byte) {
	bs := g.blockSize
	bs2 := bs * 2
	for _, c := range data {
		g.h1 = sumHash(c, g.h1)
		g.h2 = sumHash(c, g.h2)
		sum := uint64(g.roll.Roll(c))

		// The last slot of each part keeps being overwritten once the
		// part is full, so it always reflects the tail of the input.
		if sum%bs == bs-1 {
			g.part1[g.n1] = b64[g.h1%64]
			if g.n1 < len(g.part1)-1 {
				g.h1 = hashInit
				g.n1++
			}
		}
		if sum%bs2 == bs2-1 {
			g.part2[g.n2] = b64[g.h2%64]
			if g.n2 < len(g.part2)-1 {
				g.h2 = hashInit
				g.n2++
			}
		}
	}
}

func (g *generator) digest() (string, string) {
	if g.roll.Sum() != 0 {
		g.part1[g.n1] = b64[g.h1%64]
		g.part2[g.n2] = b64[g.h2%64]
		return string(g.part1[:g.n1+1]), string(g.part2[:g.n2+1])
	}
	return string(g.part1[:filled(g.part1[:], g.n1)]), string(g.part2[:filled(g.part2[:], g.n2)])
}

// filled returns the length of part given its write index: the slot at n
// only holds a character when the part reached its cap.
func filled(part []byte, n int) int {
	if part[n] != 0 {
		return n + 1
	}
	return n
}

// Generate computes the signature of data. The block size starts at the
// guess from SelectBlockSize and is halved while the first part comes out
// shorter than half of SignatureLength.
func Generate(data []byte, label string) (Signature, error) {
	if int64(len(data)) > MaxInputSize {
		return Signature{}, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrInvalidInput, len(data), MaxInputSize)
	}

	bs := SelectBlockSize(int64(len(data)))
	for {
		g := newGenerator(bs)
		g.write(data)
		if bs > MinBlockSize && g.n1 < SignatureLength/2 {
			bs /= 2
			continue
		}

		part1, part2 := g.digest()
		return Signature{
			BlockSize: bs,
			Part1:     part1,
			Part2:     part2,
			Label:     label,
		}, nil
	}
}

// GenerateReader reads r to EOF and computes the signature of its content.
func GenerateReader(r io.Reader, label string) (Signature, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize+1))
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return Generate(data, label)
}

package index

import (
	"github.com/spaolacci/murmur3"

	"ctph/internal/fuzzy"
)

// gramSize matches the common substring length two parts need before the
// comparator gives them a non-zero score.
const gramSize = 7

// gramKey identifies a gram at the effective block size of its part, so
// that part2 of one signature meets part1 of a signature with twice the
// block size.
type gramKey struct {
	blockSize uint64
	hash      uint64
}

// level is one part of a signature together with the block size it was
// produced at, after run normalisation.
type level struct {
	blockSize uint64
	part      string
}

func levels(sig fuzzy.Signature) [2]level {
	return [2]level{
		{blockSize: sig.BlockSize, part: fuzzy.Normalize(sig.Part1)},
		{blockSize: sig.BlockSize * 2, part: fuzzy.Normalize(sig.Part2)},
	}
}

// grams returns the distinct keys of every gramSize window in sig's parts.
func grams(sig fuzzy.Signature) []gramKey {
	seen := make(map[gramKey]struct{})
	var keys []gramKey
	for _, l := range levels(sig) {
		for i := 0; i+gramSize <= len(l.part); i++ {
			k := gramKey{blockSize: l.blockSize, hash: murmur3.Sum64([]byte(l.part[i : i+gramSize]))}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// exactKey groups signatures whose normalised parts are identical; those
// score 100 even when too short to share a gram.
func exactKey(sig fuzzy.Signature) string {
	l := levels(sig)
	return fuzzy.Format(fuzzy.Signature{BlockSize: sig.BlockSize, Part1: l[0].part, Part2: l[1].part})
}

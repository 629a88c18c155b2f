package fuzzy

const (
	// MinBlockSize is the smallest block size a signature is generated with.
	MinBlockSize = 3
	// SignatureLength is the maximum number of characters in a signature part.
	SignatureLength = 64

	numBlockSizes = 31

	// MaxBlockSize is the largest block size on the ladder, 3 * 2^30.
	MaxBlockSize = MinBlockSize << (numBlockSizes - 1)

	// MaxInputSize bounds the inputs Generate accepts: beyond it even
	// MaxBlockSize would produce more than SignatureLength triggers.
	MaxInputSize int64 = MaxBlockSize * SignatureLength
)

// SelectBlockSize returns the smallest block size on the ladder whose
// expected trigger count for an input of n bytes is at most SignatureLength.
func SelectBlockSize(n int64) uint64 {
	bs := uint64(MinBlockSize)
	for int64(bs)*SignatureLength < n && bs < MaxBlockSize {
		bs *= 2
	}
	return bs
}

// ValidBlockSize reports whether bs is MinBlockSize times a power of two
// no larger than MaxBlockSize.
func ValidBlockSize(bs uint64) bool {
	if bs < MinBlockSize || bs > MaxBlockSize || bs%MinBlockSize != 0 {
		return false
	}
	q := bs / MinBlockSize
	return q&(q-1) == 0
}

package fuzzy

// Edit distance weights. A substitution costs as much as a deletion plus
// an insertion.
const (
	insertCost  = 1
	removeCost  = 1
	replaceCost = 2

	// maxRun is the longest run of one character kept by Normalize.
	maxRun = 3

	// Block sizes at or above this threshold are not subject to the small
	// signature cap in scoreParts.
	uncappedBlockSize = (99 + rollingWindow) / rollingWindow * MinBlockSize
)

// CompareSignatures scores the similarity of a and b from 0 (no
// relationship) to 100. Signatures whose block sizes are neither equal nor
// a factor of two apart score 0.
func CompareSignatures(a, b Signature) int {
	if a.BlockSize != b.BlockSize && a.BlockSize*2 != b.BlockSize && b.BlockSize*2 != a.BlockSize {
		return 0
	}

	a1, a2 := Normalize(a.Part1), Normalize(a.Part2)
	b1, b2 := Normalize(b.Part1), Normalize(b.Part2)

	var score int
	switch {
	case a.BlockSize == b.BlockSize:
		if a1 == b1 && a2 == b2 {
			return 100
		}
		score = max(scoreParts(a1, b1, a.BlockSize), scoreParts(a2, b2, a.BlockSize*2))
	case a.BlockSize*2 == b.BlockSize:
		score = scoreParts(b1, a2, b.BlockSize)
	default:
		score = scoreParts(a1, b2, a.BlockSize)
	}
	return min(max(score, 0), 100)
}

// Normalize collapses every run of more than maxRun identical characters
// down to maxRun, as CompareSignatures does before scoring.
func Normalize(s string) string {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run > maxRun {
				break
			}
		} else {
			run = 1
		}
	}
	if run <= maxRun {
		return s
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if i >= maxRun && s[i] == s[i-1] && s[i] == s[i-2] && s[i] == s[i-3] {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// scoreParts scores two parts produced at the same effective block size.
func scoreParts(s1, s2 string, blockSize uint64) int {
	if len(s1) > SignatureLength || len(s2) > SignatureLength {
		return 0
	}
	if !hasCommonSubstring(s1, s2) {
		return 0
	}

	d := editDistance(s1, s2)
	d = d * SignatureLength / (len(s1) + len(s2))
	d = 100 * d / SignatureLength
	if d >= 100 {
		return 0
	}
	score := 100 - d

	// Short signatures at small block sizes cannot support a high score.
	if blockSize >= uncappedBlockSize {
		return score
	}
	limit := int(blockSize/MinBlockSize) * min(len(s1), len(s2))
	return min(score, limit)
}

// hasCommonSubstring reports whether s1 and s2 share a run of at least
// rollingWindow characters. Rolling sums of s1's windows are used to skip
// byte comparisons for most window pairs.
func hasCommonSubstring(s1, s2 string) bool {
	if len(s1) < rollingWindow || len(s2) < rollingWindow {
		return false
	}

	var sums [SignatureLength - rollingWindow + 1]uint32
	var r RollingHash
	for i := 0; i < len(s1); i++ {
		sum := r.Roll(s1[i])
		if i >= rollingWindow-1 {
			sums[i-rollingWindow+1] = sum
		}
	}
	windows := len(s1) - rollingWindow + 1

	r.Reset()
	for j := 0; j < len(s2); j++ {
		sum := r.Roll(s2[j])
		if j < rollingWindow-1 {
			continue
		}
		start := j - rollingWindow + 1
		for i := 0; i < windows; i++ {
			if sums[i] == sum && s1[i:i+rollingWindow] == s2[start:start+rollingWindow] {
				return true
			}
		}
	}
	return false
}

// editDistance is the weighted Levenshtein distance between s1 and s2,
// computed with two rows.
func editDistance(s1, s2 string) int {
	var rows [2][SignatureLength + 1]int
	prev, cur := &rows[0], &rows[1]

	for j := 0; j <= len(s2); j++ {
		prev[j] = j * insertCost
	}
	for i := 0; i < len(s1); i++ {
		cur[0] = (i + 1) * removeCost
		for j := 0; j < len(s2); j++ {
			cost := prev[j]
			if s1[i] != s2[j] {
				cost += replaceCost
			}
			cur[j+1] = min(prev[j+1]+removeCost, cur[j]+insertCost, cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

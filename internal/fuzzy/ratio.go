package fuzzy

import (
	"math/bits"
	"sort"
	"strings"
)

// TokenSort splits s on whitespace, sorts the tokens and joins them with a
// single space, so that word order no longer affects comparisons.
func TokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio scores two strings between 0 and 100 regardless of word
// order. Case is significant; callers lower-case both sides first.
func TokenSortRatio(a, b string) int {
	return Ratio(TokenSort(a), TokenSort(b))
}

// Ratio is the normalized Indel similarity of a and b scaled to 0..100 and
// truncated toward zero. The Indel distance counts insertions and deletions
// only, so the similarity equals 2*LCS / (len(a)+len(b)) over runes.
func Ratio(a, b string) int {
	return ratioRunes([]rune(a), []rune(b))
}

func ratioRunes(a, b []rune) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 200 * lcsLength(a, b) / total
}

// ratioBound is the best score two strings of these lengths could reach.
func ratioBound(la, lb int) int {
	total := la + lb
	if total == 0 {
		return 100
	}
	return 200 * min(la, lb) / total
}

// lcsLength returns the length of the longest common subsequence.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) <= 64 {
		return newPattern(a).lcs(b)
	}
	if len(b) <= 64 {
		return newPattern(b).lcs(a)
	}
	return lcsTable(a, b)
}

// lcsTable is the classic two-row dynamic program.
func lcsTable(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// pattern is a bit-parallel LCS matcher for strings of at most 64 runes
// (Hyyrö 2004). Bit i of masks[r] is set when the pattern has r at i.
type pattern struct {
	masks  map[rune]uint64
	length int
}

func newPattern(p []rune) *pattern {
	masks := make(map[rune]uint64, len(p))
	for i, r := range p {
		masks[r] |= 1 << uint(i)
	}
	return &pattern{masks: masks, length: len(p)}
}

func (p *pattern) lcs(text []rune) int {
	if p.length == 0 || len(text) == 0 {
		return 0
	}

	var full uint64
	if p.length == 64 {
		full = ^uint64(0)
	} else {
		full = (uint64(1) << uint(p.length)) - 1
	}

	s := full
	for _, r := range text {
		m := p.masks[r]
		u := s & m
		s = ((s + u) | (s - u)) & full
	}
	return bits.OnesCount64(^s & full)
}

// Package match scores unlinked source listings against canonical products
// and produces ranked link suggestions.
package match

import (
	"regexp"
	"strings"
)

// Weights of the combined text similarity. Sequence matching catches
// reorderings of near-identical strings; token overlap catches titles that
// share the same words in different order or with extra noise.
const (
	seqWeight   = 0.6
	tokenWeight = 0.4
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// textSimilarity combines character-sequence similarity with token-set
// overlap, both computed on lowercased input. Result is in [0, 1].
func textSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return seqWeight*sequenceRatio(a, b) + tokenWeight*tokenJaccard(a, b)
}

// tokenJaccard is the Jaccard index over alphanumeric tokens.
func tokenJaccard(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenRe.FindAllString(s, -1) {
		set[t] = true
	}
	return set
}

// sequenceRatio implements the Ratcliff/Obershelp similarity over runes:
// twice the number of matching characters across all recursively found
// longest common blocks, divided by the total length.
func sequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	matched := matchingTotal(ra, rb)
	return 2 * float64(matched) / float64(total)
}

// matchingTotal sums the sizes of all matching blocks between a and b,
// splitting around the longest common block the way difference engines do.
func matchingTotal(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	total := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestBlock(a, s.alo, s.ahi, s.blo, s.bhi, b2j)
		if k == 0 {
			continue
		}
		total += k
		queue = append(queue,
			span{s.alo, i, s.blo, j},
			span{i + k, s.ahi, j + k, s.bhi},
		)
	}
	return total
}

// longestBlock finds the longest run of runes common to a[alo:ahi] and
// b[blo:bhi], preferring the earliest occurrence on ties.
func longestBlock(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestSize int) {
	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return besti, bestj, bestSize
}

var skuStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeSKU lowercases an item identifier and strips separators so
// "ABC-123" and "abc123" compare equal.
func normalizeSKU(id string) string {
	return skuStripRe.ReplaceAllString(strings.ToLower(id), "")
}

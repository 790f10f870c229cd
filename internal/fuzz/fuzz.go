// Package fuzz computes 0-100 similarity scores between normalized strings.
//
// Scores follow the fuzzywuzzy family of metrics: a plain edit-distance
// ratio for person names, and token-set / partial-token-sort ratios for
// property names, where word order and partial containment must not
// matter ("Seaside Villa" vs "Villa Seaside Resort").
package fuzz

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Ratio is the character-level similarity between a and b: 100 means
// identical, 0 means no detected similarity. Symmetric.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round((1 - float64(dist)/float64(longest)) * 100))
}

// PartialRatio is the best Ratio of the shorter string against every
// equal-length substring of the longer one.
func PartialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 100
		}
		return 0
	}

	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := string(longer[i : i+len(shorter)])
		if score := Ratio(string(shorter), window); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSetRatio compares a and b as word sets, so shared tokens score
// regardless of order and of extra words on either side.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range ta {
		if tb[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	return max(Ratio(base, combinedA), Ratio(base, combinedB), Ratio(combinedA, combinedB))
}

// PartialTokenSortRatio sorts the tokens of each string and then takes
// the partial ratio of the results.
func PartialTokenSortRatio(a, b string) int {
	return PartialRatio(sortTokens(a), sortTokens(b))
}

// PropertyScore is the similarity used for property-name comparisons:
// the higher of the token-set and partial-token-sort ratios.
func PropertyScore(a, b string) int {
	return max(TokenSetRatio(a, b), PartialTokenSortRatio(a, b))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func sortTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

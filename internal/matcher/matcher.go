// Package matcher decides whether two free-text trivia answers denote the
// same thing. It tolerates typos, honours human synonym overrides and treats
// spelled-out numbers as their digits.
package matcher

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

const (
	// fuzzyThreshold is the partial ratio a pair of long answers must exceed.
	fuzzyThreshold = 70
	// minFuzzyLength is the length both answers must exceed before a partial
	// ratio alone can merge them.
	minFuzzyLength = 5
	// minSubstringRatio is the full ratio required when one answer is wholly
	// contained in the other.
	minSubstringRatio = 50
)

// CloseEnough reports whether answer should be merged into candidate.
// overrides maps raw answers to the coded answer a human assigned them.
// Rules are applied in order and the first decisive one wins.
//
// A candidate that parses as an integer settles the decision on its own: it
// matches only answers whose spelled-out value is that integer, so
// CloseEnough("four", "4") is true and CloseEnough("14", "4") is false.
func CloseEnough(answer, candidate string, overrides map[string]string) bool {
	a, c := normalize(answer), normalize(candidate)
	if a == c {
		return true
	}

	if code, ok := lookupOverride(overrides, candidate, c); ok && normalize(code) == a {
		return true
	}

	// Integers are never fuzzy matched: "4" and "14" are different answers.
	if _, err := strconv.Atoi(c); err == nil {
		n, ok := WordsToNumber(a)
		return ok && strconv.Itoa(n) == c
	}

	partial := PartialRatio(a, c)
	if partial > fuzzyThreshold &&
		utf8.RuneCountInString(a) > minFuzzyLength &&
		utf8.RuneCountInString(c) > minFuzzyLength {
		return true
	}

	if partial == 100 && Ratio(a, c) > minSubstringRatio {
		return true
	}

	// c is not an integer here, so only the candidate can be the spelled-out side.
	if n, ok := WordsToNumber(c); ok && strconv.Itoa(n) == a {
		return true
	}

	return false
}

// Ratio is the normalized Levenshtein similarity of a and b on a 0-100 scale.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}

	distance := levenshtein.ComputeDistance(a, b)
	similarity := 1.0 - float64(distance)/float64(maxLen)
	if similarity < 0 {
		similarity = 0
	}
	return int(math.Round(similarity * 100))
}

// PartialRatio scores the best alignment of the shorter string inside the
// longer one. Token order is ignored: the score is the better of the raw
// strings and their token-sorted forms.
func PartialRatio(a, b string) int {
	best := partialRatio(a, b)
	if sorted := partialRatio(sortTokens(a), sortTokens(b)); sorted > best {
		best = sorted
	}
	return best
}

func partialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := Ratio(s, string(long[i:i+len(short)])); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// normalize folds case and trims surrounding whitespace. A Caser is
// stateful, so each call gets its own.
func normalize(s string) string {
	return strings.TrimSpace(cases.Fold().String(s))
}

func lookupOverride(overrides map[string]string, raw, normalized string) (string, bool) {
	if code, ok := overrides[raw]; ok {
		return code, true
	}
	code, ok := overrides[normalized]
	return code, ok
}

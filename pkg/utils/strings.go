package utils

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// CalculateStringSimilarity returns a similarity score between two strings in the range [0,1].
// It is 1 minus the Levenshtein distance normalized by the longer string's rune length,
// so a single typo in a long street segment still scores high.
func CalculateStringSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if s1 == "" || s2 == "" {
		return 0.0
	}

	longest := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > longest {
		longest = n
	}

	d := levenshtein.ComputeDistance(s1, s2)
	return 1.0 - float64(d)/float64(longest)
}

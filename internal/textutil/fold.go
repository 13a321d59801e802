package textutil

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold: returns the Unicode case-folded form of s, used for every case-insensitive comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold: reports whether a and b are equal after trimming and case folding.
func EqualFold(a, b string) bool {
	return Fold(strings.TrimSpace(a)) == Fold(strings.TrimSpace(b))
}

// ContainsFold: reports whether needle occurs in haystack ignoring case.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// IndexFold: index of the first exact (case-insensitive) match of term in list, or -1.
func IndexFold(list []string, term string) int {
	folded := Fold(strings.TrimSpace(term))
	for i, item := range list {
		if Fold(strings.TrimSpace(item)) == folded {
			return i
		}
	}
	return -1
}

// UpperFirst: upper-cases the first rune and lower-cases the rest, like "next tuesday" -> "Next tuesday".
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

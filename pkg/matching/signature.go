// Package matching normalizes and matches scraped fight observations against
// persisted fights.
package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Signature derives the matching signature for one fighter name: the last
// whitespace-delimited token (which handles single-word ring names), with
// diacritics stripped and lowercased. Side ordering is handled by PairKey.
func Signature(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	if stripped, _, err := transform.String(stripDiacritics, last); err == nil {
		last = stripped
	}
	return strings.ToLower(last)
}

// PairKey builds an unordered signature pair key for two fighter names, so a
// snapshot listing "A vs B" matches a persisted fight stored as B vs A.
func PairKey(nameA, nameB string) string {
	sigA, sigB := Signature(nameA), Signature(nameB)
	if sigB < sigA {
		sigA, sigB = sigB, sigA
	}
	return sigA + "|" + sigB
}

// SplitName splits a full name into first/last parts for fighter creation.
// Single-token names land entirely in the last name.
func SplitName(fullName string) (first, last string) {
	fields := strings.Fields(fullName)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}

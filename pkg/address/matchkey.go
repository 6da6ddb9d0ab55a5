package address

import (
	"strings"

	"address-reconciliation/pkg/utils"
)

// designator folding applied to the compacted street, in this order. None of
// the outputs is a trigger for a later entry. unit and way are identity rules
// kept so the table lists every designator existing keys were built with.
var streetAbbreviations = [...]struct{ from, to string }{
	{"street", "st"},
	{"avenue", "ave"},
	{"boulevard", "blvd"},
	{"drive", "dr"},
	{"road", "rd"},
	{"lane", "ln"},
	{"court", "ct"},
	{"place", "pl"},
	{"circle", "cir"},
	{"apartment", "apt"},
	{"suite", "ste"},
	{"unit", "unit"},
	{"way", "way"},
}

// full state names that collapse to their postal code
var stateNames = [...]struct{ from, to string }{
	{"MICHIGAN", "MI"},
	{"OHIO", "OH"},
}

// MatchKey derives the street-city-state-zip comparison key for c.
// Street folding is plain substring replacement, so "Wayland" or "Courtney"
// are rewritten too; existing keys depend on that.
func MatchKey(c Canonical) string {
	key := NormalizeStreet(c.Street) + "-" +
		NormalizeCity(c.City) + "-" +
		NormalizeState(c.State) + "-" +
		NormalizeZip(c.Zip)
	return strings.ToLower(key)
}

// NormalizeStreet lower-cases, keeps only [a-z0-9] and folds designators.
func NormalizeStreet(street string) string {
	s := keepRunes(strings.ToLower(street), isLowerAlnum)
	for _, a := range streetAbbreviations {
		s = strings.ReplaceAll(s, a.from, a.to)
	}
	return s
}

// NormalizeCity lower-cases and keeps letters only; spaces and digits go too.
func NormalizeCity(city string) string {
	return keepRunes(strings.ToLower(city), isLowerAlpha)
}

// NormalizeState upper-cases and maps the handful of full names we see in
// stored data. Any other full name passes through unchanged.
func NormalizeState(state string) string {
	s := strings.ToUpper(state)
	for _, n := range stateNames {
		s = strings.ReplaceAll(s, n.from, n.to)
	}
	return s
}

// NormalizeZip keeps the first five digits.
func NormalizeZip(zip string) string {
	d := keepRunes(zip, isDigit)
	if len(d) > 5 {
		d = d[:5]
	}
	return d
}

// KeyParts splits a match key back into its four segments. ok is false for
// strings that are not match keys. Street, city and zip never contain the
// separator, so anything between city and zip is the state.
func KeyParts(key string) (street, city, state, zip string, ok bool) {
	street, rest, ok := strings.Cut(key, "-")
	if !ok {
		return "", "", "", "", false
	}
	city, rest, ok = strings.Cut(rest, "-")
	if !ok {
		return "", "", "", "", false
	}
	i := strings.LastIndex(rest, "-")
	if i < 0 {
		return "", "", "", "", false
	}
	return street, city, rest[:i], rest[i+1:], true
}

// KeySuffix is the city-state-zip tail of a key, prefixed with the separator,
// used to look up candidates that differ only in the street segment.
func KeySuffix(key string) string {
	if i := strings.Index(key, "-"); i >= 0 {
		return key[i:]
	}
	return ""
}

// StreetSimilarity scores how close the street segments of two keys are, in [0,1].
// Keys with different city/state/zip tails score 0.
func StreetSimilarity(a, b string) float64 {
	sa, ta, okA := strings.Cut(a, "-")
	sb, tb, okB := strings.Cut(b, "-")
	if !okA || !okB || ta != tb {
		return 0
	}
	return utils.CalculateStringSimilarity(sa, sb)
}

func keepRunes(s string, keep func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isLowerAlpha(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
func isLowerAlnum(r rune) bool { return isLowerAlpha(r) || isDigit(r) }

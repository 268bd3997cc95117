package adapters

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchesQuery decides whether a search result label denotes the queried work.
// Both sides are case-folded; the label matches when it contains the whole query or
// any whitespace-separated token of it. False positives are preferred over misses
// because every output row is reviewed by a person.
func MatchesQuery(query, label string) bool {
	// a Caser is stateful, so each call gets its own
	fold := cases.Fold()
	q := strings.TrimSpace(fold.String(query))
	l := fold.String(label)
	if q == "" || strings.TrimSpace(l) == "" {
		return false
	}
	if strings.Contains(l, q) {
		return true
	}
	for _, token := range strings.Fields(q) {
		if strings.Contains(l, token) {
			return true
		}
	}
	return false
}

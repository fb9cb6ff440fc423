package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize case-folds and trims s. It is applied identically to dataset
// values and to queries, and Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	// Casers carry state and are not safe for concurrent use, so build one per call.
	return strings.TrimSpace(cases.Fold().String(strings.TrimSpace(s)))
}

// NormalizeRecord returns a copy of r with every field normalized. The link is
// only trimmed since URLs are case sensitive and never matched against queries.
func NormalizeRecord(r Record) Record {
	var out Record
	for _, c := range Columns {
		v := r.Field(c)
		if c == ColumnLink {
			out.Set(c, strings.TrimSpace(v))
			continue
		}
		out.Set(c, Normalize(v))
	}
	return out
}

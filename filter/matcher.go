package filter

import (
	"strings"

	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/records"
)

// Hint is a suggested (column, value) pair produced outside the matcher, for
// example by a keyword extractor. Hints are only honored when the value is
// present in the snapshot's distinct-value index for that column.
type Hint struct {
	Column core.Column
	Value  string
}

// Result is the outcome of matching a query against a snapshot.
type Result struct {
	// Rows holds matching record positions in snapshot order.
	Rows []int
	// Matched lists the columns that constrained the result, in priority order.
	// An empty Matched means the query named no known attribute.
	Matched []core.Column
	// Values holds the recognized values per matched column.
	Values map[core.Column][]string
}

// Recognized reports whether at least one column constrained the match.
func (r Result) Recognized() bool {
	return len(r.Matched) > 0
}

// Match finds records whose filterable columns are named in query.
//
// Each filterable column is scanned in priority order for distinct values
// that occur as substrings of query. Values that match within one column are
// OR'd together and columns are AND'd. A column with no hits imposes no
// constraint. When no column matches, Rows and Matched are both empty; when
// columns match but no record satisfies all of them, Rows is empty and
// Matched is not.
//
// query should already be normalized with core.Normalize.
func Match(snap *records.Snapshot, query string, hints ...Hint) Result {
	res := Result{Values: make(map[core.Column][]string)}
	if snap.IsEmpty() {
		return res
	}

	accepted := acceptHints(snap, hints)

	var candidates []bool
	for _, col := range core.FilterColumns {
		var values []string
		for _, v := range snap.Distinct(col) {
			if strings.Contains(query, v) || accepted[col][v] {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		inColumn := make([]bool, snap.Len())
		for _, v := range values {
			for _, pos := range snap.Positions(col, v) {
				inColumn[pos] = true
			}
		}
		if candidates == nil {
			candidates = inColumn
		} else {
			for i := range candidates {
				candidates[i] = candidates[i] && inColumn[i]
			}
		}
		res.Matched = append(res.Matched, col)
		res.Values[col] = values
	}

	for i, ok := range candidates {
		if ok {
			res.Rows = append(res.Rows, i)
		}
	}
	return res
}

func acceptHints(snap *records.Snapshot, hints []Hint) map[core.Column]map[string]bool {
	if len(hints) == 0 {
		return nil
	}
	accepted := make(map[core.Column]map[string]bool)
	for _, h := range hints {
		if !h.Column.Filterable() {
			continue
		}
		v := core.Normalize(h.Value)
		if v == "" || !snap.Has(h.Column, v) {
			continue
		}
		if accepted[h.Column] == nil {
			accepted[h.Column] = make(map[string]bool)
		}
		accepted[h.Column][v] = true
	}
	return accepted
}

package records

import (
	"fmt"
	"strings"

	"github.com/poiesic/tenderqa/core"
)

// HeaderMode controls how the first row of a dataset is treated.
type HeaderMode int

const (
	// HeaderAuto treats the first row as a header when enough of its cells
	// look like column names.
	HeaderAuto HeaderMode = iota
	// HeaderPresent always discards the first row.
	HeaderPresent
	// HeaderAbsent treats the first row as data.
	HeaderAbsent
)

type loadOptions struct {
	header HeaderMode
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithHeader sets the header handling mode. Default: HeaderAuto.
func WithHeader(mode HeaderMode) LoadOption {
	return func(o *loadOptions) {
		o.header = mode
	}
}

// headerAliases maps known header spellings to their column.
var headerAliases = map[string]core.Column{
	"id":             core.ColumnID,
	"identifier":     core.ColumnID,
	"tender id":      core.ColumnID,
	"s no":           core.ColumnID,
	"sno":            core.ColumnID,
	"name":           core.ColumnName,
	"title":          core.ColumnName,
	"tender name":    core.ColumnName,
	"work name":      core.ColumnName,
	"description":    core.ColumnName,
	"region":         core.ColumnRegion,
	"state":          core.ColumnRegion,
	"locality":       core.ColumnLocality,
	"city":           core.ColumnLocality,
	"district":       core.ColumnLocality,
	"location":       core.ColumnLocality,
	"category":       core.ColumnCategory,
	"type":           core.ColumnCategory,
	"sector":         core.ColumnCategory,
	"start date":     core.ColumnStartDate,
	"start":          core.ColumnStartDate,
	"opening date":   core.ColumnStartDate,
	"published date": core.ColumnStartDate,
	"end date":       core.ColumnEndDate,
	"end":            core.ColumnEndDate,
	"closing date":   core.ColumnEndDate,
	"due date":       core.ColumnEndDate,
	"deadline":       core.ColumnEndDate,
	"link":           core.ColumnLink,
	"url":            core.ColumnLink,
	"reference":      core.ColumnLink,
	"reference link": core.ColumnLink,
}

func headerKey(cell string) string {
	k := core.Normalize(cell)
	k = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(k)
	return strings.Join(strings.Fields(k), " ")
}

// headerScore counts the cells that name their own column and reports the
// first cell that names a different column.
func headerScore(row []string) (hits int, misplaced string) {
	for i, cell := range row {
		col, ok := headerAliases[headerKey(cell)]
		if !ok {
			continue
		}
		if int(col) == i {
			hits++
		} else if misplaced == "" {
			misplaced = cell
		}
	}
	return hits, misplaced
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Load turns raw dataset rows into a Snapshot.
//
// Fully-blank rows are dropped. Every remaining row must carry exactly
// core.ColumnCount cells in dataset order, otherwise core.ErrSchema is
// returned. A header row whose names appear in the wrong positions is also
// a schema error. Load is a pure transform; publishing the snapshot is the
// caller's job.
func Load(rows [][]string, opts ...LoadOption) (*Snapshot, error) {
	o := loadOptions{header: HeaderAuto}
	for _, opt := range opts {
		opt(&o)
	}

	data := make([][]string, 0, len(rows))
	lines := make([]int, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		data = append(data, row)
		lines = append(lines, i+1)
	}

	if len(data) > 0 && o.header != HeaderAbsent {
		hits, misplaced := headerScore(data[0])
		isHeader := o.header == HeaderPresent || hits*2 >= core.ColumnCount
		if isHeader {
			if len(data[0]) != core.ColumnCount {
				return nil, fmt.Errorf("%w: header has %d columns, want %d", core.ErrSchema, len(data[0]), core.ColumnCount)
			}
			if misplaced != "" {
				return nil, fmt.Errorf("%w: header column %q is out of order", core.ErrSchema, misplaced)
			}
			data, lines = data[1:], lines[1:]
		}
	}

	recs := make([]core.Record, 0, len(data))
	for i, row := range data {
		if len(row) != core.ColumnCount {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", core.ErrSchema, lines[i], len(row), core.ColumnCount)
		}
		recs = append(recs, core.RecordFromCells(row))
	}
	return FromRecords(recs)
}

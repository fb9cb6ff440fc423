package records

import (
	"slices"
	"strings"

	"github.com/poiesic/tenderqa/core"
)

// FlattenSeparator joins record fields in flattened text.
const FlattenSeparator = " | "

// Flatten renders every field of r in column order. The result is what gets
// embedded for semantic search.
func Flatten(r core.Record) string {
	return strings.Join(r.Fields(), FlattenSeparator)
}

// Snapshot is an immutable, normalized view of the dataset together with the
// data derived from it: flattened text per record and a distinct-value index
// per filterable column. A Snapshot is never modified after construction and
// is safe for concurrent readers.
type Snapshot struct {
	records     []core.Record
	flattened   []string
	distinct    map[core.Column][]string
	positions   map[core.Column]map[string][]int
	fingerprint core.ID
}

// FromRecords normalizes the given records and derives the snapshot indexes.
// Fully-empty records are dropped.
func FromRecords(in []core.Record) (*Snapshot, error) {
	recs := make([]core.Record, 0, len(in))
	for _, r := range in {
		r = core.NormalizeRecord(r)
		if r.IsEmpty() {
			continue
		}
		recs = append(recs, r)
	}
	if err := core.ValidateRecords(recs); err != nil {
		return nil, err
	}

	s := &Snapshot{
		records:   recs,
		flattened: make([]string, len(recs)),
		distinct:  make(map[core.Column][]string, len(core.FilterColumns)),
		positions: make(map[core.Column]map[string][]int, len(core.FilterColumns)),
	}
	for i, r := range recs {
		s.flattened[i] = Flatten(r)
	}
	for _, col := range core.FilterColumns {
		byValue := make(map[string][]int)
		for i, r := range recs {
			v := r.Field(col)
			// Blank values would be a substring of every query.
			if v == "" {
				continue
			}
			byValue[v] = append(byValue[v], i)
		}
		values := make([]string, 0, len(byValue))
		for v := range byValue {
			values = append(values, v)
		}
		slices.Sort(values)
		s.distinct[col] = values
		s.positions[col] = byValue
	}
	s.fingerprint = core.IDFromContent(strings.Join(s.flattened, "\n"))
	return s, nil
}

// Empty returns a snapshot with no records.
func Empty() *Snapshot {
	s, _ := FromRecords(nil)
	return s
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// IsEmpty reports whether the snapshot holds no records.
func (s *Snapshot) IsEmpty() bool {
	return s.Len() == 0
}

// Record returns the record at position i.
func (s *Snapshot) Record(i int) core.Record {
	return s.records[i]
}

// Records returns a copy of all records in snapshot order.
func (s *Snapshot) Records() []core.Record {
	return slices.Clone(s.records)
}

// Flattened returns the flattened text of the record at position i.
func (s *Snapshot) Flattened(i int) string {
	return s.flattened[i]
}

// FlattenedAll returns a copy of every record's flattened text in snapshot order.
func (s *Snapshot) FlattenedAll() []string {
	return slices.Clone(s.flattened)
}

// Distinct returns the sorted distinct non-empty values of a filterable
// column. The returned slice must not be modified.
func (s *Snapshot) Distinct(col core.Column) []string {
	return s.distinct[col]
}

// Has reports whether value occurs in col's distinct-value index.
func (s *Snapshot) Has(col core.Column, value string) bool {
	_, ok := s.positions[col][value]
	return ok
}

// Positions returns the ascending record positions whose col equals value.
// The returned slice must not be modified.
func (s *Snapshot) Positions(col core.Column, value string) []int {
	return s.positions[col][value]
}

// Fingerprint identifies the snapshot's content. Two snapshots built from the
// same normalized data share a fingerprint.
func (s *Snapshot) Fingerprint() core.ID {
	return s.fingerprint
}

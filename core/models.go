package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used for cache keys and snapshot fingerprints.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as fixed-width hex.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Column identifies one of the eight dataset columns. The numeric value is the
// column's position in the dataset.
type Column int

const (
	ColumnID Column = iota
	ColumnName
	ColumnRegion
	ColumnLocality
	ColumnCategory
	ColumnStartDate
	ColumnEndDate
	ColumnLink
)

// ColumnCount is the number of columns every dataset row must carry.
const ColumnCount = 8

// Columns lists every column in dataset order.
var Columns = []Column{
	ColumnID,
	ColumnName,
	ColumnRegion,
	ColumnLocality,
	ColumnCategory,
	ColumnStartDate,
	ColumnEndDate,
	ColumnLink,
}

// FilterColumns lists the filterable columns in matching priority order.
var FilterColumns = []Column{
	ColumnLocality,
	ColumnRegion,
	ColumnCategory,
	ColumnStartDate,
	ColumnEndDate,
}

var columnNames = [ColumnCount]string{
	"id",
	"name",
	"region",
	"locality",
	"category",
	"start_date",
	"end_date",
	"link",
}

// String returns the column's canonical name.
func (c Column) String() string {
	if !c.Valid() {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnNames[c]
}

// Valid reports whether c is one of the eight known columns.
func (c Column) Valid() bool {
	return c >= ColumnID && c <= ColumnLink
}

// Filterable reports whether c participates in attribute filtering.
func (c Column) Filterable() bool {
	for _, fc := range FilterColumns {
		if fc == c {
			return true
		}
	}
	return false
}

// ParseColumn resolves a canonical column name (as produced by String).
func ParseColumn(name string) (Column, error) {
	name = Normalize(name)
	for i, n := range columnNames {
		if n == name {
			return Column(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Record is one tender listing. All fields are present after loading; an
// absent value is the empty string.
type Record struct {
	ID        string
	Name      string
	Region    string
	Locality  string
	Category  string
	StartDate string
	EndDate   string
	Link      string
}

// RecordFromCells builds a Record from cells in dataset column order. Missing
// trailing cells become empty strings and extra cells are ignored; width
// checking belongs to the loader.
func RecordFromCells(cells []string) Record {
	var r Record
	for _, c := range Columns {
		if int(c) < len(cells) {
			r.Set(c, cells[c])
		}
	}
	return r
}

// Field returns the value stored for column c.
func (r Record) Field(c Column) string {
	switch c {
	case ColumnID:
		return r.ID
	case ColumnName:
		return r.Name
	case ColumnRegion:
		return r.Region
	case ColumnLocality:
		return r.Locality
	case ColumnCategory:
		return r.Category
	case ColumnStartDate:
		return r.StartDate
	case ColumnEndDate:
		return r.EndDate
	case ColumnLink:
		return r.Link
	}
	return ""
}

// Set assigns the value for column c. Unknown columns are ignored.
func (r *Record) Set(c Column, v string) {
	switch c {
	case ColumnID:
		r.ID = v
	case ColumnName:
		r.Name = v
	case ColumnRegion:
		r.Region = v
	case ColumnLocality:
		r.Locality = v
	case ColumnCategory:
		r.Category = v
	case ColumnStartDate:
		r.StartDate = v
	case ColumnEndDate:
		r.EndDate = v
	case ColumnLink:
		r.Link = v
	}
}

// Fields returns all values in dataset column order.
func (r Record) Fields() []string {
	out := make([]string, ColumnCount)
	for _, c := range Columns {
		out[c] = r.Field(c)
	}
	return out
}

// IsEmpty reports whether every field is blank.
func (r Record) IsEmpty() bool {
	for _, c := range Columns {
		if r.Field(c) != "" {
			return false
		}
	}
	return true
}

// Role identifies the author of a conversation turn.
type Role int

const (
	// RoleUser is a question typed by the person using the session.
	RoleUser Role = iota + 1
	// RoleAssistant is a rendered answer.
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	}
	return "unknown"
}

// Turn is a single entry in a session's conversation log.
type Turn struct {
	Role Role
	Text string
	At   time.Time
}

// Mode tags which retrieval path produced a result.
type Mode int

const (
	// ModeNone means there was no data to search.
	ModeNone Mode = iota
	// ModeStructured means at least one attribute filter was recognized.
	ModeStructured
	// ModeSemantic means the answer comes from nearest-neighbor retrieval.
	ModeSemantic
	// ModeUnavailable means semantic retrieval was needed but the query
	// could not be embedded.
	ModeUnavailable
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeStructured:
		return "structured"
	case ModeSemantic:
		return "semantic"
	case ModeUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Snippet is one record retrieved by semantic search.
type Snippet struct {
	Position int     // index of the record in its snapshot
	Record   Record
	Text     string  // flattened text that was embedded
	Distance float32 // squared euclidean distance to the query
}

// RetrievalResult is what the router hands to the answer synthesizer.
type RetrievalResult struct {
	Mode     Mode
	Rows     []Record // structured mode only, in snapshot order
	Matched  []Column // structured mode only, in priority order
	Snippets []Snippet
}

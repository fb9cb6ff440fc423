package xlsx

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrPathRequired is returned when New is called without a path.
	ErrPathRequired = errors.New("xlsx path required")

	// ErrSheetNotFound is returned when the configured sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Source reads one worksheet of an Excel workbook.
type Source struct {
	path  string
	sheet string
}

// Option configures a Source.
type Option func(*Source) error

// WithSheet selects the worksheet by name. Empty selects the first sheet.
func WithSheet(name string) Option {
	return func(s *Source) error {
		s.sheet = name
		return nil
	}
}

// New creates a source for the workbook at path.
func New(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	s := &Source{path: path}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Fetch reads every row of the sheet. Excel drops trailing empty cells, so
// rows are padded to the width of the widest row.
func (s *Source) Fetch(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	sheet := s.sheet
	switch {
	case sheet == "" && len(sheets) > 0:
		sheet = sheets[0]
	case !slices.Contains(sheets, sheet):
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, s.path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i, row := range rows {
		if len(row) < width {
			rows[i] = append(row, make([]string, width-len(row))...)
		}
	}
	return rows, nil
}

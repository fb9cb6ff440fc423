// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/tenderqa/source/csv"
	"github.com/poiesic/tenderqa/source/sqlite"
	"github.com/poiesic/tenderqa/source/xlsx"
)

// Source delivers the raw rows of a tabular dataset. A header row, when the
// dataset has one, is returned as the first row.
type Source interface {
	Fetch(ctx context.Context) ([][]string, error)
}

// Kind names a dataset format.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindXLSX   Kind = "xlsx"
	KindSQLite Kind = "sqlite"
)

// Config describes where the dataset lives.
type Config struct {
	// Kind selects the adapter. Empty means DetectKind(Location).
	Kind Kind
	// Location is a file path, or an http(s) URL for CSV.
	Location string
	// Sheet is the XLSX worksheet to read. Empty means the first sheet.
	Sheet string
	// Table is the SQLite table to read. Empty means "tenders".
	Table string
	// Timeout bounds a single HTTP fetch. Zero means no timeout.
	Timeout time.Duration
	// MaxAttempts is how many times a failed fetch is tried. Values below 1
	// mean a single attempt.
	MaxAttempts int
	// RetryDelay is the delay before the first retry; it doubles each time.
	RetryDelay time.Duration
}

// DetectKind guesses the format from a location's extension. URLs and
// unknown extensions are treated as CSV.
func DetectKind(location string) Kind {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return KindCSV
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".xlsx", ".xlsm":
		return KindXLSX
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite
	}
	return KindCSV
}

// Open creates the adapter described by cfg, wrapped with retries when
// cfg.MaxAttempts is greater than one.
func Open(cfg Config) (Source, error) {
	if cfg.Location == "" {
		return nil, ErrLocationRequired
	}
	kind := cfg.Kind
	if kind == "" {
		kind = DetectKind(cfg.Location)
	}

	var (
		src Source
		err error
	)
	switch kind {
	case KindCSV:
		src, err = csv.New(cfg.Location, csv.WithTimeout(cfg.Timeout))
	case KindXLSX:
		src, err = xlsx.New(cfg.Location, xlsx.WithSheet(cfg.Sheet))
	case KindSQLite:
		src, err = sqlite.New(cfg.Location, sqlite.WithTable(cfg.Table))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxAttempts > 1 {
		return WithRetry(src, cfg.MaxAttempts, cfg.RetryDelay), nil
	}
	return src, nil
}

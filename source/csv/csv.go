package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrLocationRequired is returned when New is called without a location.
	ErrLocationRequired = errors.New("csv location required")

	// ErrUnexpectedStatus is returned when an HTTP fetch does not return 2xx.
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

// Source reads a CSV dataset from a local file or an http(s) URL.
type Source struct {
	location string
	client   *http.Client
	timeout  time.Duration
	comma    rune
}

// Option configures a Source.
type Option func(*Source) error

// WithHTTPClient sets the client used for URL locations.
// Default is http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) error {
		if client != nil {
			s.client = client
		}
		return nil
	}
}

// WithTimeout bounds each fetch of a URL location. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Source) error {
		s.timeout = timeout
		return nil
	}
}

// WithComma sets the field delimiter. Default ','.
func WithComma(comma rune) Option {
	return func(s *Source) error {
		s.comma = comma
		return nil
	}
}

// New creates a CSV source for location.
func New(location string, opts ...Option) (*Source, error) {
	if strings.TrimSpace(location) == "" {
		return nil, ErrLocationRequired
	}
	s := &Source{
		location: location,
		client:   http.DefaultClient,
		comma:    ',',
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Fetch reads every row. Rows may differ in width; the record store reports
// rows that do not fit the schema.
func (s *Source) Fetch(ctx context.Context) ([][]string, error) {
	body, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	// Spreadsheet exports often start with a UTF-8 byte order mark.
	r := csv.NewReader(transform.NewReader(body, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	r.Comma = s.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.location, err)
	}
	return rows, nil
}

func (s *Source) open(ctx context.Context) (io.ReadCloser, error) {
	if !isURL(s.location) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.Open(s.location)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		// The body must be read before the deadline is released.
		return s.get(ctx, cancel)
	}
	return s.get(ctx, func() {})
}

func (s *Source) get(ctx context.Context, cancel context.CancelFunc) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s from %s", ErrUnexpectedStatus, resp.Status, s.location)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/source"
)

// ErrInvalid is returned when a loaded file fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as a string ("60s", "5m") in TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// File is the on-disk configuration.
type File struct {
	Source SourceSection `toml:"source"`
	AI     AISection     `toml:"ai"`
	Engine EngineSection `toml:"engine"`
	Cache  CacheSection  `toml:"cache"`
	Server ServerSection `toml:"server"`
}

// SourceSection locates the dataset.
type SourceSection struct {
	Kind        string   `toml:"kind"`
	Location    string   `toml:"location"`
	Header      string   `toml:"header"`
	Sheet       string   `toml:"sheet"`
	Table       string   `toml:"table"`
	Timeout     Duration `toml:"timeout"`
	MaxAttempts int      `toml:"max_attempts"`
	RetryDelay  Duration `toml:"retry_delay"`
}

// AISection configures the embedding and generation endpoints.
type AISection struct {
	Host           string  `toml:"host"`
	EmbeddingHost  string  `toml:"embedding_host"`
	GeneratorHost  string  `toml:"generator_host"`
	EmbeddingModel string  `toml:"embedding_model"`
	GeneratorModel string  `toml:"generator_model"`
	APIToken       string  `toml:"api_token"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
}

// EngineSection tunes retrieval and index building.
type EngineSection struct {
	TopK          int      `toml:"top_k"`
	TTL           Duration `toml:"ttl"`
	KeywordAssist bool     `toml:"keyword_assist"`
	PoolSize      int      `toml:"pool_size"`
	BatchSize     int      `toml:"batch_size"`
}

// CacheSection configures the embedding cache. An empty Dir keeps the cache
// in memory.
type CacheSection struct {
	Dir      string   `toml:"dir"`
	EntryTTL Duration `toml:"entry_ttl"`
}

// ServerSection configures the HTTP API.
type ServerSection struct {
	Addr        string   `toml:"addr"`
	SessionIdle Duration `toml:"session_idle"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	aiDefaults := ai.DefaultConfig()
	return &File{
		Source: SourceSection{
			Timeout:     Duration(30 * time.Second),
			MaxAttempts: 3,
			RetryDelay:  Duration(500 * time.Millisecond),
		},
		AI: AISection{
			Host:           aiDefaults.EmbeddingHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			GeneratorModel: aiDefaults.GeneratorModel,
			APIToken:       aiDefaults.APIToken,
			MaxTokens:      aiDefaults.MaxTokens,
			Temperature:    aiDefaults.Temperature,
		},
		Engine: EngineSection{
			TopK:      3,
			TTL:       Duration(60 * time.Second),
			BatchSize: 32,
		},
		Server: ServerSection{
			Addr:        ":8080",
			SessionIdle: Duration(30 * time.Minute),
		},
	}
}

// Load reads path over the defaults. Keys not present in the file keep their
// default values; unknown keys are an error.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads TOML from r over the defaults and validates the result.
func Decode(r io.Reader) (*File, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *File) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Validate checks values that have no sensible fallback.
func (f *File) Validate() error {
	var errs []error
	if f.Source.Kind != "" {
		switch source.Kind(f.Source.Kind) {
		case source.KindCSV, source.KindXLSX, source.KindSQLite:
		default:
			errs = append(errs, fmt.Errorf("source.kind %q is not csv, xlsx or sqlite", f.Source.Kind))
		}
	}
	if _, err := f.HeaderMode(); err != nil {
		errs = append(errs, err)
	}
	if f.Engine.TopK < 1 {
		errs = append(errs, fmt.Errorf("engine.top_k must be at least 1, got %d", f.Engine.TopK))
	}
	if f.Engine.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("engine.batch_size must be at least 1, got %d", f.Engine.BatchSize))
	}
	if f.Engine.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("engine.pool_size must not be negative, got %d", f.Engine.PoolSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// HeaderMode parses source.header: "auto" (or empty), "present" or "absent".
func (f *File) HeaderMode() (records.HeaderMode, error) {
	switch f.Source.Header {
	case "", "auto":
		return records.HeaderAuto, nil
	case "present":
		return records.HeaderPresent, nil
	case "absent":
		return records.HeaderAbsent, nil
	}
	return records.HeaderAuto, fmt.Errorf("source.header %q is not auto, present or absent", f.Source.Header)
}

// SourceConfig converts the [source] table.
func (f *File) SourceConfig() source.Config {
	return source.Config{
		Kind:        source.Kind(f.Source.Kind),
		Location:    f.Source.Location,
		Sheet:       f.Source.Sheet,
		Table:       f.Source.Table,
		Timeout:     time.Duration(f.Source.Timeout),
		MaxAttempts: f.Source.MaxAttempts,
		RetryDelay:  time.Duration(f.Source.RetryDelay),
	}
}

// AIConfig converts the [ai] table into a normalized ai.Config. Host applies
// to both endpoints; embedding_host and generator_host override it.
func (f *File) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(f.AI.Host),
		ai.WithEmbeddingModel(f.AI.EmbeddingModel),
		ai.WithGeneratorModel(f.AI.GeneratorModel),
		ai.WithAPIToken(f.AI.APIToken),
		ai.WithMaxTokens(f.AI.MaxTokens),
		ai.WithTemperature(f.AI.Temperature),
	}
	if f.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(f.AI.EmbeddingHost))
	}
	if f.AI.GeneratorHost != "" {
		opts = append(opts, ai.WithGeneratorHost(f.AI.GeneratorHost))
	}
	cfg := ai.NewConfig(opts...)
	cfg.Normalize()
	return cfg
}

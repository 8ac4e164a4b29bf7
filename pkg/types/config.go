// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Config is the full papertrail configuration. Viper fills it from
// defaults, the optional config file, environment, and flags.
type Config struct {
	Feed       FeedConfig       `mapstructure:"feed" yaml:"feed"`
	HTTP       HTTPConfig       `mapstructure:"http" yaml:"http"`
	Harvest    HarvestConfig    `mapstructure:"harvest" yaml:"harvest"`
	PDF        PDFConfig        `mapstructure:"pdf" yaml:"pdf"`
	References ReferencesConfig `mapstructure:"references" yaml:"references"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

// FeedConfig selects the remote feed and how it is paged.
type FeedConfig struct {
	// BaseURL is the query endpoint (default "https://export.arxiv.org/api/query").
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Category is the subject category to harvest (default "cs.LG").
	Category string `mapstructure:"category" yaml:"category"`

	// PageSize is both the max_results of each request and the cursor step (default 1000).
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// CallsPerSecond bounds the rate of every outbound request (default 1).
	CallsPerSecond float64 `mapstructure:"calls_per_second" yaml:"calls_per_second"`
}

// HTTPConfig holds shared HTTP settings used by every network caller.
type HTTPConfig struct {
	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429 and 503 responses (default 5).
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt (default 10s).
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
}

// EntryErrorPolicy decides what a page does when one entry fails to parse.
type EntryErrorPolicy string

const (
	// OnEntryErrorAbort fails the page with the first entry error.
	OnEntryErrorAbort EntryErrorPolicy = "abort"
	// OnEntryErrorSkip logs and drops the failing entry.
	OnEntryErrorSkip EntryErrorPolicy = "skip"
)

// HarvestConfig controls the harvest runner.
type HarvestConfig struct {
	// FlushThreshold is the batch size that triggers a commit (default 1000).
	FlushThreshold int `mapstructure:"flush_threshold" yaml:"flush_threshold"`

	// Enrich downloads each PDF and extracts its references (default true).
	Enrich bool `mapstructure:"enrich" yaml:"enrich"`

	// OnEntryError is the per-entry failure policy (default abort).
	OnEntryError EntryErrorPolicy `mapstructure:"on_entry_error" yaml:"on_entry_error"`

	// StartCursor is used when no checkpoint exists yet (default 0).
	StartCursor int64 `mapstructure:"start_cursor" yaml:"start_cursor"`
}

// ExtractorBackend identifies the PDF text extraction tool.
type ExtractorBackend string

const (
	ExtractorNative    ExtractorBackend = "native"
	ExtractorPdftotext ExtractorBackend = "pdftotext"
	ExtractorContainer ExtractorBackend = "container"
)

// PDFConfig holds settings for PDF download and text extraction.
type PDFConfig struct {
	// Extractor selects the text backend: native, pdftotext, or container.
	Extractor ExtractorBackend `mapstructure:"extractor" yaml:"extractor"`

	// ScratchDir holds temporary downloads (default os.TempDir()).
	ScratchDir string `mapstructure:"scratch_dir" yaml:"scratch_dir"`

	// MaxBytes caps a single download (default 64 MiB).
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`

	// ContainerImage is the image used by the container extractor.
	ContainerImage string `mapstructure:"container_image" yaml:"container_image"`
}

// ReferencesConfig lists the patterns used to find cited identifiers.
type ReferencesConfig struct {
	Patterns []string `mapstructure:"patterns" yaml:"patterns"`
}

// StoreDriver identifies the persistence backend.
type StoreDriver string

const (
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
)

// StoreConfig selects where records and checkpoints are written.
type StoreConfig struct {
	Driver StoreDriver `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file (default "./papers.db").
	Path string `mapstructure:"path" yaml:"path"`

	// DSN is the Postgres connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development" yaml:"development"`
	Level       string `mapstructure:"level" yaml:"level"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

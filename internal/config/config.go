// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads papertrail settings from defaults, an optional YAML
// file, PAPERTRAIL_* environment variables, and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/papertrail/internal/feed"
	"github.com/pdiddy/papertrail/internal/harvest"
	"github.com/pdiddy/papertrail/internal/pdf"
	"github.com/pdiddy/papertrail/internal/pdftext"
	"github.com/pdiddy/papertrail/internal/references"
	"github.com/pdiddy/papertrail/internal/store/sqlite"
	"github.com/pdiddy/papertrail/pkg/types"
)

// EnvPrefix prefixes every environment override, e.g. PAPERTRAIL_FEED_CATEGORY.
const EnvPrefix = "PAPERTRAIL"

// DefaultUserAgent identifies the harvester to the feed operator.
const DefaultUserAgent = "papertrail/0.1 (+https://github.com/pdiddy/papertrail)"

// New returns a viper instance with defaults and environment binding. When
// path is empty the file is looked up as ./papertrail.yaml and then
// ~/.config/papertrail/papertrail.yaml; a missing file is not an error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("papertrail")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "papertrail"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Load builds a Config from disk and environment.
func Load(path string) (types.Config, error) {
	v, err := New(path)
	if err != nil {
		return types.Config{}, err
	}
	return Decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.base_url", feed.DefaultBaseURL)
	v.SetDefault("feed.category", "cs.LG")
	v.SetDefault("feed.page_size", feed.DefaultPageSize)
	v.SetDefault("feed.calls_per_second", 1.0)
	v.SetDefault("http.timeout", 60*time.Second)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.retry_base_delay", 10*time.Second)
	v.SetDefault("harvest.flush_threshold", harvest.DefaultFlushThreshold)
	v.SetDefault("harvest.enrich", true)
	v.SetDefault("harvest.on_entry_error", string(types.OnEntryErrorAbort))
	v.SetDefault("harvest.start_cursor", 0)
	v.SetDefault("pdf.extractor", string(types.ExtractorNative))
	v.SetDefault("pdf.scratch_dir", "")
	v.SetDefault("pdf.max_bytes", pdf.DefaultMaxBytes)
	v.SetDefault("pdf.container_image", pdftext.DefaultContainerImage)
	v.SetDefault("references.patterns", references.DefaultPatterns)
	v.SetDefault("store.driver", string(types.StoreSQLite))
	v.SetDefault("store.path", sqlite.DefaultPath)
	v.SetDefault("store.dsn", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func Validate(c types.Config) error {
	if c.Feed.Category == "" {
		return fmt.Errorf("feed.category is required")
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.page_size must be > 0")
	}
	if c.Feed.CallsPerSecond < 0 {
		return fmt.Errorf("feed.calls_per_second must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Harvest.FlushThreshold <= 0 {
		return fmt.Errorf("harvest.flush_threshold must be > 0")
	}
	if c.Harvest.StartCursor < 0 {
		return fmt.Errorf("harvest.start_cursor must be >= 0")
	}
	switch c.Harvest.OnEntryError {
	case types.OnEntryErrorAbort, types.OnEntryErrorSkip:
	default:
		return fmt.Errorf("harvest.on_entry_error must be abort or skip, got %q", c.Harvest.OnEntryError)
	}
	switch c.PDF.Extractor {
	case types.ExtractorNative, types.ExtractorPdftotext, types.ExtractorContainer:
	default:
		return fmt.Errorf("pdf.extractor must be native, pdftotext, or container, got %q", c.PDF.Extractor)
	}
	if len(c.References.Patterns) == 0 {
		return fmt.Errorf("references.patterns must not be empty")
	}
	switch c.Store.Driver {
	case types.StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case types.StorePostgres:
		// The DSN may still arrive from the secrets directory.
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	return nil
}

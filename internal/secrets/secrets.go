// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// The filename is the key and the trimmed contents are the value.
//
// Recognised keys are postgres-dsn and contact-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/pkg/types"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

const (
	// KeyPostgresDSN supplies store.dsn when the config leaves it empty.
	KeyPostgresDSN = "postgres-dsn"

	// KeyContactEmail is appended to the User-Agent so the feed operator
	// can reach whoever runs the harvester.
	KeyContactEmail = "contact-email"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory yields an empty map. Unreadable files are
// logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping unreadable secret", zap.String("key", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Apply fills cfg from loaded secrets. Values already present in cfg win
// over the secret files.
func Apply(cfg *types.Config, secrets map[string]string) {
	if dsn, ok := secrets[KeyPostgresDSN]; ok && cfg.Store.DSN == "" {
		cfg.Store.DSN = dsn
	}
	if email, ok := secrets[KeyContactEmail]; ok && !strings.Contains(cfg.HTTP.UserAgent, "mailto:") {
		cfg.HTTP.UserAgent = fmt.Sprintf("%s (mailto:%s)", cfg.HTTP.UserAgent, email)
	}
}

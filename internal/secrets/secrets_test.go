// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papertrail/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyPostgresDSN, "  postgres://harvest@localhost/papers  \n")
				writeFile(t, dir, KeyContactEmail, "ops@example.com\n")
				return dir
			},
			want: map[string]string{
				KeyPostgresDSN:  "postgres://harvest@localhost/papers",
				KeyContactEmail: "ops@example.com",
			},
		},
		{
			name: "nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyContactEmail, "ops@example.com")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{KeyContactEmail: "ops@example.com"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, KeyPostgresDSN, "postgres://x")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{KeyPostgresDSN: "postgres://x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	assert.NotContains(t, got, "bad-key")
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		secrets map[string]string
		wantDSN string
		wantUA  string
	}{
		{
			name:    "fills empty dsn and appends contact",
			cfg:     types.Config{HTTP: types.HTTPConfig{UserAgent: "papertrail/1.0"}},
			secrets: map[string]string{KeyPostgresDSN: "postgres://x", KeyContactEmail: "ops@example.com"},
			wantDSN: "postgres://x",
			wantUA:  "papertrail/1.0 (mailto:ops@example.com)",
		},
		{
			name: "configured dsn wins",
			cfg: types.Config{
				Store: types.StoreConfig{DSN: "postgres://configured"},
				HTTP:  types.HTTPConfig{UserAgent: "papertrail/1.0 (mailto:me@example.com)"},
			},
			secrets: map[string]string{KeyPostgresDSN: "postgres://x", KeyContactEmail: "ops@example.com"},
			wantDSN: "postgres://configured",
			wantUA:  "papertrail/1.0 (mailto:me@example.com)",
		},
		{
			name:   "no secrets",
			cfg:    types.Config{HTTP: types.HTTPConfig{UserAgent: "papertrail/1.0"}},
			wantUA: "papertrail/1.0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			Apply(&cfg, tt.secrets)
			assert.Equal(t, tt.wantDSN, cfg.Store.DSN)
			assert.Equal(t, tt.wantUA, cfg.HTTP.UserAgent)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCommandsAgainstEmptyStore(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	configPath := filepath.Join(dir, "papertrail.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  path: "+filepath.Join(dir, "papers.db")+"\n"), 0o600))

	out := execute(t, "version", "--config", configPath)
	assert.Contains(t, out, "papertrail dev")

	out = execute(t, "status", "--config", configPath)
	assert.Contains(t, out, "Papers stored: 0")
	assert.Contains(t, out, "No checkpoints yet.")

	exportDir := filepath.Join(dir, "out")
	out = execute(t, "export", "--config", configPath, "--out", exportDir, "--format", "json")
	assert.Contains(t, out, "Exported 0 papers")
	assert.FileExists(t, filepath.Join(exportDir, "papers.json"))
	assert.Equal(t, filepath.Join(dir, "papers.db"), cfg.Store.Path)
}

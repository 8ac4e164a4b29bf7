// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const binPdftotext = "pdftotext"

// commandRunner runs a command and returns its stdout; tests replace it.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Pdftotext shells out to the poppler pdftotext binary.
type Pdftotext struct {
	bin string
	run commandRunner
}

// NewPdftotext returns an extractor backed by pdftotext on PATH.
func NewPdftotext() (*Pdftotext, error) {
	bin, err := exec.LookPath(binPdftotext)
	if err != nil {
		return nil, fmt.Errorf("pdftotext not found on PATH: %w", err)
	}
	return &Pdftotext{bin: bin, run: runCommand}, nil
}

// ExtractText runs "pdftotext <path> -" and returns stdout.
func (p *Pdftotext) ExtractText(ctx context.Context, path string) (string, error) {
	out, err := p.run(ctx, p.bin, path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}
	return string(out), nil
}

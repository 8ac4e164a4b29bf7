// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Native extracts text in-process with github.com/ledongthuc/pdf.
type Native struct{}

// NewNative returns the in-process extractor.
func NewNative() *Native { return &Native{} }

// ExtractText parses the PDF and concatenates the plain text of every page.
// The parser panics on some malformed inputs; those panics become errors.
func (n *Native) ExtractText(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading text of %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading text of %s: %w", path, err)
	}
	return buf.String(), nil
}

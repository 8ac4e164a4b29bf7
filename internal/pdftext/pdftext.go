// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext turns a PDF file into plain text with pluggable backends.
package pdftext

import (
	"context"
	"fmt"

	"github.com/pdiddy/papertrail/internal/container"
	"github.com/pdiddy/papertrail/pkg/types"
)

// DefaultContainerImage is the image used by the container backend when
// none is configured. It must read a PDF on stdin and print text.
const DefaultContainerImage = "papertrail/pdftotext:latest"

// Extractor reads a PDF at path and returns its text. Different backends
// (in-process parser, pdftotext, container) implement this interface.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// New returns the Extractor selected by cfg.Extractor. The container
// backend probes for docker or podman and the configured image.
func New(ctx context.Context, cfg types.PDFConfig) (Extractor, error) {
	switch cfg.Extractor {
	case "", types.ExtractorNative:
		return NewNative(), nil
	case types.ExtractorPdftotext:
		return NewPdftotext()
	case types.ExtractorContainer:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		image := cfg.ContainerImage
		if image == "" {
			image = DefaultContainerImage
		}
		return NewContainer(ctx, rt, image)
	default:
		return nil, fmt.Errorf("unknown pdf extractor %q (want native, pdftotext, or container)", cfg.Extractor)
	}
}

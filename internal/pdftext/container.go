// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/papertrail/internal/container"
)

// Container extracts text by piping the PDF through a container image.
// The image receives "- -" as arguments, which pdftotext reads as
// stdin-to-stdout.
type Container struct {
	runtime container.Runtime
	image   string
}

// NewContainer verifies that image exists in rt before returning.
func NewContainer(ctx context.Context, rt container.Runtime, image string) (*Container, error) {
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("text extraction image not available in %s: %w", rt.Name(), err)
	}
	return &Container{runtime: rt, image: image}, nil
}

// ExtractText streams the PDF at path into the container and returns its
// output.
func (c *Container) ExtractText(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := c.runtime.Run(ctx, c.image, []string{"-", "-"}, f, &out); err != nil {
		return "", fmt.Errorf("extracting %s with %s: %w", path, c.image, err)
	}
	return out.String(), nil
}

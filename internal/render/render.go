// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns a final markdown report into a PDF.
//
// See docs/ARCHITECTURE.md § Rendering.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/marketing-research/internal/container"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// DefaultImage is a pandoc image whose entrypoint is pandoc.
const DefaultImage = "pandoc/latex:3.6"

// pandocArgs read markdown on stdin and write a PDF to stdout.
var pandocArgs = []string{"-f", "markdown", "-t", "pdf", "-o", "-"}

var pdfMagic = []byte("%PDF")

// Renderer converts markdown to a PDF document.
type Renderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

// ContainerRenderer renders by piping markdown through a pandoc container.
type ContainerRenderer struct {
	runtime container.Runtime
	image   string
	timeout time.Duration
}

// NewContainerRenderer returns a renderer using rt. It checks that the
// configured image exists locally before returning.
func NewContainerRenderer(ctx context.Context, rt container.Runtime, cfg types.RenderConfig) (*ContainerRenderer, error) {
	image := cfg.Image
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("render image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerRenderer{runtime: rt, image: image, timeout: cfg.Timeout}, nil
}

// Render implements Renderer.
func (r *ContainerRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("nothing to render")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var out bytes.Buffer
	if err := r.runtime.Run(ctx, r.image, pandocArgs, strings.NewReader(markdown), &out); err != nil {
		return nil, fmt.Errorf("rendering with %s: %w", r.image, err)
	}
	if !bytes.HasPrefix(out.Bytes(), pdfMagic) {
		return nil, fmt.Errorf("%s produced no PDF (%d bytes)", r.image, out.Len())
	}
	return out.Bytes(), nil
}

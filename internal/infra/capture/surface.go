// Package capture turns a rendered pdf-intent document into a single-page
// A4 PDF: mount the HTML on an off-screen surface, rasterize the document
// root, downsample and embed the bitmap with gofpdf.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"stayregister/internal/app/document"
)

type Stage string

const (
	StageSurface   Stage = "surface"
	StageRoot      Stage = "root"
	StageRasterize Stage = "rasterize"
	StageEncode    Stage = "encode"
)

var (
	ErrSurfaceUnavailable  = errors.New("capture: surface unavailable")
	ErrDocumentRootMissing = errors.New("capture: document root missing")
	ErrRasterize           = errors.New("capture: rasterization failed")
)

// RenderPipelineError reports the stage at which an export failed.
type RenderPipelineError struct {
	Stage Stage
	Err   error
}

func (e *RenderPipelineError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Stage, e.Err)
}

func (e *RenderPipelineError) Unwrap() error { return e.Err }

// Handle is one mounted document.
type Handle interface {
	// Loaded is closed once the mounted document has finished loading.
	Loaded() <-chan struct{}
	// HasRoot reports whether the document root element was found.
	HasRoot() bool
}

// Surface hosts documents off-screen. Every successful Mount must be paired
// with a Teardown.
type Surface interface {
	Mount(ctx context.Context, doc document.Document) (Handle, error)
	Rasterize(ctx context.Context, h Handle, scale int) (image.Image, error)
	Teardown(h Handle)
}

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayregister/internal/app/document"
)

const (
	SupersampleFactor  = 2
	DefaultLoadTimeout = 2 * time.Second
)

// Pipeline captures documents into PDF bytes. It is safe for concurrent use
// when its Surface is.
type Pipeline struct {
	Surface     Surface
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

func (p *Pipeline) Capture(ctx context.Context, doc document.Document) ([]byte, error) {
	if p == nil || p.Surface == nil {
		return nil, &RenderPipelineError{Stage: StageSurface, Err: ErrSurfaceUnavailable}
	}
	handle, err := p.Surface.Mount(ctx, doc)
	if err != nil {
		return nil, &RenderPipelineError{Stage: StageSurface, Err: fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)}
	}
	defer p.Surface.Teardown(handle)

	if err := p.awaitLoad(ctx, handle); err != nil {
		return nil, &RenderPipelineError{Stage: StageSurface, Err: err}
	}
	if !handle.HasRoot() {
		return nil, &RenderPipelineError{Stage: StageRoot, Err: ErrDocumentRootMissing}
	}

	bitmap, err := p.Surface.Rasterize(ctx, handle, SupersampleFactor)
	if err != nil {
		return nil, &RenderPipelineError{Stage: StageRasterize, Err: fmt.Errorf("%w: %w", ErrRasterize, err)}
	}
	pdf, err := EncodePDF(bitmap)
	if err != nil {
		return nil, &RenderPipelineError{Stage: StageEncode, Err: err}
	}
	if p.Logger != nil {
		p.Logger.DebugContext(ctx, "document captured", "title", doc.Title, "bytes", len(pdf))
	}
	return pdf, nil
}

// awaitLoad waits for the handle to report loaded, up to LoadTimeout. A slow
// load is not an error: capture proceeds with whatever is mounted.
func (p *Pipeline) awaitLoad(ctx context.Context, h Handle) error {
	timeout := p.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.Loaded():
		return nil
	case <-timer.C:
		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "document load wait timed out, capturing anyway", "timeout", timeout)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

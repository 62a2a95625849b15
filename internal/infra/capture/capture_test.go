package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"stayregister/internal/app/document"
	"stayregister/internal/domain/calendar"
	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

type fakeHandle struct {
	loaded chan struct{}
	root   bool
}

func (h *fakeHandle) Loaded() <-chan struct{} { return h.loaded }
func (h *fakeHandle) HasRoot() bool           { return h.root }

type fakeSurface struct {
	handle       *fakeHandle
	mountErr     error
	rasterErr    error
	teardowns    int
	rasterScales []int
}

func (s *fakeSurface) Mount(ctx context.Context, doc document.Document) (Handle, error) {
	if s.mountErr != nil {
		return nil, s.mountErr
	}
	return s.handle, nil
}

func (s *fakeSurface) Rasterize(ctx context.Context, h Handle, scale int) (image.Image, error) {
	s.rasterScales = append(s.rasterScales, scale)
	if s.rasterErr != nil {
		return nil, s.rasterErr
	}
	img := image.NewRGBA(image.Rect(0, 0, 794*scale, 1123*scale))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img, nil
}

func (s *fakeSurface) Teardown(h Handle) { s.teardowns++ }

func loadedHandle(root bool) *fakeHandle {
	h := &fakeHandle{loaded: make(chan struct{}), root: root}
	close(h.loaded)
	return h
}

func TestCaptureProducesSinglePagePDF(t *testing.T) {
	surface := &fakeSurface{handle: loadedHandle(true)}
	p := &Pipeline{Surface: surface}
	pdf, err := p.Capture(context.Background(), document.Document{Intent: document.IntentPDF})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if n := bytes.Count(pdf, []byte("/Type /Page\n")) + bytes.Count(pdf, []byte("/Type /Page ")); n > 1 {
		t.Fatalf("expected one page, found %d", n)
	}
	if surface.teardowns != 1 {
		t.Fatalf("teardown ran %d times", surface.teardowns)
	}
	if len(surface.rasterScales) != 1 || surface.rasterScales[0] != SupersampleFactor {
		t.Fatalf("rasterize scales = %v", surface.rasterScales)
	}
}

func TestCaptureLoadTimeoutProceeds(t *testing.T) {
	surface := &fakeSurface{handle: &fakeHandle{loaded: make(chan struct{}), root: true}}
	p := &Pipeline{Surface: surface, LoadTimeout: 10 * time.Millisecond}
	start := time.Now()
	if _, err := p.Capture(context.Background(), document.Document{}); err != nil {
		t.Fatalf("slow load must not fail: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("load wait skipped")
	}
}

func TestCaptureFailureStages(t *testing.T) {
	cases := []struct {
		name      string
		pipeline  func(*fakeSurface) *Pipeline
		surface   *fakeSurface
		stage     Stage
		sentinel  error
		teardowns int
	}{
		{
			name:     "no surface",
			pipeline: func(*fakeSurface) *Pipeline { return &Pipeline{} },
			surface:  &fakeSurface{},
			stage:    StageSurface,
			sentinel: ErrSurfaceUnavailable,
		},
		{
			name:     "mount fails",
			surface:  &fakeSurface{mountErr: errors.New("boom")},
			stage:    StageSurface,
			sentinel: ErrSurfaceUnavailable,
		},
		{
			name:      "root missing",
			surface:   &fakeSurface{handle: loadedHandle(false)},
			stage:     StageRoot,
			sentinel:  ErrDocumentRootMissing,
			teardowns: 1,
		},
		{
			name:      "rasterize fails",
			surface:   &fakeSurface{handle: loadedHandle(true), rasterErr: errors.New("oom")},
			stage:     StageRasterize,
			sentinel:  ErrRasterize,
			teardowns: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Pipeline{Surface: tc.surface}
			if tc.pipeline != nil {
				p = tc.pipeline(tc.surface)
			}
			_, err := p.Capture(context.Background(), document.Document{})
			var perr *RenderPipelineError
			if !errors.As(err, &perr) {
				t.Fatalf("expected RenderPipelineError, got %v", err)
			}
			if perr.Stage != tc.stage || !errors.Is(err, tc.sentinel) {
				t.Fatalf("stage=%s err=%v", perr.Stage, err)
			}
			if tc.surface.teardowns != tc.teardowns {
				t.Fatalf("teardowns = %d, want %d", tc.surface.teardowns, tc.teardowns)
			}
		})
	}
}

func TestCaptureCancelledWhileLoading(t *testing.T) {
	surface := &fakeSurface{handle: &fakeHandle{loaded: make(chan struct{}), root: true}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Pipeline{Surface: surface, LoadTimeout: time.Second}).Capture(ctx, document.Document{})
	if !errors.Is(err, context.Canceled) || surface.teardowns != 1 {
		t.Fatalf("err=%v teardowns=%d", err, surface.teardowns)
	}
}

func TestFitCentersWithinMargins(t *testing.T) {
	p := Fit(794, 1123)
	if math.Abs(p.W-190) > 0.01 {
		t.Fatalf("width = %.2f, want 190", p.W)
	}
	if p.H > A4HeightMM-2*MarginMM+0.01 {
		t.Fatalf("height %.2f exceeds printable area", p.H)
	}
	if math.Abs(p.Y-(A4HeightMM-p.H)/2) > 0.01 || math.Abs(p.X-MarginMM) > 0.01 {
		t.Fatalf("not centered: %+v", p)
	}
	wide := Fit(2000, 100)
	if math.Abs(wide.W-190) > 0.01 || wide.H >= 10 {
		t.Fatalf("wide fit = %+v", wide)
	}
}

func juneDocument(t *testing.T) document.Document {
	t.Helper()
	in := func(raw string) *time.Time {
		d := daterange.MustParse(raw)
		return &d
	}
	list := []*stays.Stay{
		{ID: 1, GuestName: "Ada", CheckIn: in("2024-06-10"), CheckOut: in("2024-06-15"), NightsCount: 5, PeopleCount: 2},
		{ID: 2, GuestName: "Bea", CheckIn: in("2024-06-15"), CheckOut: in("2024-06-18"), NightsCount: 3, PeopleCount: 1},
	}
	doc, err := document.MustRenderer().Render(document.Input{Year: 2024, Month: time.June, Stays: list}, document.IntentPDF)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return doc
}

func near(a color.RGBA, b calendar.Color) bool {
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) < 8 && d(a.G, b.G) < 8 && d(a.B, b.B) < 8
}

func TestNativeSurfacePaintsTurnoverDiagonal(t *testing.T) {
	surface, err := NewNativeSurface()
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	doc := juneDocument(t)
	ctx := context.Background()
	h, err := surface.Mount(ctx, doc)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer surface.Teardown(h)
	if !h.HasRoot() {
		t.Fatalf("root not found")
	}
	img, err := surface.Rasterize(ctx, h, 1)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if img.Bounds().Dx() != document.PageWidthPx || img.Bounds().Dy() != document.PageHeightPx {
		t.Fatalf("bitmap size %v", img.Bounds())
	}
	rgba := img.(*image.RGBA)

	// June 2024 starts on a Saturday: the grid opens on 27 May, so the
	// 15th is cell 19.
	b := cellBox(19, float64(document.PageWidthPx))
	upperLeft := rgba.RGBAAt(int(b.x+b.w*0.2), int(b.y+b.h*0.35))
	lowerRight := rgba.RGBAAt(int(b.x+b.w*0.8), int(b.y+b.h*0.8))
	if !near(upperLeft, calendar.Palette[0]) {
		t.Fatalf("upper-left = %v, want departing %s", upperLeft, calendar.Palette[0].Hex())
	}
	if !near(lowerRight, calendar.Palette[1]) {
		t.Fatalf("lower-right = %v, want arriving %s", lowerRight, calendar.Palette[1].Hex())
	}

	// The 18th is a departure with nobody arriving: blank lower half.
	dep := cellBox(22, float64(document.PageWidthPx))
	if got := rgba.RGBAAt(int(dep.x+dep.w*0.8), int(dep.y+dep.h*0.8)); got != whiteColor {
		t.Fatalf("departure lower half = %v", got)
	}
}

func TestNativeSurfaceMissingRoot(t *testing.T) {
	surface, err := NewNativeSurface()
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	doc := document.Document{HTML: []byte("<html><body><p>nothing</p></body></html>"), Width: 100, Height: 100, RootID: "stay-document"}
	_, err = (&Pipeline{Surface: surface}).Capture(context.Background(), doc)
	if !errors.Is(err, ErrDocumentRootMissing) {
		t.Fatalf("expected missing root, got %v", err)
	}
}

func TestNativeEndToEnd(t *testing.T) {
	surface, err := NewNativeSurface()
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	pdf, err := (&Pipeline{Surface: surface}).Capture(context.Background(), juneDocument(t))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
}

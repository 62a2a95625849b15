package exports

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/document"
	"stayregister/internal/app/dto"
	"stayregister/internal/app/handlers/support"
	domainstays "stayregister/internal/domain/stays"
)

const exportPDFKey = "exports.pdf"

type SaveMode string

const (
	SaveAuto     SaveMode = "auto"
	SaveDownload SaveMode = "download"
)

// ExportPDFCommand renders, captures and persists the monthly document.
type ExportPDFCommand struct {
	OwnerID string                `json:"owner_id" validate:"required"`
	Filter  domainstays.RawFilter `json:"-"`
	Save    SaveMode              `json:"save" validate:"omitempty,oneof=auto download"`
	Now     time.Time             `json:"-"`
}

func (c ExportPDFCommand) Key() string    { return exportPDFKey }
func (c ExportPDFCommand) Owner() string  { return c.OwnerID }
func (c ExportPDFCommand) ReadOnly() bool { return true }

type ExportResult struct {
	Outcome dto.ExportOutcome
	PDF     []byte
}

// Capturer turns a pdf-intent document into PDF bytes.
type Capturer interface {
	Capture(ctx context.Context, doc document.Document) ([]byte, error)
}

type Observer interface {
	ObserveExport(intent, outcome string, elapsed time.Duration)
}

type ExportPDFHandler struct {
	Documents *RenderDocumentHandler
	Capturer  Capturer
	Picker    SavePicker
	Fallback  Fallback
	Observer  Observer
	Logger    *slog.Logger
}

var ErrCaptureUnavailable = errors.New("exports: capture pipeline not configured")

func (h *ExportPDFHandler) Handle(ctx context.Context, cmd ExportPDFCommand) (ExportResult, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		if h.Observer != nil {
			h.Observer.ObserveExport(string(document.IntentPDF), outcome, time.Since(start))
		}
	}()

	if h.Documents == nil || h.Capturer == nil {
		return ExportResult{}, ErrCaptureUnavailable
	}
	doc, name, err := h.Documents.render(ctx, cmd.OwnerID, cmd.Filter, document.IntentPDF, support.Now(cmd.Now))
	if err != nil {
		return ExportResult{}, err
	}
	pdf, err := h.Capturer.Capture(ctx, doc)
	if err != nil {
		return ExportResult{}, err
	}

	picker := h.Picker
	if cmd.Save == SaveDownload {
		picker = nil
	}
	out, err := Persist(ctx, picker, h.Fallback, name, pdf)
	if err != nil {
		outcome = "save_failed"
		return ExportResult{}, err
	}
	outcome = out.Method
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "pdf exported", "owner_id", cmd.OwnerID, "file", name, "method", out.Method, "bytes", len(pdf))
	}
	return ExportResult{
		PDF: pdf,
		Outcome: dto.ExportOutcome{
			Method:   out.Method,
			Location: out.Location,
			Message:  out.Message,
			FileName: name,
			Size:     len(pdf),
		},
	}, nil
}

var _ commands.Handler[ExportPDFCommand, ExportResult] = (*ExportPDFHandler)(nil)

package exports

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"stayregister/internal/app/document"
	staysapp "stayregister/internal/app/handlers/stays"
	"stayregister/internal/app/handlers/support"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/uow"
	"stayregister/internal/domain/apartments"
	domainstays "stayregister/internal/domain/stays"
)

const renderDocumentKey = "exports.document"

// RenderDocumentQuery builds the monthly document for a filter that pins
// both year and month.
type RenderDocumentQuery struct {
	OwnerID string                `json:"owner_id" validate:"required"`
	Filter  domainstays.RawFilter `json:"-"`
	Intent  document.Intent       `json:"intent" validate:"omitempty,oneof=print pdf"`
	Now     time.Time             `json:"-"`
}

func (q RenderDocumentQuery) Key() string   { return renderDocumentKey }
func (q RenderDocumentQuery) Owner() string { return q.OwnerID }

type RenderDocumentHandler struct {
	UoWFactory uow.UoWFactory
	Renderer   *document.Renderer
	MinYear    int
	Logger     *slog.Logger
}

func (h *RenderDocumentHandler) Handle(ctx context.Context, q RenderDocumentQuery) (document.Document, error) {
	intent := q.Intent
	if intent == "" {
		intent = document.IntentPrint
	}
	doc, _, err := h.render(ctx, q.OwnerID, q.Filter, intent, support.Now(q.Now))
	return doc, err
}

func (h *RenderDocumentHandler) render(ctx context.Context, ownerID string, raw domainstays.RawFilter, intent document.Intent, now time.Time) (document.Document, string, error) {
	filter, err := domainstays.ValidateFilter(raw, support.FilterBounds(now, h.MinYear))
	if err != nil {
		return document.Document{}, "", err
	}
	year, month, err := staysapp.RequireMonth(filter)
	if err != nil {
		return document.Document{}, "", err
	}
	if h.Renderer == nil {
		return document.Document{}, "", fmt.Errorf("exports: renderer not configured")
	}

	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return document.Document{}, "", err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, apts, err := support.LoadFiltered(execCtx, unit, ownerID, filter)
	if err != nil {
		return document.Document{}, "", err
	}

	label := ""
	if filter.ApartmentID != nil {
		label = apartments.Label(apts, *filter.ApartmentID, fmt.Sprintf("Apartment %d", *filter.ApartmentID))
	}
	doc, err := h.Renderer.Render(document.Input{Year: year, Month: month, ApartmentLabel: label, Stays: list}, intent)
	if err != nil {
		return document.Document{}, "", err
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "document rendered", "owner_id", ownerID, "intent", intent, "count", doc.Count)
	}
	return doc, FileName(year, month, label), nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// FileName builds "stays-2024-06[-apartment].pdf".
func FileName(year int, month time.Month, apartment string) string {
	name := fmt.Sprintf("stays-%04d-%02d", year, int(month))
	if slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(apartment), "-"), "-"); slug != "" {
		name += "-" + slug
	}
	return name + ".pdf"
}

var _ queries.Handler[RenderDocumentQuery, document.Document] = (*RenderDocumentHandler)(nil)

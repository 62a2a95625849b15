package stays

import (
	"context"
	"time"

	"stayregister/internal/app/dto"
	"stayregister/internal/app/handlers/support"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/uow"
	"stayregister/internal/domain/calendar"
	domainstays "stayregister/internal/domain/stays"
)

const calendarKey = "stays.calendar"

// CalendarQuery paints one month. Year and month are both required.
type CalendarQuery struct {
	OwnerID string                `json:"owner_id" validate:"required"`
	Filter  domainstays.RawFilter `json:"-"`
	Now     time.Time             `json:"-"`
}

func (q CalendarQuery) Key() string   { return calendarKey }
func (q CalendarQuery) Owner() string { return q.OwnerID }

type CalendarHandler struct {
	UoWFactory uow.UoWFactory
	MinYear    int
}

func (h *CalendarHandler) Handle(ctx context.Context, q CalendarQuery) (dto.Calendar, error) {
	filter, err := domainstays.ValidateFilter(q.Filter, support.FilterBounds(support.Now(q.Now), h.MinYear))
	if err != nil {
		return dto.Calendar{}, err
	}
	year, month, err := RequireMonth(filter)
	if err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	list, _, err := support.LoadFiltered(execCtx, unit, q.OwnerID, filter)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(calendar.PaintMonth(list, year, month), list), nil
}

// RequireMonth extracts the pinned year and month of f, reporting the first
// missing one as a validation error.
func RequireMonth(f domainstays.Filter) (int, time.Month, error) {
	if f.Year == nil {
		return 0, 0, &domainstays.ValidationError{Field: "year", Reason: "is required for a month view"}
	}
	if f.Month == nil {
		return 0, 0, &domainstays.ValidationError{Field: "month", Reason: "is required for a month view"}
	}
	return *f.Year, *f.Month, nil
}

var _ queries.Handler[CalendarQuery, dto.Calendar] = (*CalendarHandler)(nil)

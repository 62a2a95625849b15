package stays

import (
	"context"
	"log/slog"
	"time"

	"stayregister/internal/app/dto"
	"stayregister/internal/app/handlers/support"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/uow"
	domainstays "stayregister/internal/domain/stays"
)

const (
	listStaysKey  = "stays.list"
	groupStaysKey = "stays.groups"
)

// ListStaysQuery returns the owner's stays matching Filter, most recent first.
type ListStaysQuery struct {
	OwnerID string                `json:"owner_id" validate:"required"`
	Filter  domainstays.RawFilter `json:"-"`
	Now     time.Time             `json:"-"`
}

func (q ListStaysQuery) Key() string   { return listStaysKey }
func (q ListStaysQuery) Owner() string { return q.OwnerID }

type ListStaysHandler struct {
	UoWFactory uow.UoWFactory
	MinYear    int
	Logger     *slog.Logger
}

func (h *ListStaysHandler) Handle(ctx context.Context, q ListStaysQuery) (dto.StayCollection, error) {
	filter, err := domainstays.ValidateFilter(q.Filter, support.FilterBounds(support.Now(q.Now), h.MinYear))
	if err != nil {
		return dto.StayCollection{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.StayCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	list, _, err := support.LoadFiltered(execCtx, unit, q.OwnerID, filter)
	if err != nil {
		return dto.StayCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "stays listed", "owner_id", q.OwnerID, "count", len(list))
	}
	return dto.StayCollection{Items: dto.MapStays(list), Total: len(list), Filter: dto.MapFilter(filter)}, nil
}

// GroupStaysQuery returns the same result set partitioned into years and
// months.
type GroupStaysQuery struct {
	OwnerID string                `json:"owner_id" validate:"required"`
	Filter  domainstays.RawFilter `json:"-"`
	Now     time.Time             `json:"-"`
}

func (q GroupStaysQuery) Key() string   { return groupStaysKey }
func (q GroupStaysQuery) Owner() string { return q.OwnerID }

type GroupStaysHandler struct {
	UoWFactory uow.UoWFactory
	MinYear    int
}

func (h *GroupStaysHandler) Handle(ctx context.Context, q GroupStaysQuery) (dto.GroupCollection, error) {
	filter, err := domainstays.ValidateFilter(q.Filter, support.FilterBounds(support.Now(q.Now), h.MinYear))
	if err != nil {
		return dto.GroupCollection{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.GroupCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	list, _, err := support.LoadFiltered(execCtx, unit, q.OwnerID, filter)
	if err != nil {
		return dto.GroupCollection{}, err
	}
	return dto.GroupCollection{
		Groups: dto.MapGroups(domainstays.GroupForExport(list, filter)),
		Total:  len(list),
		Filter: dto.MapFilter(filter),
	}, nil
}

var (
	_ queries.Handler[ListStaysQuery, dto.StayCollection]   = (*ListStaysHandler)(nil)
	_ queries.Handler[GroupStaysQuery, dto.GroupCollection] = (*GroupStaysHandler)(nil)
)

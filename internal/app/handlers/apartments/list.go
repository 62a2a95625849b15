package apartments

import (
	"context"

	"stayregister/internal/app/dto"
	"stayregister/internal/app/failures"
	"stayregister/internal/app/handlers/support"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/uow"
	domainapartments "stayregister/internal/domain/apartments"
	domainstays "stayregister/internal/domain/stays"
)

const listApartmentsKey = "apartments.list"

type ListApartmentsQuery struct {
	OwnerID string `json:"owner_id" validate:"required"`
}

func (q ListApartmentsQuery) Key() string   { return listApartmentsKey }
func (q ListApartmentsQuery) Owner() string { return q.OwnerID }

type ListApartmentsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListApartmentsHandler) Handle(ctx context.Context, q ListApartmentsQuery) ([]dto.Apartment, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Apartments().List(execCtx, q.OwnerID)
	if err != nil {
		return nil, failures.Fetch("apartments", err, domainstays.ErrPermissionDenied)
	}
	domainapartments.SortByName(list)
	return dto.MapApartments(list), nil
}

var _ queries.Handler[ListApartmentsQuery, []dto.Apartment] = (*ListApartmentsHandler)(nil)

package stays

import (
	"context"
	"log/slog"
	"time"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/dto"
	"stayregister/internal/app/handlers/support"
	"stayregister/internal/app/middleware"
	"stayregister/internal/app/outbox"
	"stayregister/internal/app/uow"
	domainstays "stayregister/internal/domain/stays"
)

const createStayKey = "stays.create"

type CreateStayCommand struct {
	OwnerID         string    `json:"owner_id" validate:"required"`
	Input           StayInput `json:"input"`
	IdempotencyKeyV string    `json:"-"`
	Now             time.Time `json:"-"`
}

func (c CreateStayCommand) Key() string            { return createStayKey }
func (c CreateStayCommand) Owner() string          { return c.OwnerID }
func (c CreateStayCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CreateStayCommand) ResultPrototype() any   { return &dto.Stay{} }

type CreateStayHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CreateStayHandler) Handle(ctx context.Context, cmd CreateStayCommand) (dto.Stay, error) {
	unit, ctx, managed, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Stay{}, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	params, err := cmd.Input.params(cmd.OwnerID)
	if err != nil {
		return dto.Stay{}, err
	}
	apt, err := lookupApartment(ctx, unit, cmd.OwnerID, params.ApartmentID)
	if err != nil {
		return dto.Stay{}, err
	}
	stay, err := domainstays.NewStay(params, support.Now(cmd.Now))
	if err != nil {
		return dto.Stay{}, err
	}
	stay.ApartmentName = apt.Name
	if err := unit.Stays().Create(ctx, stay); err != nil {
		return dto.Stay{}, err
	}
	stay.MarkRecorded()
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, stay); err != nil {
		return dto.Stay{}, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return dto.Stay{}, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "stay recorded", "stay_id", stay.ID, "apartment_id", stay.ApartmentID, "owner_id", stay.OwnerID)
	}
	return dto.MapStay(stay), nil
}

var (
	_ commands.Handler[CreateStayCommand, dto.Stay] = (*CreateStayHandler)(nil)
	_ middleware.IdempotentCommand                  = CreateStayCommand{}
	_ middleware.OwnedMessage                       = CreateStayCommand{}
)

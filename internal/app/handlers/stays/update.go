package stays

import (
	"context"
	"log/slog"
	"time"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/dto"
	"stayregister/internal/app/handlers/support"
	"stayregister/internal/app/outbox"
	"stayregister/internal/app/uow"
	domainstays "stayregister/internal/domain/stays"
)

const updateStayKey = "stays.update"

type UpdateStayCommand struct {
	OwnerID string    `json:"owner_id" validate:"required"`
	StayID  int64     `json:"stay_id" validate:"gt=0"`
	Input   StayInput `json:"input"`
	// Version is the stay version the client edited.
	Version *int64    `json:"version" validate:"required,gte=0"`
	Now     time.Time `json:"-"`
}

func (c UpdateStayCommand) Key() string   { return updateStayKey }
func (c UpdateStayCommand) Owner() string { return c.OwnerID }

type UpdateStayHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *UpdateStayHandler) Handle(ctx context.Context, cmd UpdateStayCommand) (dto.Stay, error) {
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

	stay, err := unit.Stays().ByID(ctx, cmd.OwnerID, domainstays.StayID(cmd.StayID))
	if err != nil {
		return dto.Stay{}, err
	}
	if cmd.Version != nil && *cmd.Version != stay.Version {
		return dto.Stay{}, domainstays.ErrConflict
	}
	params, err := cmd.Input.params(cmd.OwnerID)
	if err != nil {
		return dto.Stay{}, err
	}
	apt, err := lookupApartment(ctx, unit, cmd.OwnerID, params.ApartmentID)
	if err != nil {
		return dto.Stay{}, err
	}
	if err := stay.Revise(params, support.Now(cmd.Now)); err != nil {
		return dto.Stay{}, err
	}
	stay.ApartmentName = apt.Name
	if err := unit.Stays().Update(ctx, stay); err != nil {
		return dto.Stay{}, err
	}
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
		h.Logger.InfoContext(ctx, "stay revised", "stay_id", stay.ID, "owner_id", stay.OwnerID)
	}
	return dto.MapStay(stay), nil
}

var _ commands.Handler[UpdateStayCommand, dto.Stay] = (*UpdateStayHandler)(nil)

package stays

import (
	"context"
	"log/slog"
	"time"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/handlers/support"
	"stayregister/internal/app/outbox"
	"stayregister/internal/app/uow"
	domainstays "stayregister/internal/domain/stays"
)

const deleteStayKey = "stays.delete"

type DeleteStayCommand struct {
	OwnerID string    `json:"owner_id" validate:"required"`
	StayID  int64     `json:"stay_id" validate:"gt=0"`
	Now     time.Time `json:"-"`
}

func (c DeleteStayCommand) Key() string   { return deleteStayKey }
func (c DeleteStayCommand) Owner() string { return c.OwnerID }

type DeleteStayResult struct {
	ID int64 `json:"id"`
}

type DeleteStayHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *DeleteStayHandler) Handle(ctx context.Context, cmd DeleteStayCommand) (DeleteStayResult, error) {
	unit, ctx, managed, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return DeleteStayResult{}, err
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
		return DeleteStayResult{}, err
	}
	if err := unit.Stays().Delete(ctx, cmd.OwnerID, stay.ID); err != nil {
		return DeleteStayResult{}, err
	}
	stay.MarkRemoved(support.Now(cmd.Now))
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, stay); err != nil {
		return DeleteStayResult{}, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return DeleteStayResult{}, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "stay removed", "stay_id", stay.ID, "owner_id", stay.OwnerID)
	}
	return DeleteStayResult{ID: int64(stay.ID)}, nil
}

var _ commands.Handler[DeleteStayCommand, DeleteStayResult] = (*DeleteStayHandler)(nil)

package stays

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayregister/internal/app/failures"
	"stayregister/internal/app/uow"
	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/shared/daterange"
	domainstays "stayregister/internal/domain/stays"
)

// StayInput is the editable stay payload. Dates accept any format
// daterange.ParseFlexible understands.
type StayInput struct {
	ApartmentID int64  `json:"apartment_id" validate:"gt=0"`
	GuestName   string `json:"guest_name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"max=64"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=500"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	NightsCount int    `json:"nights_count" validate:"gte=0"`
	Year        int    `json:"year" validate:"gte=0"`
	PeopleCount int    `json:"people_count" validate:"gt=0"`
	Linen       string `json:"linen" validate:"omitempty,oneof=included not_included"`
	Notes       string `json:"notes" validate:"max=2000"`
}

func (in StayInput) params(ownerID string) (domainstays.Params, error) {
	p := domainstays.Params{
		OwnerID:     ownerID,
		ApartmentID: domainstays.ApartmentID(in.ApartmentID),
		GuestName:   in.GuestName,
		Phone:       in.Phone,
		Email:       in.Email,
		Address:     in.Address,
		NightsCount: in.NightsCount,
		Year:        in.Year,
		PeopleCount: in.PeopleCount,
		Linen:       domainstays.Linen(strings.TrimSpace(in.Linen)),
		Notes:       in.Notes,
	}
	var err error
	if p.CheckIn, err = optionalDate("check_in", in.CheckIn); err != nil {
		return domainstays.Params{}, err
	}
	if p.CheckOut, err = optionalDate("check_out", in.CheckOut); err != nil {
		return domainstays.Params{}, err
	}
	return p, nil
}

func optionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, ok := daterange.ParseFlexible(raw)
	if !ok {
		return nil, &domainstays.ValidationError{Field: field, Reason: "is not a recognizable date"}
	}
	return &t, nil
}

// lookupApartment resolves the apartment a stay is filed under. Unknown ids
// are a validation problem of the payload, not a missing resource.
func lookupApartment(ctx context.Context, unit uow.UnitOfWork, ownerID string, id domainstays.ApartmentID) (apartments.Apartment, error) {
	apt, err := unit.Apartments().ByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, apartments.ErrNotFound) || errors.Is(err, domainstays.ErrPermissionDenied) {
			return apartments.Apartment{}, &domainstays.ValidationError{Field: "apartment_id", Reason: "unknown apartment"}
		}
		return apartments.Apartment{}, failures.Fetch("apartment", err)
	}
	return apt, nil
}

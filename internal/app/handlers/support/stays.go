package support

import (
	"context"
	"time"

	"stayregister/internal/app/failures"
	"stayregister/internal/app/uow"
	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/stays"
)

// FilterBounds returns the consult/export year bounds, honoring a configured
// minimum year when positive.
func FilterBounds(now time.Time, minYear int) stays.YearBounds {
	b := stays.ConsultYearBounds(now)
	if minYear > 0 && minYear <= b.Max {
		b.Min = minYear
	}
	return b
}

// LoadFiltered fetches the owner's stays (narrowed by apartment in the store),
// fills in apartment names and applies f. Store failures come back as
// *failures.FetchError.
func LoadFiltered(ctx context.Context, unit uow.UnitOfWork, ownerID string, f stays.Filter) ([]*stays.Stay, []apartments.Apartment, error) {
	list, err := unit.Stays().List(ctx, ownerID, stays.ListOptions{ApartmentID: f.ApartmentID})
	if err != nil {
		return nil, nil, failures.Fetch("stays", err, stays.ErrPermissionDenied)
	}
	apts, err := unit.Apartments().List(ctx, ownerID)
	if err != nil {
		return nil, nil, failures.Fetch("apartments", err, stays.ErrPermissionDenied)
	}
	for _, s := range list {
		if s != nil && s.ApartmentName == "" {
			s.ApartmentName = apartments.Label(apts, s.ApartmentID, "")
		}
	}
	return stays.Apply(list, f), apts, nil
}

func Now(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

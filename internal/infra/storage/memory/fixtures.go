package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

type fixtureFile struct {
	Apartments []apartmentFixture `json:"apartments"`
	Stays      []stayFixture      `json:"stays"`
}

type apartmentFixture struct {
	ID      int64  `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// stayFixture mirrors exported register rows. Dates are free-form strings
// because older exports mixed ISO and DD/MM/YYYY.
type stayFixture struct {
	ID          int64  `json:"id"`
	OwnerID     string `json:"owner_id"`
	ApartmentID int64  `json:"apartment_id"`
	GuestName   string `json:"guest_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	NightsCount int    `json:"nights_count"`
	Year        int    `json:"year"`
	PeopleCount int    `json:"people_count"`
	Linen       string `json:"linen"`
	Notes       string `json:"notes"`
}

type FixtureSummary struct {
	Apartments int
	Stays      int
	// UnparsedDates counts date strings that could not be read; the stay is
	// kept without that date.
	UnparsedDates int
}

// LoadFixtureFile seeds the repositories from a JSON file. A missing file is
// reported as os.ErrNotExist.
func LoadFixtureFile(path string, staysRepo *StayRepository, aptRepo *ApartmentRepository, defaultOwner string) (FixtureSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return FixtureSummary{}, err
	}
	defer f.Close()
	return LoadFixtures(f, staysRepo, aptRepo, defaultOwner)
}

func LoadFixtures(r io.Reader, staysRepo *StayRepository, aptRepo *ApartmentRepository, defaultOwner string) (FixtureSummary, error) {
	if staysRepo == nil || aptRepo == nil {
		return FixtureSummary{}, errors.New("memory: fixtures need both repositories")
	}
	var file fixtureFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return FixtureSummary{}, nil
		}
		return FixtureSummary{}, fmt.Errorf("decode fixtures: %w", err)
	}

	var sum FixtureSummary
	owner := func(raw string) string {
		if o := strings.TrimSpace(raw); o != "" {
			return o
		}
		return defaultOwner
	}
	names := make(map[stays.ApartmentID]string, len(file.Apartments))
	for _, fx := range file.Apartments {
		if fx.ID <= 0 {
			return sum, fmt.Errorf("apartment fixture %q: id must be positive", fx.Name)
		}
		apt := apartments.Apartment{
			ID:      stays.ApartmentID(fx.ID),
			OwnerID: owner(fx.OwnerID),
			Name:    fx.Name,
			Address: fx.Address,
			Notes:   fx.Notes,
		}
		aptRepo.Put(apt)
		names[apt.ID] = apt.Name
		sum.Apartments++
	}

	now := time.Now().UTC()
	for _, fx := range file.Stays {
		s := &stays.Stay{
			ID:            stays.StayID(fx.ID),
			OwnerID:       owner(fx.OwnerID),
			ApartmentID:   stays.ApartmentID(fx.ApartmentID),
			ApartmentName: names[stays.ApartmentID(fx.ApartmentID)],
			GuestName:     fx.GuestName,
			Phone:         fx.Phone,
			Email:         fx.Email,
			Address:       fx.Address,
			NightsCount:   fx.NightsCount,
			Year:          fx.Year,
			PeopleCount:   fx.PeopleCount,
			Linen:         stays.Linen(fx.Linen),
			Notes:         fx.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
			Version:       1,
		}
		s.CheckIn = fixtureDate(fx.CheckIn, &sum)
		s.CheckOut = fixtureDate(fx.CheckOut, &sum)
		if s.Year == 0 {
			if r, ok := s.Interval(); ok {
				s.Year = r.CheckIn.Year()
			}
		}
		if !s.Linen.Valid() {
			s.Linen = ""
		}
		staysRepo.Put(s)
		sum.Stays++
	}
	return sum, nil
}

func fixtureDate(raw string, sum *FixtureSummary) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, ok := daterange.ParseFlexible(raw)
	if !ok {
		sum.UnparsedDates++
		return nil
	}
	return &t
}

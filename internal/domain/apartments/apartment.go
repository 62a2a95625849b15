package apartments

import (
	"context"
	"errors"
	"sort"

	"stayregister/internal/domain/stays"
)

var ErrNotFound = errors.New("apartments: not found")

// Apartment is the small reference record stays belong to.
type Apartment struct {
	ID      stays.ApartmentID `json:"id"`
	OwnerID string            `json:"owner_id"`
	Name    string            `json:"name"`
	Address string            `json:"address,omitempty"`
	Notes   string            `json:"notes,omitempty"`
}

type Repository interface {
	List(ctx context.Context, ownerID string) ([]Apartment, error)
	ByID(ctx context.Context, ownerID string, id stays.ApartmentID) (Apartment, error)
}

// SortByName orders apartments for display; ties by id.
func SortByName(list []Apartment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}

// Label returns the display name of id within list, or fallback.
func Label(list []Apartment, id stays.ApartmentID, fallback string) string {
	for _, a := range list {
		if a.ID == id {
			return a.Name
		}
	}
	return fallback
}

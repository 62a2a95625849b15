package dto

import "stayregister/internal/domain/apartments"

type Apartment struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func MapApartments(list []apartments.Apartment) []Apartment {
	out := make([]Apartment, 0, len(list))
	for _, a := range list {
		out = append(out, Apartment{ID: int64(a.ID), Name: a.Name, Address: a.Address, Notes: a.Notes})
	}
	return out
}

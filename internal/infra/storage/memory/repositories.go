package memory

import (
	"context"
	"sort"
	"sync"

	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/shared/events"
	"stayregister/internal/domain/stays"
)

// StayRepository keeps stays in memory, scoped by owner. Stored values are
// copies so callers cannot mutate them behind the repository's back.
type StayRepository struct {
	mu     sync.RWMutex
	items  map[stays.StayID]*stays.Stay
	nextID stays.StayID
}

func NewStayRepository() *StayRepository {
	return &StayRepository{items: make(map[stays.StayID]*stays.Stay), nextID: 1}
}

func (r *StayRepository) List(ctx context.Context, ownerID string, opts stays.ListOptions) ([]*stays.Stay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*stays.Stay, 0, len(r.items))
	for _, s := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.OwnerID != ownerID {
			continue
		}
		if opts.ApartmentID != nil && s.ApartmentID != *opts.ApartmentID {
			continue
		}
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *StayRepository) ByID(ctx context.Context, ownerID string, id stays.StayID) (*stays.Stay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, stays.ErrNotFound
	}
	if s.OwnerID != ownerID {
		return nil, stays.ErrPermissionDenied
	}
	return clone(s), nil
}

// Create assigns the next id to stay and stores it.
func (r *StayRepository) Create(ctx context.Context, stay *stays.Stay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stay.ID = r.nextID
	r.nextID++
	r.items[stay.ID] = clone(stay)
	return nil
}

func (r *StayRepository) Update(ctx context.Context, stay *stays.Stay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[stay.ID]
	if !ok {
		return stays.ErrNotFound
	}
	if existing.OwnerID != stay.OwnerID {
		return stays.ErrPermissionDenied
	}
	if existing.Version != stay.LoadedVersion() {
		return stays.ErrConflict
	}
	r.items[stay.ID] = clone(stay)
	return nil
}

func (r *StayRepository) Delete(ctx context.Context, ownerID string, id stays.StayID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[id]
	if !ok {
		return stays.ErrNotFound
	}
	if existing.OwnerID != ownerID {
		return stays.ErrPermissionDenied
	}
	delete(r.items, id)
	return nil
}

// Put stores a stay with its own id without validation. Used for fixtures,
// which may carry legacy records.
func (r *StayRepository) Put(stay *stays.Stay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stay.ID <= 0 {
		stay.ID = r.nextID
	}
	if stay.ID >= r.nextID {
		r.nextID = stay.ID + 1
	}
	r.items[stay.ID] = clone(stay)
}

func clone(s *stays.Stay) *stays.Stay {
	c := *s
	c.EventRecorder = events.EventRecorder{}
	if s.CheckIn != nil {
		t := *s.CheckIn
		c.CheckIn = &t
	}
	if s.CheckOut != nil {
		t := *s.CheckOut
		c.CheckOut = &t
	}
	return &c
}

type ApartmentRepository struct {
	mu    sync.RWMutex
	items map[stays.ApartmentID]apartments.Apartment
}

func NewApartmentRepository() *ApartmentRepository {
	return &ApartmentRepository{items: make(map[stays.ApartmentID]apartments.Apartment)}
}

func (r *ApartmentRepository) List(ctx context.Context, ownerID string) ([]apartments.Apartment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]apartments.Apartment, 0, len(r.items))
	for _, a := range r.items {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ApartmentRepository) ByID(ctx context.Context, ownerID string, id stays.ApartmentID) (apartments.Apartment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return apartments.Apartment{}, apartments.ErrNotFound
	}
	if a.OwnerID != ownerID {
		return apartments.Apartment{}, stays.ErrPermissionDenied
	}
	return a, nil
}

func (r *ApartmentRepository) Put(a apartments.Apartment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = a
}

var (
	_ stays.Repository      = (*StayRepository)(nil)
	_ apartments.Repository = (*ApartmentRepository)(nil)
)

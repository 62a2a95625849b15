package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stayregister/internal/app/middleware"
	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

const fixtureJSON = `{
  "apartments": [{"id": 1, "name": "Harbour Loft"}, {"id": 2, "owner_id": "other", "name": "Mill House"}],
  "stays": [
    {"id": 10, "apartment_id": 1, "guest_name": "Ada", "check_in": "2024-06-10", "check_out": "15/06/2024", "nights_count": 5, "people_count": 2},
    {"id": 11, "apartment_id": 1, "guest_name": "Legacy", "check_in": "sometime", "year": 2019, "people_count": 1, "linen": "maybe"},
    {"id": 12, "apartment_id": 2, "owner_id": "other", "guest_name": "Bea", "check_in": "1 March 2024", "nights_count": 2, "people_count": 1}
  ]
}`

func seeded(t *testing.T) (*StayRepository, *ApartmentRepository) {
	t.Helper()
	sr, ar := NewStayRepository(), NewApartmentRepository()
	sum, err := LoadFixtures(strings.NewReader(fixtureJSON), sr, ar, "demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sum.Apartments != 2 || sum.Stays != 3 || sum.UnparsedDates != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	return sr, ar
}

func TestFixturesToleratesLegacyRows(t *testing.T) {
	sr, _ := seeded(t)
	ctx := context.Background()
	ada, err := sr.ByID(ctx, "demo", 10)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if ada.CheckOut == nil || !ada.CheckOut.Equal(daterange.MustParse("2024-06-15")) || ada.Year != 2024 {
		t.Fatalf("ada = %+v", ada)
	}
	if ada.ApartmentName != "Harbour Loft" {
		t.Fatalf("apartment name not denormalized")
	}
	legacy, _ := sr.ByID(ctx, "demo", 11)
	if legacy.CheckIn != nil || legacy.Year != 2019 || legacy.Linen != "" {
		t.Fatalf("legacy = %+v", legacy)
	}
}

func TestOwnerScoping(t *testing.T) {
	sr, ar := seeded(t)
	ctx := context.Background()
	list, _ := sr.List(ctx, "demo", stays.ListOptions{})
	if len(list) != 2 {
		t.Fatalf("demo sees %d stays", len(list))
	}
	if _, err := sr.ByID(ctx, "demo", 12); !errors.Is(err, stays.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := sr.ByID(ctx, "demo", 99); !errors.Is(err, stays.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := sr.Delete(ctx, "demo", 12); !errors.Is(err, stays.ErrPermissionDenied) {
		t.Fatalf("foreign delete must be denied, got %v", err)
	}
	if _, err := ar.ByID(ctx, "demo", 2); !errors.Is(err, stays.ErrPermissionDenied) {
		t.Fatalf("foreign apartment must be denied, got %v", err)
	}
	if _, err := ar.ByID(ctx, "demo", 3); !errors.Is(err, apartments.ErrNotFound) {
		t.Fatalf("missing apartment, got %v", err)
	}
	apt := stays.ApartmentID(1)
	only, _ := sr.List(ctx, "demo", stays.ListOptions{ApartmentID: &apt})
	if len(only) != 2 {
		t.Fatalf("apartment narrowing = %d", len(only))
	}
}

func TestCreateAssignsIDsAfterFixtures(t *testing.T) {
	sr, _ := seeded(t)
	s := &stays.Stay{OwnerID: "demo", ApartmentID: 1, GuestName: "New"}
	if err := sr.Create(context.Background(), s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID != 13 {
		t.Fatalf("id = %d, want 13", s.ID)
	}
	s.GuestName = "Mutated"
	got, _ := sr.ByID(context.Background(), "demo", 13)
	if got.GuestName != "New" {
		t.Fatalf("repository must store copies")
	}
}

func TestOutboxClaimLifecycle(t *testing.T) {
	box := NewOutbox()
	ctx := context.Background()
	_ = box.Add(ctx, recordWithID("a"))
	_ = box.Add(ctx, recordWithID("b"))

	first, _ := box.Claim(ctx, "w")
	if first == nil || first.ID != "a" {
		t.Fatalf("first claim = %+v", first)
	}
	second, _ := box.Claim(ctx, "w")
	if second == nil || second.ID != "b" {
		t.Fatalf("claimed records must not be handed out twice")
	}
	if err := box.MarkSent(ctx, "a"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := box.MarkFailed(ctx, "b", daterange.MustParse("2100-01-01"), "down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if next, _ := box.Claim(ctx, "w"); next != nil {
		t.Fatalf("failed record is not due yet")
	}
	if box.Pending() != 1 {
		t.Fatalf("pending = %d", box.Pending())
	}
}

func TestUpdateFromStaleCopyConflicts(t *testing.T) {
	sr, _ := seeded(t)
	ctx := context.Background()
	a, _ := sr.ByID(ctx, "demo", 10)
	b, _ := sr.ByID(ctx, "demo", 10)
	edit := func(s *stays.Stay, guest string, at time.Time) {
		t.Helper()
		p := stays.Params{ApartmentID: 1, GuestName: guest, PeopleCount: 2, CheckIn: s.CheckIn, CheckOut: s.CheckOut}
		if err := s.Revise(p, at); err != nil {
			t.Fatalf("revise: %v", err)
		}
	}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	edit(a, "Alice", now.Add(time.Minute))
	if err := sr.Update(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}
	edit(b, "Bob", now.Add(2*time.Minute))
	if err := sr.Update(ctx, b); !errors.Is(err, stays.ErrConflict) {
		t.Fatalf("stale update err = %v, want conflict", err)
	}
	got, _ := sr.ByID(ctx, "demo", 10)
	if got.GuestName != "Alice" || got.Version != 2 {
		t.Fatalf("stored = %s v%d", got.GuestName, got.Version)
	}
}

func TestIdempotencyStoreDropsExpiredRecords(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewIdempotencyStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Save(ctx, middleware.IdempotencyRecord{Key: "alice:stays.create:k1", OccurredAt: now.Add(-2 * time.Hour)})
	_ = s.Save(ctx, middleware.IdempotencyRecord{Key: "alice:stays.create:k2", OccurredAt: now})
	if s.Len() != 1 {
		t.Fatalf("records = %d, want the stale one dropped", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "alice:stays.create:k2"); !ok {
		t.Fatalf("fresh record missing")
	}
}

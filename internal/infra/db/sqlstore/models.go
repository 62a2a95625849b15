package sqlstore

import (
	"time"

	"gorm.io/datatypes"

	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

type apartmentRow struct {
	ID      int64  `gorm:"primaryKey;autoIncrement:false"`
	OwnerID string `gorm:"size:128;index"`
	Name    string `gorm:"size:200"`
	Address string `gorm:"size:500"`
	Notes   string `gorm:"type:text"`
}

func (apartmentRow) TableName() string { return "apartments" }

func (r apartmentRow) toDomain() apartments.Apartment {
	return apartments.Apartment{
		ID:      stays.ApartmentID(r.ID),
		OwnerID: r.OwnerID,
		Name:    r.Name,
		Address: r.Address,
		Notes:   r.Notes,
	}
}

type stayRow struct {
	ID            int64  `gorm:"primaryKey"`
	OwnerID       string `gorm:"size:128;index:idx_stays_owner_apartment"`
	ApartmentID   int64  `gorm:"index:idx_stays_owner_apartment"`
	ApartmentName string `gorm:"size:200"`
	GuestName     string `gorm:"size:200"`
	Phone         string `gorm:"size:64"`
	Email         string `gorm:"size:254"`
	Address       string `gorm:"size:500"`
	CheckIn       *datatypes.Date
	CheckOut      *datatypes.Date
	NightsCount   int
	Year          int `gorm:"index"`
	PeopleCount   int
	Linen         string `gorm:"size:16"`
	Notes         string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false"`
	Version       int64     `gorm:"not null;default:0"`
}

func (stayRow) TableName() string { return "stays" }

func newStayRow(s *stays.Stay) stayRow {
	return stayRow{
		ID:            int64(s.ID),
		OwnerID:       s.OwnerID,
		ApartmentID:   int64(s.ApartmentID),
		ApartmentName: s.ApartmentName,
		GuestName:     s.GuestName,
		Phone:         s.Phone,
		Email:         s.Email,
		Address:       s.Address,
		CheckIn:       toDate(s.CheckIn),
		CheckOut:      toDate(s.CheckOut),
		NightsCount:   s.NightsCount,
		Year:          s.Year,
		PeopleCount:   s.PeopleCount,
		Linen:         string(s.Linen),
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Version:       s.Version,
	}
}

func (r stayRow) toDomain() *stays.Stay {
	return &stays.Stay{
		ID:            stays.StayID(r.ID),
		OwnerID:       r.OwnerID,
		ApartmentID:   stays.ApartmentID(r.ApartmentID),
		ApartmentName: r.ApartmentName,
		GuestName:     r.GuestName,
		Phone:         r.Phone,
		Email:         r.Email,
		Address:       r.Address,
		CheckIn:       fromDate(r.CheckIn),
		CheckOut:      fromDate(r.CheckOut),
		NightsCount:   r.NightsCount,
		Year:          r.Year,
		PeopleCount:   r.PeopleCount,
		Linen:         stays.Linen(r.Linen),
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
}

func toDate(t *time.Time) *datatypes.Date {
	if t == nil || t.IsZero() {
		return nil
	}
	d := datatypes.Date(daterange.Midnight(*t))
	return &d
}

// fromDate re-anchors the stored day at midnight UTC whatever location the
// driver scanned it in.
func fromDate(d *datatypes.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	if t.IsZero() {
		return nil
	}
	t = daterange.Midnight(t)
	return &t
}

type idempotencyRow struct {
	Key        string `gorm:"primaryKey;size:255"`
	Payload    []byte
	OccurredAt time.Time
	CreatedAt  time.Time `gorm:"index"`
}

func (idempotencyRow) TableName() string { return "stay_idempotency" }

type outboxRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:128"`
	Payload     []byte
	OccurredAt  time.Time
	Aggregate   string            `gorm:"size:128"`
	Headers     datatypes.JSONMap `gorm:"type:json"`
	State       string            `gorm:"size:16;index:idx_outbox_due"`
	Attempts    int
	NextAttempt time.Time `gorm:"index:idx_outbox_due"`
	ClaimedBy   string    `gorm:"size:128"`
	ClaimedAt   *time.Time
	SentAt      *time.Time
	LastError   string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (outboxRow) TableName() string { return "stay_outbox" }

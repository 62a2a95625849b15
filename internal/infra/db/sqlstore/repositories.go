package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/stays"
)

type txKey struct{}

// conn returns the transaction carried by ctx, or the pool.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

type StayRepository struct {
	db *gorm.DB
}

func NewStayRepository(db *gorm.DB) *StayRepository {
	return &StayRepository{db: db}
}

func (r *StayRepository) List(ctx context.Context, ownerID string, opts stays.ListOptions) ([]*stays.Stay, error) {
	q := conn(ctx, r.db).Where("owner_id = ?", ownerID)
	if opts.ApartmentID != nil {
		q = q.Where("apartment_id = ?", int64(*opts.ApartmentID))
	}
	var rows []stayRow
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*stays.Stay, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *StayRepository) ByID(ctx context.Context, ownerID string, id stays.StayID) (*stays.Stay, error) {
	var row stayRow
	if err := conn(ctx, r.db).First(&row, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stays.ErrNotFound
		}
		return nil, err
	}
	if row.OwnerID != ownerID {
		return nil, stays.ErrPermissionDenied
	}
	return row.toDomain(), nil
}

func (r *StayRepository) Create(ctx context.Context, stay *stays.Stay) error {
	row := newStayRow(stay)
	row.ID = 0
	if err := conn(ctx, r.db).Create(&row).Error; err != nil {
		return err
	}
	stay.ID = stays.StayID(row.ID)
	return nil
}

func (r *StayRepository) Update(ctx context.Context, stay *stays.Stay) error {
	if _, err := r.ByID(ctx, stay.OwnerID, stay.ID); err != nil {
		return err
	}
	row := newStayRow(stay)
	res := conn(ctx, r.db).
		Model(&stayRow{}).
		Where("id = ? AND owner_id = ? AND version = ?", row.ID, row.OwnerID, stay.LoadedVersion()).
		Select("*").Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return stays.ErrConflict
	}
	return nil
}

func (r *StayRepository) Delete(ctx context.Context, ownerID string, id stays.StayID) error {
	if _, err := r.ByID(ctx, ownerID, id); err != nil {
		return err
	}
	return conn(ctx, r.db).Where("owner_id = ?", ownerID).Delete(&stayRow{}, int64(id)).Error
}

type ApartmentRepository struct {
	db *gorm.DB
}

func NewApartmentRepository(db *gorm.DB) *ApartmentRepository {
	return &ApartmentRepository{db: db}
}

func (r *ApartmentRepository) List(ctx context.Context, ownerID string) ([]apartments.Apartment, error) {
	var rows []apartmentRow
	if err := conn(ctx, r.db).Where("owner_id = ?", ownerID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]apartments.Apartment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ApartmentRepository) ByID(ctx context.Context, ownerID string, id stays.ApartmentID) (apartments.Apartment, error) {
	var row apartmentRow
	if err := conn(ctx, r.db).First(&row, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apartments.Apartment{}, apartments.ErrNotFound
		}
		return apartments.Apartment{}, err
	}
	if row.OwnerID != ownerID {
		return apartments.Apartment{}, stays.ErrPermissionDenied
	}
	return row.toDomain(), nil
}

// Upsert seeds or renames an apartment.
func (r *ApartmentRepository) Upsert(ctx context.Context, a apartments.Apartment) error {
	row := apartmentRow{ID: int64(a.ID), OwnerID: a.OwnerID, Name: a.Name, Address: a.Address, Notes: a.Notes}
	return conn(ctx, r.db).Save(&row).Error
}

var (
	_ stays.Repository      = (*StayRepository)(nil)
	_ apartments.Repository = (*ApartmentRepository)(nil)
)

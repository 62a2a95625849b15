package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/stays"
)

const apartmentsCollection = "apartments"

type ApartmentRepository struct {
	col *mongo.Collection
}

func NewApartmentRepository(db *mongo.Database) *ApartmentRepository {
	return &ApartmentRepository{col: db.Collection(apartmentsCollection)}
}

func (r *ApartmentRepository) List(ctx context.Context, ownerID string) ([]apartments.Apartment, error) {
	cur, err := r.col.Find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]apartments.Apartment, 0)
	for cur.Next(ctx) {
		var doc apartmentDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

func (r *ApartmentRepository) ByID(ctx context.Context, ownerID string, id stays.ApartmentID) (apartments.Apartment, error) {
	var doc apartmentDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apartments.Apartment{}, apartments.ErrNotFound
		}
		return apartments.Apartment{}, err
	}
	if doc.OwnerID != ownerID {
		return apartments.Apartment{}, stays.ErrPermissionDenied
	}
	return doc.toDomain(), nil
}

// Upsert seeds or renames an apartment.
func (r *ApartmentRepository) Upsert(ctx context.Context, a apartments.Apartment) error {
	doc := apartmentDocument{ID: int64(a.ID), OwnerID: a.OwnerID, Name: a.Name, Address: a.Address, Notes: a.Notes}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type apartmentDocument struct {
	ID      int64  `bson:"_id"`
	OwnerID string `bson:"owner_id"`
	Name    string `bson:"name"`
	Address string `bson:"address,omitempty"`
	Notes   string `bson:"notes,omitempty"`
}

func (d apartmentDocument) toDomain() apartments.Apartment {
	return apartments.Apartment{
		ID:      stays.ApartmentID(d.ID),
		OwnerID: d.OwnerID,
		Name:    d.Name,
		Address: d.Address,
		Notes:   d.Notes,
	}
}

var _ apartments.Repository = (*ApartmentRepository)(nil)

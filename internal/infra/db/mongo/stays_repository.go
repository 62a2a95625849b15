package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

const (
	staysCollection    = "stays"
	countersCollection = "counters"
)

// StayRepository stores stays with calendar dates as YYYY-MM-DD strings so
// they sort and compare as days. Ids come from a counters document.
type StayRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewStayRepository(db *mongo.Database) *StayRepository {
	return &StayRepository{col: db.Collection(staysCollection), counters: db.Collection(countersCollection)}
}

func (r *StayRepository) List(ctx context.Context, ownerID string, opts stays.ListOptions) ([]*stays.Stay, error) {
	filter := bson.M{"owner_id": ownerID}
	if opts.ApartmentID != nil {
		filter["apartment_id"] = int64(*opts.ApartmentID)
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*stays.Stay
	for cur.Next(ctx) {
		var doc stayDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

func (r *StayRepository) ByID(ctx context.Context, ownerID string, id stays.StayID) (*stays.Stay, error) {
	var doc stayDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, stays.ErrNotFound
		}
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, stays.ErrPermissionDenied
	}
	return doc.toDomain(), nil
}

func (r *StayRepository) Create(ctx context.Context, stay *stays.Stay) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	stay.ID = stays.StayID(id)
	_, err = r.col.InsertOne(ctx, newStayDocument(stay))
	return err
}

// Update replaces the stored stay only while it is still at the version the
// caller loaded. Documents written before versioning count as version 0.
func (r *StayRepository) Update(ctx context.Context, stay *stays.Stay) error {
	if _, err := r.ByID(ctx, stay.OwnerID, stay.ID); err != nil {
		return err
	}
	filter := bson.M{
		"_id":      int64(stay.ID),
		"owner_id": stay.OwnerID,
		"version":  versionFilter(stay.LoadedVersion()),
	}
	res, err := r.col.ReplaceOne(ctx, filter, newStayDocument(stay))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return stays.ErrConflict
	}
	return nil
}

func versionFilter(loaded int64) any {
	if loaded == 0 {
		return bson.M{"$in": bson.A{int64(0), nil}}
	}
	return loaded
}

func (r *StayRepository) Delete(ctx context.Context, ownerID string, id stays.StayID) error {
	if _, err := r.ByID(ctx, ownerID, id); err != nil {
		return err
	}
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": int64(id), "owner_id": ownerID})
	return err
}

func (r *StayRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": staysCollection}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&counter)
	return counter.Seq, err
}

type stayDocument struct {
	ID            int64     `bson:"_id"`
	OwnerID       string    `bson:"owner_id"`
	ApartmentID   int64     `bson:"apartment_id"`
	ApartmentName string    `bson:"apartment_name,omitempty"`
	GuestName     string    `bson:"guest_name"`
	Phone         string    `bson:"phone,omitempty"`
	Email         string    `bson:"email,omitempty"`
	Address       string    `bson:"address,omitempty"`
	CheckIn       string    `bson:"check_in,omitempty"`
	CheckOut      string    `bson:"check_out,omitempty"`
	NightsCount   int       `bson:"nights_count"`
	Year          int       `bson:"year"`
	PeopleCount   int       `bson:"people_count"`
	Linen         string    `bson:"linen,omitempty"`
	Notes         string    `bson:"notes,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
	Version       int64     `bson:"version"`
}

func newStayDocument(s *stays.Stay) stayDocument {
	return stayDocument{
		ID:            int64(s.ID),
		OwnerID:       s.OwnerID,
		ApartmentID:   int64(s.ApartmentID),
		ApartmentName: s.ApartmentName,
		GuestName:     s.GuestName,
		Phone:         s.Phone,
		Email:         s.Email,
		Address:       s.Address,
		CheckIn:       isoOrEmpty(s.CheckIn),
		CheckOut:      isoOrEmpty(s.CheckOut),
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

func (d stayDocument) toDomain() *stays.Stay {
	return &stays.Stay{
		ID:            stays.StayID(d.ID),
		OwnerID:       d.OwnerID,
		ApartmentID:   stays.ApartmentID(d.ApartmentID),
		ApartmentName: d.ApartmentName,
		GuestName:     d.GuestName,
		Phone:         d.Phone,
		Email:         d.Email,
		Address:       d.Address,
		CheckIn:       parseStored(d.CheckIn),
		CheckOut:      parseStored(d.CheckOut),
		NightsCount:   d.NightsCount,
		Year:          d.Year,
		PeopleCount:   d.PeopleCount,
		Linen:         stays.Linen(d.Linen),
		Notes:         d.Notes,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Version:       d.Version,
	}
}

func isoOrEmpty(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return daterange.FormatISO(*t)
}

// parseStored tolerates legacy values written in other date layouts; what
// cannot be read is treated as absent.
func parseStored(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, ok := daterange.ParseFlexible(raw)
	if !ok {
		return nil
	}
	return &t
}

func bsonKeys(fields ...string) bson.D {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return keys
}

var _ stays.Repository = (*StayRepository)(nil)

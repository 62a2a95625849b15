package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the owner-scoped lookup indexes used by the
// repositories.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	stays := c.DB.Collection(staysCollection)
	if _, err := stays.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bsonKeys("owner_id", "apartment_id")},
		{Keys: bsonKeys("owner_id", "year")},
	}); err != nil {
		return err
	}
	apts := c.DB.Collection(apartmentsCollection)
	_, err := apts.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bsonKeys("owner_id", "name")})
	return err
}

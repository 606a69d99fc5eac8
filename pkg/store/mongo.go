package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sentinelsoft/rulegraph/pkg/errors"
)

const mongoCollection = "artifacts"

// MongoOptions configures a MongoDB-backed store.
type MongoOptions struct {
	URI      string
	Database string
}

// MongoStore keeps artifacts as documents keyed by name in a single
// collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type artifactDoc struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.Database == "" {
		opts.Database = "rulegraph"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "pinging mongodb")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(mongoCollection),
	}, nil
}

func (s *MongoStore) Put(ctx context.Context, name string, data []byte) error {
	if err := errors.ValidateArtifactName(name); err != nil {
		return err
	}
	doc := artifactDoc{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := errors.ValidateArtifactName(name); err != nil {
		return nil, err
	}
	var doc artifactDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if err := errors.ValidateArtifactName(name); err != nil {
		return err
	}
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	return err
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

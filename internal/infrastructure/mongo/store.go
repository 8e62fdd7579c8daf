// Package mongo is the document-store backend, selected with STORE_DRIVER=mongo.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// Collection names.
const (
	SurveyCollection      = "survey_data"
	SurveyImageCollection = "survey_images"
	ReviewCollection      = "review_data"
	UserCollection        = "users"
	CounterCollection     = "counters"
)

// Store binds a connected client to one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and makes sure the indexes the repositories rely on exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	store := &Store{client: client, db: client.Database(database)}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the uniqueness and listing indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		SurveyCollection: {
			{Keys: bson.D{{Key: "reviewed", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
		},
		SurveyImageCollection: {
			{Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "category", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ReviewCollection: {
			{Keys: bson.D{{Key: "surveyId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		UserCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for collection, models := range indexes {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}

// nextSequence hands out monotonically increasing int64 ids per collection.
func nextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc counterDocument
	err := db.Collection(CounterCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

// translate maps driver errors onto domain sentinels.
func translate(err error, what string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s %v: %w", what, id, domain.ErrConflict)
	}
	return err
}

func findOptions(paging domain.Paging) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if paging.Limit > 0 {
		opts.SetLimit(int64(paging.Limit))
		if skip := paging.Offset(); skip > 0 {
			opts.SetSkip(int64(skip))
		}
	}
	return opts
}

func nowUTC() time.Time {
	// Mongo stores milliseconds.
	return time.Now().UTC().Truncate(time.Millisecond)
}

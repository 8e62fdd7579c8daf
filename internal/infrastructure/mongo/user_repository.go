package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

type UserRepository struct {
	db    *mongo.Database
	users *mongo.Collection
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{db: store.db, users: store.db.Collection(UserCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("user payload is nil")
	}
	id, err := nextSequence(ctx, r.db, UserCollection)
	if err != nil {
		return err
	}
	doc := UserDocument{ID: id, Username: user.Username, PasswordHash: user.PasswordHash, CreatedAt: nowUTC()}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return translate(err, "user", user.Username)
	}
	user.ID = doc.ID
	user.CreatedAt = doc.CreatedAt
	return nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var doc UserDocument
	if err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		return nil, translate(err, "user", username)
	}
	return &domain.User{ID: doc.ID, Username: doc.Username, PasswordHash: doc.PasswordHash, CreatedAt: doc.CreatedAt.UTC()}, nil
}

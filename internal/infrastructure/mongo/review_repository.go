package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

type ReviewRepository struct {
	db      *mongo.Database
	reviews *mongo.Collection
	surveys *mongo.Collection
}

func NewReviewRepository(store *Store) *ReviewRepository {
	return &ReviewRepository{
		db:      store.db,
		reviews: store.db.Collection(ReviewCollection),
		surveys: store.db.Collection(SurveyCollection),
	}
}

// Create inserts the review and then sets the survey's reviewed flag. The unique
// surveyId index turns a second review into domain.ErrConflict; when the flag update
// fails the review is removed again so both stay in step.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if review == nil {
		return errors.New("review payload is nil")
	}

	var survey SurveyDocument
	if err := r.surveys.FindOne(ctx, bson.M{"_id": review.SurveyID}).Decode(&survey); err != nil {
		return translate(err, "survey", review.SurveyID)
	}
	if survey.Reviewed {
		return fmt.Errorf("survey %d already reviewed: %w", review.SurveyID, domain.ErrConflict)
	}

	id, err := nextSequence(ctx, r.db, ReviewCollection)
	if err != nil {
		return err
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = nowUTC()
	}
	review.ID = id
	review.Reviewed = true

	if _, err := r.reviews.InsertOne(ctx, reviewToDocument(review)); err != nil {
		review.ID = 0
		return translate(err, "review for survey", review.SurveyID)
	}

	res, err := r.surveys.UpdateOne(ctx,
		bson.M{"_id": review.SurveyID, "reviewed": false},
		bson.M{"$set": bson.M{"reviewed": true, "updatedAt": review.ReviewedAt}})
	if err == nil && res.MatchedCount == 0 {
		err = fmt.Errorf("survey %d already reviewed: %w", review.SurveyID, domain.ErrConflict)
	}
	if err != nil {
		_, _ = r.reviews.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": id})
		review.ID = 0
		return err
	}
	return nil
}

func (r *ReviewRepository) FindBySurveyID(ctx context.Context, surveyID int64) (*domain.Review, error) {
	var doc ReviewDocument
	if err := r.reviews.FindOne(ctx, bson.M{"surveyId": surveyID}).Decode(&doc); err != nil {
		return nil, translate(err, "review for survey", surveyID)
	}
	review, err := mapReviewDocument(doc)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) Image(ctx context.Context, reviewID int64, category domain.ImageCategory) ([]byte, error) {
	if _, err := domain.NewReviewImageCategory(string(category)); err != nil {
		return nil, err
	}
	var doc ReviewDocument
	if err := r.reviews.FindOne(ctx, bson.M{"_id": reviewID}).Decode(&doc); err != nil {
		return nil, translate(err, "review", reviewID)
	}
	data := doc.Photos[string(category)]
	if len(data) == 0 {
		return nil, fmt.Errorf("review image %d/%s: %w", reviewID, category, domain.ErrNotFound)
	}
	return data, nil
}

// FindReviewed pairs reviewed surveys with their reviews, oldest survey first.
func (r *ReviewRepository) FindReviewed(ctx context.Context, paging domain.Paging) ([]domain.ReviewedSurvey, error) {
	surveys, err := findSurveys(ctx, r.surveys, bson.M{"reviewed": true}, paging)
	if err != nil {
		return nil, err
	}
	if len(surveys) == 0 {
		return []domain.ReviewedSurvey{}, nil
	}

	ids := make(bson.A, 0, len(surveys))
	for _, s := range surveys {
		ids = append(ids, s.ID)
	}
	cursor, err := r.reviews.Find(ctx, bson.M{"surveyId": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	bySurvey := make(map[int64]domain.Review, len(surveys))
	for cursor.Next(ctx) {
		var doc ReviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		review, err := mapReviewDocument(doc)
		if err != nil {
			return nil, err
		}
		bySurvey[review.SurveyID] = review
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	result := make([]domain.ReviewedSurvey, 0, len(surveys))
	for _, s := range surveys {
		review, ok := bySurvey[s.ID]
		if !ok {
			continue
		}
		result = append(result, domain.ReviewedSurvey{Survey: s, Review: review})
	}
	return result, nil
}

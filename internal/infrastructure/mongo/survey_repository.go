package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// SurveyRepository stores surveys in survey_data and their photos in survey_images.
type SurveyRepository struct {
	db      *mongo.Database
	surveys *mongo.Collection
	images  *mongo.Collection
}

func NewSurveyRepository(store *Store) *SurveyRepository {
	return &SurveyRepository{
		db:      store.db,
		surveys: store.db.Collection(SurveyCollection),
		images:  store.db.Collection(SurveyImageCollection),
	}
}

// Create assigns the next survey id and inserts the survey followed by its images.
// A failed image insert removes what was written.
func (r *SurveyRepository) Create(ctx context.Context, survey *domain.Survey, images []domain.SurveyImage) error {
	if survey == nil {
		return errors.New("survey payload is nil")
	}
	if !survey.Location.Valid() {
		return domain.NewValidationError("location", "select location on the map")
	}

	id, err := nextSequence(ctx, r.db, SurveyCollection)
	if err != nil {
		return err
	}
	now := nowUTC()
	survey.ID = id
	survey.Reviewed = false
	survey.CreatedAt = now
	survey.UpdatedAt = now

	if _, err := r.surveys.InsertOne(ctx, surveyToDocument(survey)); err != nil {
		return translate(err, "survey", id)
	}
	if err := r.upsertImages(ctx, id, images); err != nil {
		_, _ = r.images.DeleteMany(context.WithoutCancel(ctx), bson.M{"surveyId": id})
		_, _ = r.surveys.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": id})
		return err
	}
	survey.Images = nil
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		img.SurveyID = id
		survey.Images = append(survey.Images, img)
	}
	return nil
}

func (r *SurveyRepository) FindByID(ctx context.Context, id int64) (*domain.Survey, error) {
	var doc SurveyDocument
	if err := r.surveys.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err, "survey", id)
	}
	survey := mapSurveyDocument(doc)

	cursor, err := r.images.Find(ctx, bson.M{"surveyId": id})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var img SurveyImageDocument
		if err := cursor.Decode(&img); err != nil {
			return nil, err
		}
		survey.Images = append(survey.Images, domain.SurveyImage{
			SurveyID: id,
			Category: domain.ImageCategory(img.Category),
			Data:     img.Data,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return &survey, nil
}

// FindByReviewStatus lists surveys by their reviewed flag, oldest first.
func (r *SurveyRepository) FindByReviewStatus(ctx context.Context, reviewed bool, paging domain.Paging) ([]domain.Survey, error) {
	return findSurveys(ctx, r.surveys, bson.M{"reviewed": reviewed}, paging)
}

func findSurveys(ctx context.Context, coll *mongo.Collection, filter bson.M, paging domain.Paging) ([]domain.Survey, error) {
	cursor, err := coll.Find(ctx, filter, findOptions(paging))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	surveys := make([]domain.Survey, 0)
	for cursor.Next(ctx) {
		var doc SurveyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		surveys = append(surveys, mapSurveyDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return surveys, nil
}

func (r *SurveyRepository) Count(ctx context.Context, reviewed bool) (int, error) {
	n, err := r.surveys.CountDocuments(ctx, bson.M{"reviewed": reviewed})
	return int(n), err
}

// Update replaces the form fields, keeps the reviewed flag, and prunes photos whose
// indicator was switched off.
func (r *SurveyRepository) Update(ctx context.Context, survey *domain.Survey, images []domain.SurveyImage) error {
	if survey == nil {
		return errors.New("survey payload is nil")
	}
	if !survey.Location.Valid() {
		return domain.NewValidationError("location", "select location on the map")
	}

	now := nowUTC()
	doc := surveyToDocument(survey)
	set := bson.M{
		"location":                   doc.Location,
		"typeOfUse":                  doc.TypeOfUse,
		"numberOfUsers":              doc.NumberOfUsers,
		"buildingImportanceCategory": doc.ImportanceCategory,
		"nonStructuralFallingDanger": doc.NonStructuralFallingDanger,
		"numberOfFloors":             doc.NumberOfFloors,
		"conditionOfStructure":       doc.ConditionOfStructure,
		"yearOfConstruction":         doc.YearOfConstruction,
		"previousDamages":            doc.PreviousDamages,
		"neighboringBuildingsImpact": doc.NeighboringBuildingsImpact,
		"softFloor":                  doc.SoftFloor,
		"shortColumn":                doc.ShortColumn,
		"updatedAt":                  now,
	}
	res, err := r.surveys.UpdateOne(ctx, bson.M{"_id": survey.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("survey %d: %w", survey.ID, domain.ErrNotFound)
	}

	if disallowed := survey.DisallowedImageCategories(); len(disallowed) > 0 {
		categories := make(bson.A, 0, len(disallowed))
		for _, c := range disallowed {
			categories = append(categories, string(c))
		}
		if _, err := r.images.DeleteMany(ctx, bson.M{"surveyId": survey.ID, "category": bson.M{"$in": categories}}); err != nil {
			return err
		}
	}
	if err := r.upsertImages(ctx, survey.ID, images); err != nil {
		return err
	}
	survey.UpdatedAt = now
	return nil
}

func (r *SurveyRepository) Image(ctx context.Context, surveyID int64, category domain.ImageCategory) (*domain.SurveyImage, error) {
	var doc SurveyImageDocument
	err := r.images.FindOne(ctx, bson.M{"surveyId": surveyID, "category": string(category)}).Decode(&doc)
	if err != nil {
		return nil, translate(err, "survey image", fmt.Sprintf("%d/%s", surveyID, category))
	}
	return &domain.SurveyImage{SurveyID: surveyID, Category: category, Data: doc.Data}, nil
}

func (r *SurveyRepository) upsertImages(ctx context.Context, surveyID int64, images []domain.SurveyImage) error {
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		filter := bson.M{"surveyId": surveyID, "category": string(img.Category)}
		update := bson.M{"$set": bson.M{"data": img.Data}}
		if _, err := r.images.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("store survey image %s: %w", img.Category, err)
		}
	}
	return nil
}

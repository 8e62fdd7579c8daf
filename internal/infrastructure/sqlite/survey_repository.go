package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// SurveyRepository persists survey_data and survey_images.
type SurveyRepository struct {
	db  *DB
	now func() time.Time
}

func NewSurveyRepository(db *DB) *SurveyRepository {
	return &SurveyRepository{db: db, now: time.Now}
}

const surveyColumns = `id, latitude, longitude, type_of_use, number_of_users, building_importance_category,
	non_structural_falling_danger, number_of_floors, condition_of_structure, year_of_construction,
	previous_damages, neighboring_buildings_impact, soft_floor, short_column, reviewed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row rowScanner) (domain.Survey, error) {
	var (
		s                  domain.Survey
		reviewed           int
		created, updated   int64
		typeOfUse, users   string
		importance         string
		danger, condition  string
		previous, neighbor string
		soft, short        string
	)
	err := row.Scan(&s.ID, &s.Location.Latitude, &s.Location.Longitude, &typeOfUse, &users, &importance,
		&danger, &s.NumberOfFloors, &condition, &s.YearOfConstruction,
		&previous, &neighbor, &soft, &short, &reviewed, &created, &updated)
	if err != nil {
		return domain.Survey{}, err
	}
	s.TypeOfUse = domain.TypeOfUse(typeOfUse)
	s.NumberOfUsers = domain.NumberOfUsers(users)
	s.ImportanceCategory = domain.ImportanceCategory(importance)
	s.NonStructuralFallingDanger = domain.Answer(danger)
	s.ConditionOfStructure = domain.Answer(condition)
	s.PreviousDamages = domain.Answer(previous)
	s.NeighboringBuildingsImpact = domain.Answer(neighbor)
	s.SoftFloor = domain.Answer(soft)
	s.ShortColumn = domain.Answer(short)
	s.Reviewed = reviewed == 1
	s.CreatedAt = fromNanos(created)
	s.UpdatedAt = fromNanos(updated)
	return s, nil
}

// Create inserts survey and its images in one transaction and assigns survey.ID.
func (r *SurveyRepository) Create(ctx context.Context, survey *domain.Survey, images []domain.SurveyImage) error {
	if survey == nil {
		return errors.New("survey payload is nil")
	}
	if !survey.Location.Valid() {
		return domain.NewValidationError("location", "select location on the map")
	}

	now := r.now().UTC()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO survey_data (
			latitude, longitude, type_of_use, number_of_users, building_importance_category,
			non_structural_falling_danger, number_of_floors, condition_of_structure, year_of_construction,
			previous_damages, neighboring_buildings_impact, soft_floor, short_column, reviewed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			survey.Location.Latitude, survey.Location.Longitude, string(survey.TypeOfUse), string(survey.NumberOfUsers),
			string(survey.ImportanceCategory), string(survey.NonStructuralFallingDanger), survey.NumberOfFloors,
			string(survey.ConditionOfStructure), survey.YearOfConstruction, string(survey.PreviousDamages),
			string(survey.NeighboringBuildingsImpact), string(survey.SoftFloor), string(survey.ShortColumn),
			toNanos(now), toNanos(now))
		if err != nil {
			return fmt.Errorf("insert survey: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := upsertImages(ctx, tx, id, images); err != nil {
			return err
		}
		survey.ID = id
		survey.Reviewed = false
		survey.CreatedAt = now
		survey.UpdatedAt = now
		survey.Images = withSurveyID(id, images)
		return nil
	})
}

// FindByID loads a survey with its images.
func (r *SurveyRepository) FindByID(ctx context.Context, id int64) (*domain.Survey, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+surveyColumns+` FROM survey_data WHERE id = ?`, id)
	survey, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("survey", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select survey: %w", err)
	}

	rows, err := r.db.db.QueryContext(ctx, `SELECT image_type, image FROM survey_images WHERE survey_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("select survey images: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		img := domain.SurveyImage{SurveyID: id}
		var category string
		if err := rows.Scan(&category, &img.Data); err != nil {
			return nil, err
		}
		img.Category = domain.ImageCategory(category)
		survey.Images = append(survey.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &survey, nil
}

// FindByReviewStatus lists surveys by the inline reviewed flag in insertion order.
func (r *SurveyRepository) FindByReviewStatus(ctx context.Context, reviewed bool, paging domain.Paging) ([]domain.Survey, error) {
	return listSurveys(ctx, r.db, reviewed, paging)
}

func listSurveys(ctx context.Context, d *DB, reviewed bool, paging domain.Paging) ([]domain.Survey, error) {
	query := `SELECT ` + surveyColumns + ` FROM survey_data WHERE reviewed = ? ORDER BY created_at ASC, id ASC`
	args := []any{boolToInt(reviewed)}
	if paging.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, paging.Limit, paging.Offset())
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()

	surveys := make([]domain.Survey, 0)
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	return surveys, rows.Err()
}

// Count returns the number of surveys with the given reviewed flag.
func (r *SurveyRepository) Count(ctx context.Context, reviewed bool) (int, error) {
	var n int
	err := r.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM survey_data WHERE reviewed = ?`, boolToInt(reviewed)).Scan(&n)
	return n, err
}

// Update overwrites the mutable form fields, upserts supplied images and drops images
// whose indicator is no longer set. The reviewed flag is left untouched.
func (r *SurveyRepository) Update(ctx context.Context, survey *domain.Survey, images []domain.SurveyImage) error {
	if survey == nil {
		return errors.New("survey payload is nil")
	}
	if !survey.Location.Valid() {
		return domain.NewValidationError("location", "select location on the map")
	}

	now := r.now().UTC()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE survey_data SET
			latitude = ?, longitude = ?, type_of_use = ?, number_of_users = ?, building_importance_category = ?,
			non_structural_falling_danger = ?, number_of_floors = ?, condition_of_structure = ?, year_of_construction = ?,
			previous_damages = ?, neighboring_buildings_impact = ?, soft_floor = ?, short_column = ?, updated_at = ?
			WHERE id = ?`,
			survey.Location.Latitude, survey.Location.Longitude, string(survey.TypeOfUse), string(survey.NumberOfUsers),
			string(survey.ImportanceCategory), string(survey.NonStructuralFallingDanger), survey.NumberOfFloors,
			string(survey.ConditionOfStructure), survey.YearOfConstruction, string(survey.PreviousDamages),
			string(survey.NeighboringBuildingsImpact), string(survey.SoftFloor), string(survey.ShortColumn),
			toNanos(now), survey.ID)
		if err != nil {
			return fmt.Errorf("update survey: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return notFound("survey", survey.ID)
		}
		for _, category := range survey.DisallowedImageCategories() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM survey_images WHERE survey_id = ? AND image_type = ?`, survey.ID, string(category)); err != nil {
				return fmt.Errorf("delete survey image: %w", err)
			}
		}
		if err := upsertImages(ctx, tx, survey.ID, images); err != nil {
			return err
		}
		survey.UpdatedAt = now
		return nil
	})
}

// Image returns one stored photo.
func (r *SurveyRepository) Image(ctx context.Context, surveyID int64, category domain.ImageCategory) (*domain.SurveyImage, error) {
	img := domain.SurveyImage{SurveyID: surveyID, Category: category}
	err := r.db.db.QueryRowContext(ctx, `SELECT image FROM survey_images WHERE survey_id = ? AND image_type = ?`,
		surveyID, string(category)).Scan(&img.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("survey image", fmt.Sprintf("%d/%s", surveyID, category))
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func upsertImages(ctx context.Context, tx *sql.Tx, surveyID int64, images []domain.SurveyImage) error {
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO survey_images (survey_id, image_type, image) VALUES (?, ?, ?)
			ON CONFLICT (survey_id, image_type) DO UPDATE SET image = excluded.image`,
			surveyID, string(img.Category), img.Data)
		if err != nil {
			return fmt.Errorf("store survey image %s: %w", img.Category, err)
		}
	}
	return nil
}

func withSurveyID(id int64, images []domain.SurveyImage) []domain.SurveyImage {
	if len(images) == 0 {
		return nil
	}
	out := make([]domain.SurveyImage, 0, len(images))
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		img.SurveyID = id
		out = append(out, img)
	}
	return out
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

const (
	tagKindVulnerability = "structural_vulnerability"
	tagKindRetrofitting  = "retrofitting_method"
)

// photoColumns maps review photo slots onto their inline BLOB columns.
var photoColumns = map[domain.ImageCategory]string{
	domain.ImageIrregularVertical:   "irregular_vertical_photo",
	domain.ImageIrregularHorizontal: "irregular_horizontal_photo",
	domain.ImageTorsionRotation:     "torsion_rotation_photo",
	domain.ImageHeavyFinishes:       "heavy_finishes_photo",
	domain.ImageConstructedArea:     "constructed_area_photo",
}

// ReviewRepository persists review_data and keeps survey_data.reviewed in step with it.
type ReviewRepository struct {
	db  *DB
	now func() time.Time
}

func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db, now: time.Now}
}

// Create stores review and flips the survey's reviewed flag in the same transaction.
// A second review for the same survey fails with domain.ErrConflict.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if review == nil {
		return errors.New("review payload is nil")
	}

	reviewedAt := review.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = r.now().UTC()
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var alreadyReviewed int
		err := tx.QueryRowContext(ctx, `SELECT reviewed FROM survey_data WHERE id = ?`, review.SurveyID).Scan(&alreadyReviewed)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("survey", review.SurveyID)
		}
		if err != nil {
			return fmt.Errorf("select survey: %w", err)
		}
		if alreadyReviewed == 1 {
			return fmt.Errorf("survey %d already reviewed: %w", review.SurveyID, domain.ErrConflict)
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO review_data (
			survey_id, structural_system, arrangement_walls,
			irregular_vertical, irregular_vertical_photo,
			irregular_horizontal, irregular_horizontal_photo,
			torsion_rotation, torsion_rotation_photo,
			heavy_finishes, heavy_finishes_photo,
			input_quality, soil_class, load_capacity_reduction,
			constructed_area, constructed_area_photo,
			structure_performance, reviewed, reviewed_at, reviewed_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			review.SurveyID, string(review.StructuralSystem), string(review.ArrangementWalls),
			string(review.IrregularVertical), nullBlob(review.Photos[domain.ImageIrregularVertical]),
			string(review.IrregularHorizontal), nullBlob(review.Photos[domain.ImageIrregularHorizontal]),
			string(review.TorsionRotation), nullBlob(review.Photos[domain.ImageTorsionRotation]),
			string(review.HeavyFinishes), nullBlob(review.Photos[domain.ImageHeavyFinishes]),
			review.InputQuality, string(review.SoilClass), string(review.LoadCapacityReduction),
			review.ConstructedArea.String(), nullBlob(review.Photos[domain.ImageConstructedArea]),
			review.StructurePerformance, toNanos(reviewedAt), review.ReviewedBy)
		if isUniqueViolation(err) {
			return fmt.Errorf("survey %d already reviewed: %w", review.SurveyID, domain.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		if err := insertTags(ctx, tx, id, tagKindVulnerability, review.StructuralVulnerabilities); err != nil {
			return err
		}
		if err := insertTags(ctx, tx, id, tagKindRetrofitting, review.RetrofittingMethods); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE survey_data SET reviewed = 1, updated_at = ? WHERE id = ?`,
			toNanos(reviewedAt), review.SurveyID); err != nil {
			return fmt.Errorf("mark survey reviewed: %w", err)
		}

		review.ID = id
		review.Reviewed = true
		review.ReviewedAt = reviewedAt
		return nil
	})
}

const reviewColumns = `r.id, r.survey_id, r.structural_system, r.arrangement_walls,
	r.irregular_vertical, r.irregular_vertical_photo,
	r.irregular_horizontal, r.irregular_horizontal_photo,
	r.torsion_rotation, r.torsion_rotation_photo,
	r.heavy_finishes, r.heavy_finishes_photo,
	r.input_quality, r.soil_class, r.load_capacity_reduction,
	r.constructed_area, r.constructed_area_photo,
	r.structure_performance, r.reviewed, r.reviewed_at, r.reviewed_by`

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		rv                                   domain.Review
		system, walls                        string
		vertical, horizontal, torsion, heavy string
		soil, reduction, area                string
		verticalPhoto, horizontalPhoto       []byte
		torsionPhoto, heavyPhoto, areaPhoto  []byte
		reviewed                             int
		reviewedAt                           int64
	)
	err := row.Scan(&rv.ID, &rv.SurveyID, &system, &walls,
		&vertical, &verticalPhoto,
		&horizontal, &horizontalPhoto,
		&torsion, &torsionPhoto,
		&heavy, &heavyPhoto,
		&rv.InputQuality, &soil, &reduction,
		&area, &areaPhoto,
		&rv.StructurePerformance, &reviewed, &reviewedAt, &rv.ReviewedBy)
	if err != nil {
		return domain.Review{}, err
	}
	rv.StructuralSystem = domain.StructuralSystem(system)
	rv.ArrangementWalls = domain.Answer(walls)
	rv.IrregularVertical = domain.Answer(vertical)
	rv.IrregularHorizontal = domain.Answer(horizontal)
	rv.TorsionRotation = domain.Answer(torsion)
	rv.HeavyFinishes = domain.Answer(heavy)
	rv.SoilClass = domain.SoilClass(soil)
	rv.LoadCapacityReduction = domain.LoadCapacityReduction(reduction)
	if rv.ConstructedArea, err = decimal.NewFromString(area); err != nil {
		return domain.Review{}, fmt.Errorf("constructed_area %q: %w", area, err)
	}
	rv.Reviewed = reviewed == 1
	rv.ReviewedAt = fromNanos(reviewedAt)

	photos := map[domain.ImageCategory][]byte{
		domain.ImageIrregularVertical:   verticalPhoto,
		domain.ImageIrregularHorizontal: horizontalPhoto,
		domain.ImageTorsionRotation:     torsionPhoto,
		domain.ImageHeavyFinishes:       heavyPhoto,
		domain.ImageConstructedArea:     areaPhoto,
	}
	for category, data := range photos {
		if len(data) == 0 {
			continue
		}
		if rv.Photos == nil {
			rv.Photos = make(map[domain.ImageCategory][]byte)
		}
		rv.Photos[category] = data
	}
	return rv, nil
}

// FindBySurveyID returns the review attached to surveyID.
func (r *ReviewRepository) FindBySurveyID(ctx context.Context, surveyID int64) (*domain.Review, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM review_data r WHERE r.survey_id = ?`, surveyID)
	review, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("review for survey", surveyID)
	}
	if err != nil {
		return nil, fmt.Errorf("select review: %w", err)
	}
	if err := r.loadTags(ctx, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// Image returns one photo of a review.
func (r *ReviewRepository) Image(ctx context.Context, reviewID int64, category domain.ImageCategory) ([]byte, error) {
	column, ok := photoColumns[category]
	if !ok {
		return nil, domain.NewValidationError("image_type", "unknown review image category %q", category)
	}
	var data []byte
	err := r.db.db.QueryRowContext(ctx, `SELECT `+column+` FROM review_data WHERE id = ?`, reviewID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("review", reviewID)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, notFound("review image", fmt.Sprintf("%d/%s", reviewID, category))
	}
	return data, nil
}

// FindReviewed pairs reviewed surveys with their reviews in survey insertion order.
func (r *ReviewRepository) FindReviewed(ctx context.Context, paging domain.Paging) ([]domain.ReviewedSurvey, error) {
	surveys, err := listSurveys(ctx, r.db, true, paging)
	if err != nil {
		return nil, err
	}

	result := make([]domain.ReviewedSurvey, 0, len(surveys))
	for _, survey := range surveys {
		review, err := r.FindBySurveyID(ctx, survey.ID)
		if errors.Is(err, domain.ErrNotFound) {
			// flag set by a store that predates review_data rows
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, domain.ReviewedSurvey{Survey: survey, Review: *review})
	}
	return result, nil
}

func (r *ReviewRepository) loadTags(ctx context.Context, review *domain.Review) error {
	rows, err := r.db.db.QueryContext(ctx, `SELECT kind, tag FROM review_tags WHERE review_id = ? ORDER BY kind, position`, review.ID)
	if err != nil {
		return fmt.Errorf("select review tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, tag string
		if err := rows.Scan(&kind, &tag); err != nil {
			return err
		}
		switch kind {
		case tagKindVulnerability:
			review.StructuralVulnerabilities = append(review.StructuralVulnerabilities, tag)
		case tagKindRetrofitting:
			review.RetrofittingMethods = append(review.RetrofittingMethods, tag)
		}
	}
	return rows.Err()
}

func insertTags(ctx context.Context, tx *sql.Tx, reviewID int64, kind string, tags domain.TagSet) error {
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO review_tags (review_id, kind, position, tag) VALUES (?, ?, ?, ?)`,
			reviewID, kind, i, tag); err != nil {
			return fmt.Errorf("insert %s tag: %w", kind, err)
		}
	}
	return nil
}

func nullBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

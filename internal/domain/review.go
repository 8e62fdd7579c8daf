package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	ImageIrregularVertical   ImageCategory = "irregular_vertical"
	ImageIrregularHorizontal ImageCategory = "irregular_horizontal"
	ImageTorsionRotation     ImageCategory = "torsion_rotation"
	ImageHeavyFinishes       ImageCategory = "heavy_finishes"
	ImageConstructedArea     ImageCategory = "constructed_area"
)

// ReviewImageCategories lists the photo slots of the reviewer form.
var ReviewImageCategories = []ImageCategory{
	ImageIrregularVertical,
	ImageIrregularHorizontal,
	ImageTorsionRotation,
	ImageHeavyFinishes,
	ImageConstructedArea,
}

func NewReviewImageCategory(value string) (ImageCategory, error) {
	for _, c := range ReviewImageCategories {
		if string(c) == value {
			return c, nil
		}
	}
	return "", NewValidationError("image_type", "unknown review image category %q", value)
}

// Review is the engineering assessment attached to one survey.
type Review struct {
	ID                        int64
	SurveyID                  int64
	StructuralSystem          StructuralSystem
	ArrangementWalls          Answer
	IrregularVertical         Answer
	IrregularHorizontal       Answer
	TorsionRotation           Answer
	StructuralVulnerabilities TagSet
	HeavyFinishes             Answer
	InputQuality              int
	SoilClass                 SoilClass
	LoadCapacityReduction     LoadCapacityReduction
	ConstructedArea           decimal.Decimal
	StructurePerformance      string
	RetrofittingMethods       TagSet
	Reviewed                  bool
	ReviewedAt                time.Time
	ReviewedBy                string
	Photos                    map[ImageCategory][]byte
}

// HasPhoto reports whether a photo is stored in category.
func (r *Review) HasPhoto(category ImageCategory) bool {
	return len(r.Photos[category]) > 0
}

// PhotoAllowed reports whether the assessment permits a photo in category.
func (r *Review) PhotoAllowed(category ImageCategory) bool {
	switch category {
	case ImageIrregularVertical:
		return r.IrregularVertical.Yes()
	case ImageIrregularHorizontal:
		return r.IrregularHorizontal.Yes()
	case ImageTorsionRotation:
		return r.TorsionRotation.Yes()
	case ImageHeavyFinishes:
		return r.HeavyFinishes.Yes()
	case ImageConstructedArea:
		return true
	}
	return false
}

// ReviewInput carries unvalidated reviewer form values.
type ReviewInput struct {
	StructuralSystem          string
	ArrangementWalls          string
	IrregularVertical         string
	IrregularHorizontal       string
	TorsionRotation           string
	StructuralVulnerabilities []string
	HeavyFinishes             string
	InputQuality              int
	SoilClass                 string
	LoadCapacityReduction     string
	ConstructedArea           string
	StructurePerformance      string
	RetrofittingMethods       []string
	Photos                    map[ImageCategory][]byte
}

// BuildReview validates input for surveyID. Photos are checked but not attached.
func BuildReview(surveyID int64, input ReviewInput) (*Review, error) {
	if surveyID <= 0 {
		return nil, NewValidationError("survey_id", "must reference an existing survey")
	}
	system, err := NewStructuralSystem(input.StructuralSystem)
	if err != nil {
		return nil, err
	}
	quality, err := NewInputQuality(input.InputQuality)
	if err != nil {
		return nil, err
	}
	soil, err := NewSoilClass(input.SoilClass)
	if err != nil {
		return nil, err
	}
	reduction, err := NewLoadCapacityReduction(input.LoadCapacityReduction)
	if err != nil {
		return nil, err
	}
	area, err := NewConstructedArea(input.ConstructedArea)
	if err != nil {
		return nil, err
	}
	vulnerabilities, err := NewTagSet("structural_vulnerabilities", input.StructuralVulnerabilities)
	if err != nil {
		return nil, err
	}
	methods, err := NewTagSet("retrofitting_methods", input.RetrofittingMethods)
	if err != nil {
		return nil, err
	}
	performance := strings.TrimSpace(input.StructurePerformance)
	if utf8.RuneCountInString(performance) > MaxNarrativeRunes {
		return nil, NewValidationError("structure_performance", "must be at most %d characters", MaxNarrativeRunes)
	}

	review := &Review{
		SurveyID:                  surveyID,
		StructuralSystem:          system,
		StructuralVulnerabilities: vulnerabilities,
		InputQuality:              quality,
		SoilClass:                 soil,
		LoadCapacityReduction:     reduction,
		ConstructedArea:           area,
		StructurePerformance:      performance,
		RetrofittingMethods:       methods,
	}
	answers := []struct {
		field string
		raw   string
		dst   *Answer
	}{
		{"arrangement_walls", input.ArrangementWalls, &review.ArrangementWalls},
		{"irregular_vertical", input.IrregularVertical, &review.IrregularVertical},
		{"irregular_horizontal", input.IrregularHorizontal, &review.IrregularHorizontal},
		{"torsion_rotation", input.TorsionRotation, &review.TorsionRotation},
		{"heavy_finishes", input.HeavyFinishes, &review.HeavyFinishes},
	}
	for _, a := range answers {
		v, err := NewAnswer(a.field, a.raw)
		if err != nil {
			return nil, err
		}
		*a.dst = v
	}
	for category, raw := range input.Photos {
		if len(raw) == 0 {
			continue
		}
		if !review.PhotoAllowed(category) {
			return nil, NewValidationError(string(category), "photo supplied but the indicator is not set")
		}
	}
	return review, nil
}

// NewConstructedArea parses the floor area in square metres. Empty means zero.
func NewConstructedArea(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	area, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, NewValidationError("constructed_area", "must be a number")
	}
	if area.IsNegative() {
		return decimal.Zero, NewValidationError("constructed_area", "must be >= 0")
	}
	return area, nil
}

// ReviewedSurvey pairs a survey with its review for the reviewed listings.
type ReviewedSurvey struct {
	Survey Survey
	Review Review
}

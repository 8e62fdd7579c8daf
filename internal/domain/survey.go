package domain

import "time"

// ImageCategory tags a photo with the form question it documents.
type ImageCategory string

const (
	ImageNonStructuralFallingDanger ImageCategory = "non_structural_falling_danger"
	ImageNumberOfFloors             ImageCategory = "number_of_floors"
	ImageConditionOfStructure       ImageCategory = "condition_of_structure"
	ImagePreviousDamages            ImageCategory = "previous_damages"
	ImageNeighboringBuildingsImpact ImageCategory = "neighboring_buildings_impact"
	ImageSoftFloor                  ImageCategory = "soft_floor"
	ImageShortColumn                ImageCategory = "short_column"
)

// SurveyImageCategories lists every photo slot of the intake form in display order.
var SurveyImageCategories = []ImageCategory{
	ImageNonStructuralFallingDanger,
	ImageNumberOfFloors,
	ImageConditionOfStructure,
	ImagePreviousDamages,
	ImageNeighboringBuildingsImpact,
	ImageSoftFloor,
	ImageShortColumn,
}

func NewSurveyImageCategory(value string) (ImageCategory, error) {
	for _, c := range SurveyImageCategories {
		if string(c) == value {
			return c, nil
		}
	}
	return "", NewValidationError("image_type", "unknown survey image category %q", value)
}

// Survey is one citizen submission.
type Survey struct {
	ID                         int64
	Location                   Location
	TypeOfUse                  TypeOfUse
	NumberOfUsers              NumberOfUsers
	ImportanceCategory         ImportanceCategory
	NonStructuralFallingDanger Answer
	NumberOfFloors             int
	ConditionOfStructure       Answer
	YearOfConstruction         int
	PreviousDamages            Answer
	NeighboringBuildingsImpact Answer
	SoftFloor                  Answer
	ShortColumn                Answer
	Reviewed                   bool
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
	Images                     []SurveyImage
}

// SurveyImage is a normalised photo attached to a survey.
type SurveyImage struct {
	SurveyID int64
	Category ImageCategory
	Data     []byte
}

// PhotoAllowed reports whether the survey's answers permit a photo in category.
func (s *Survey) PhotoAllowed(category ImageCategory) bool {
	switch category {
	case ImageNonStructuralFallingDanger:
		return s.NonStructuralFallingDanger.Yes()
	case ImageNumberOfFloors:
		return s.NumberOfFloors > 0
	case ImageConditionOfStructure:
		return s.ConditionOfStructure.Yes()
	case ImagePreviousDamages:
		return s.PreviousDamages.Yes()
	case ImageNeighboringBuildingsImpact:
		return s.NeighboringBuildingsImpact.Yes()
	case ImageSoftFloor:
		return s.SoftFloor.Yes()
	case ImageShortColumn:
		return s.ShortColumn.Yes()
	}
	return false
}

// DisallowedImageCategories returns the photo slots that must be empty for the current answers.
func (s *Survey) DisallowedImageCategories() []ImageCategory {
	var result []ImageCategory
	for _, c := range SurveyImageCategories {
		if !s.PhotoAllowed(c) {
			result = append(result, c)
		}
	}
	return result
}

// SurveyInput carries unvalidated form values. Nil coordinates mean no map selection.
type SurveyInput struct {
	Latitude                   *float64
	Longitude                  *float64
	TypeOfUse                  string
	NumberOfUsers              string
	ImportanceCategory         string
	NonStructuralFallingDanger string
	NumberOfFloors             int
	ConditionOfStructure       string
	YearOfConstruction         int
	PreviousDamages            string
	NeighboringBuildingsImpact string
	SoftFloor                  string
	ShortColumn                string
	Photos                     map[ImageCategory][]byte
}

// BuildSurvey validates input and returns the survey it describes. Photos are checked
// against the answers but not attached; they still need normalising.
func BuildSurvey(input SurveyInput, now time.Time) (*Survey, error) {
	loc, err := NewLocation(input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}
	typeOfUse, err := NewTypeOfUse(input.TypeOfUse)
	if err != nil {
		return nil, err
	}
	users, err := NewNumberOfUsers(input.NumberOfUsers)
	if err != nil {
		return nil, err
	}
	importance, err := NewImportanceCategory(input.ImportanceCategory)
	if err != nil {
		return nil, err
	}
	floors, err := NewFloorCount(input.NumberOfFloors)
	if err != nil {
		return nil, err
	}
	year, err := NewConstructionYear(input.YearOfConstruction, now)
	if err != nil {
		return nil, err
	}

	survey := &Survey{
		Location:           loc,
		TypeOfUse:          typeOfUse,
		NumberOfUsers:      users,
		ImportanceCategory: importance,
		NumberOfFloors:     floors,
		YearOfConstruction: year,
	}
	answers := []struct {
		field string
		raw   string
		dst   *Answer
	}{
		{"non_structural_falling_danger", input.NonStructuralFallingDanger, &survey.NonStructuralFallingDanger},
		{"condition_of_structure", input.ConditionOfStructure, &survey.ConditionOfStructure},
		{"previous_damages", input.PreviousDamages, &survey.PreviousDamages},
		{"neighboring_buildings_impact", input.NeighboringBuildingsImpact, &survey.NeighboringBuildingsImpact},
		{"soft_floor", input.SoftFloor, &survey.SoftFloor},
		{"short_column", input.ShortColumn, &survey.ShortColumn},
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
		if !survey.PhotoAllowed(category) {
			return nil, NewValidationError(string(category), "photo supplied but the indicator is not set")
		}
	}
	return survey, nil
}

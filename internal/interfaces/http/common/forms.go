package common

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// ParseForm accepts multipart and urlencoded bodies alike.
func ParseForm(r *http.Request) error {
	err := r.ParseMultipartForm(MaxMultipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return domain.NewValidationError("", "malformed form: %v", err)
	}
	return nil
}

// ReadPhotos collects the photo_<category> files present in a parsed multipart form.
// Files larger than maxBytes are rejected before they are fully read.
func ReadPhotos(r *http.Request, categories []domain.ImageCategory, maxBytes int64) (map[domain.ImageCategory][]byte, error) {
	photos := make(map[domain.ImageCategory][]byte)
	if r.MultipartForm == nil {
		return photos, nil
	}
	for _, category := range categories {
		file, _, err := r.FormFile(PhotoFieldPrefix + string(category))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s photo: %w", category, err)
		}
		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s photo: %w", category, err)
		}
		if int64(len(data)) > maxBytes {
			return nil, domain.NewValidationError(string(category), "photo exceeds %d bytes", maxBytes)
		}
		if len(data) > 0 {
			photos[category] = data
		}
	}
	return photos, nil
}

// SurveyInputFromForm reads the survey fields and photos of a parsed form. Blank
// coordinates leave the location unset.
func SurveyInputFromForm(r *http.Request, maxPhotoBytes int64) (domain.SurveyInput, error) {
	lat, err := ParseOptionalFloat("latitude", r.FormValue("latitude"))
	if err != nil {
		return domain.SurveyInput{}, err
	}
	lng, err := ParseOptionalFloat("longitude", r.FormValue("longitude"))
	if err != nil {
		return domain.SurveyInput{}, err
	}
	floors, err := ParseOptionalInt("number_of_floors", r.FormValue("number_of_floors"))
	if err != nil {
		return domain.SurveyInput{}, err
	}
	year, err := ParseOptionalInt("year_of_construction", r.FormValue("year_of_construction"))
	if err != nil {
		return domain.SurveyInput{}, err
	}
	photos, err := ReadPhotos(r, domain.SurveyImageCategories, maxPhotoBytes)
	if err != nil {
		return domain.SurveyInput{}, err
	}

	field := func(name string) string { return strings.TrimSpace(r.FormValue(name)) }
	return domain.SurveyInput{
		Latitude:                   lat,
		Longitude:                  lng,
		TypeOfUse:                  field("type_of_use"),
		NumberOfUsers:              field("number_of_users"),
		ImportanceCategory:         field("building_importance_category"),
		NonStructuralFallingDanger: field("non_structural_falling_danger"),
		NumberOfFloors:             floors,
		ConditionOfStructure:       field("condition_of_structure"),
		YearOfConstruction:         year,
		PreviousDamages:            field("previous_damages"),
		NeighboringBuildingsImpact: field("neighboring_buildings_impact"),
		SoftFloor:                  field("soft_floor"),
		ShortColumn:                field("short_column"),
		Photos:                     photos,
	}, nil
}

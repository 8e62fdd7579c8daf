package admin

import (
	"fmt"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

type locationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type imageResponse struct {
	Category domain.ImageCategory `json:"category"`
	URL      string               `json:"url"`
}

type surveyResponse struct {
	ID                         int64           `json:"id"`
	Location                   locationBody    `json:"location"`
	TypeOfUse                  string          `json:"typeOfUse"`
	NumberOfUsers              string          `json:"numberOfUsers"`
	ImportanceCategory         string          `json:"buildingImportanceCategory"`
	NonStructuralFallingDanger string          `json:"nonStructuralFallingDanger"`
	NumberOfFloors             int             `json:"numberOfFloors"`
	ConditionOfStructure       string          `json:"conditionOfStructure"`
	YearOfConstruction         int             `json:"yearOfConstruction"`
	PreviousDamages            string          `json:"previousDamages"`
	NeighboringBuildingsImpact string          `json:"neighboringBuildingsImpact"`
	SoftFloor                  string          `json:"softFloor"`
	ShortColumn                string          `json:"shortColumn"`
	Reviewed                   bool            `json:"reviewed"`
	CreatedAt                  time.Time       `json:"createdAt"`
	UpdatedAt                  time.Time       `json:"updatedAt"`
	Images                     []imageResponse `json:"images,omitempty"`
	Review                     *reviewResponse `json:"review,omitempty"`
}

type reviewResponse struct {
	ID                        int64           `json:"id"`
	SurveyID                  int64           `json:"surveyId"`
	StructuralSystem          string          `json:"structuralSystem"`
	ArrangementWalls          string          `json:"arrangementWalls"`
	IrregularVertical         string          `json:"irregularVertical"`
	IrregularHorizontal       string          `json:"irregularHorizontal"`
	TorsionRotation           string          `json:"torsionRotation"`
	StructuralVulnerabilities []string        `json:"structuralVulnerabilities"`
	HeavyFinishes             string          `json:"heavyFinishes"`
	InputQuality              int             `json:"inputQuality"`
	SoilClass                 string          `json:"soilClass"`
	LoadCapacityReduction     string          `json:"loadCapacityReduction"`
	ConstructedArea           string          `json:"constructedArea"`
	StructurePerformance      string          `json:"structurePerformance"`
	RetrofittingMethods       []string        `json:"retrofittingMethods"`
	ReviewedAt                time.Time       `json:"reviewedAt"`
	ReviewedBy                string          `json:"reviewedBy,omitempty"`
	Photos                    []imageResponse `json:"photos,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func surveyToResponse(s domain.Survey) surveyResponse {
	resp := surveyResponse{
		ID:                         s.ID,
		Location:                   locationBody{Latitude: s.Location.Latitude, Longitude: s.Location.Longitude},
		TypeOfUse:                  string(s.TypeOfUse),
		NumberOfUsers:              string(s.NumberOfUsers),
		ImportanceCategory:         string(s.ImportanceCategory),
		NonStructuralFallingDanger: string(s.NonStructuralFallingDanger),
		NumberOfFloors:             s.NumberOfFloors,
		ConditionOfStructure:       string(s.ConditionOfStructure),
		YearOfConstruction:         s.YearOfConstruction,
		PreviousDamages:            string(s.PreviousDamages),
		NeighboringBuildingsImpact: string(s.NeighboringBuildingsImpact),
		SoftFloor:                  string(s.SoftFloor),
		ShortColumn:                string(s.ShortColumn),
		Reviewed:                   s.Reviewed,
		CreatedAt:                  s.CreatedAt,
		UpdatedAt:                  s.UpdatedAt,
	}
	for _, img := range s.Images {
		resp.Images = append(resp.Images, imageResponse{
			Category: img.Category,
			URL:      fmt.Sprintf("/admin/surveys/%d/images/%s", s.ID, img.Category),
		})
	}
	return resp
}

func reviewToResponse(r domain.Review) *reviewResponse {
	resp := &reviewResponse{
		ID:                        r.ID,
		SurveyID:                  r.SurveyID,
		StructuralSystem:          string(r.StructuralSystem),
		ArrangementWalls:          string(r.ArrangementWalls),
		IrregularVertical:         string(r.IrregularVertical),
		IrregularHorizontal:       string(r.IrregularHorizontal),
		TorsionRotation:           string(r.TorsionRotation),
		StructuralVulnerabilities: r.StructuralVulnerabilities.Strings(),
		HeavyFinishes:             string(r.HeavyFinishes),
		InputQuality:              r.InputQuality,
		SoilClass:                 string(r.SoilClass),
		LoadCapacityReduction:     string(r.LoadCapacityReduction),
		ConstructedArea:           r.ConstructedArea.String(),
		StructurePerformance:      r.StructurePerformance,
		RetrofittingMethods:       r.RetrofittingMethods.Strings(),
		ReviewedAt:                r.ReviewedAt,
		ReviewedBy:                r.ReviewedBy,
	}
	for _, category := range domain.ReviewImageCategories {
		if r.HasPhoto(category) {
			resp.Photos = append(resp.Photos, imageResponse{
				Category: category,
				URL:      fmt.Sprintf("/admin/reviews/%d/images/%s", r.ID, category),
			})
		}
	}
	return resp
}

func reviewedToResponse(row domain.ReviewedSurvey) surveyResponse {
	resp := surveyToResponse(row.Survey)
	resp.Review = reviewToResponse(row.Review)
	return resp
}

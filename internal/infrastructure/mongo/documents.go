package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// LocationDocument is stored as GeoJSON-compatible lat/lng pair.
type LocationDocument struct {
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
}

// SurveyDocument is the Mongo shape of one citizen submission. Images live in their own collection.
type SurveyDocument struct {
	ID                         int64            `bson:"_id"`
	Location                   LocationDocument `bson:"location"`
	TypeOfUse                  string           `bson:"typeOfUse"`
	NumberOfUsers              string           `bson:"numberOfUsers"`
	ImportanceCategory         string           `bson:"buildingImportanceCategory"`
	NonStructuralFallingDanger string           `bson:"nonStructuralFallingDanger"`
	NumberOfFloors             int              `bson:"numberOfFloors"`
	ConditionOfStructure       string           `bson:"conditionOfStructure"`
	YearOfConstruction         int              `bson:"yearOfConstruction"`
	PreviousDamages            string           `bson:"previousDamages"`
	NeighboringBuildingsImpact string           `bson:"neighboringBuildingsImpact"`
	SoftFloor                  string           `bson:"softFloor"`
	ShortColumn                string           `bson:"shortColumn"`
	Reviewed                   bool             `bson:"reviewed"`
	CreatedAt                  time.Time        `bson:"createdAt"`
	UpdatedAt                  time.Time        `bson:"updatedAt"`
}

// SurveyImageDocument holds one normalised photo keyed by (surveyId, category).
type SurveyImageDocument struct {
	SurveyID int64  `bson:"surveyId"`
	Category string `bson:"category"`
	Data     []byte `bson:"data"`
}

// ReviewDocument is the reviewer assessment. survey_id carries a unique index.
type ReviewDocument struct {
	ID                        int64             `bson:"_id"`
	SurveyID                  int64             `bson:"surveyId"`
	StructuralSystem          string            `bson:"structuralSystem"`
	ArrangementWalls          string            `bson:"arrangementWalls"`
	IrregularVertical         string            `bson:"irregularVertical"`
	IrregularHorizontal       string            `bson:"irregularHorizontal"`
	TorsionRotation           string            `bson:"torsionRotation"`
	StructuralVulnerabilities []string          `bson:"structuralVulnerabilities,omitempty"`
	HeavyFinishes             string            `bson:"heavyFinishes"`
	InputQuality              int               `bson:"inputQuality"`
	SoilClass                 string            `bson:"soilClass"`
	LoadCapacityReduction     string            `bson:"loadCapacityReduction"`
	ConstructedArea           string            `bson:"constructedArea"`
	StructurePerformance      string            `bson:"structurePerformance,omitempty"`
	RetrofittingMethods       []string          `bson:"retrofittingMethods,omitempty"`
	Photos                    map[string][]byte `bson:"photos,omitempty"`
	ReviewedAt                time.Time         `bson:"reviewedAt"`
	ReviewedBy                string            `bson:"reviewedBy,omitempty"`
}

type UserDocument struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func surveyToDocument(s *domain.Survey) SurveyDocument {
	return SurveyDocument{
		ID:                         s.ID,
		Location:                   LocationDocument{Latitude: s.Location.Latitude, Longitude: s.Location.Longitude},
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
}

func mapSurveyDocument(doc SurveyDocument) domain.Survey {
	return domain.Survey{
		ID:                         doc.ID,
		Location:                   domain.Location{Latitude: doc.Location.Latitude, Longitude: doc.Location.Longitude},
		TypeOfUse:                  domain.TypeOfUse(doc.TypeOfUse),
		NumberOfUsers:              domain.NumberOfUsers(doc.NumberOfUsers),
		ImportanceCategory:         domain.ImportanceCategory(doc.ImportanceCategory),
		NonStructuralFallingDanger: domain.Answer(doc.NonStructuralFallingDanger),
		NumberOfFloors:             doc.NumberOfFloors,
		ConditionOfStructure:       domain.Answer(doc.ConditionOfStructure),
		YearOfConstruction:         doc.YearOfConstruction,
		PreviousDamages:            domain.Answer(doc.PreviousDamages),
		NeighboringBuildingsImpact: domain.Answer(doc.NeighboringBuildingsImpact),
		SoftFloor:                  domain.Answer(doc.SoftFloor),
		ShortColumn:                domain.Answer(doc.ShortColumn),
		Reviewed:                   doc.Reviewed,
		CreatedAt:                  doc.CreatedAt.UTC(),
		UpdatedAt:                  doc.UpdatedAt.UTC(),
	}
}

func reviewToDocument(r *domain.Review) ReviewDocument {
	doc := ReviewDocument{
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
	for category, data := range r.Photos {
		if len(data) == 0 {
			continue
		}
		if doc.Photos == nil {
			doc.Photos = make(map[string][]byte)
		}
		doc.Photos[string(category)] = data
	}
	return doc
}

func mapReviewDocument(doc ReviewDocument) (domain.Review, error) {
	area, err := decimal.NewFromString(doc.ConstructedArea)
	if err != nil {
		return domain.Review{}, fmt.Errorf("constructedArea %q: %w", doc.ConstructedArea, err)
	}
	review := domain.Review{
		ID:                        doc.ID,
		SurveyID:                  doc.SurveyID,
		StructuralSystem:          domain.StructuralSystem(doc.StructuralSystem),
		ArrangementWalls:          domain.Answer(doc.ArrangementWalls),
		IrregularVertical:         domain.Answer(doc.IrregularVertical),
		IrregularHorizontal:       domain.Answer(doc.IrregularHorizontal),
		TorsionRotation:           domain.Answer(doc.TorsionRotation),
		StructuralVulnerabilities: tagSet(doc.StructuralVulnerabilities),
		HeavyFinishes:             domain.Answer(doc.HeavyFinishes),
		InputQuality:              doc.InputQuality,
		SoilClass:                 domain.SoilClass(doc.SoilClass),
		LoadCapacityReduction:     domain.LoadCapacityReduction(doc.LoadCapacityReduction),
		ConstructedArea:           area,
		StructurePerformance:      doc.StructurePerformance,
		RetrofittingMethods:       tagSet(doc.RetrofittingMethods),
		Reviewed:                  true,
		ReviewedAt:                doc.ReviewedAt.UTC(),
		ReviewedBy:                doc.ReviewedBy,
	}
	for category, data := range doc.Photos {
		if review.Photos == nil {
			review.Photos = make(map[domain.ImageCategory][]byte)
		}
		review.Photos[domain.ImageCategory(category)] = data
	}
	return review, nil
}

func tagSet(values []string) domain.TagSet {
	if len(values) == 0 {
		return nil
	}
	return domain.TagSet(values)
}

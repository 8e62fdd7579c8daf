package domain

import (
	"math"
	"strings"
	"time"
)

var (
	TypesOfUse             = []string{"Residential", "Industrial", "Concentrated audience", "Public Building", "Emergency Building"}
	NumberOfUsersBuckets   = []string{"0-10", "11-100", "100+"}
	ImportanceCategories   = []string{"Σ1", "Σ2", "Σ3", "Σ4"}
	StructuralSystems      = []string{"RC frame", "RC dual", "Unreinforced masonry", "Reinforced masonry", "Steel", "Timber", "Mixed"}
	SoilClasses            = []string{"A", "B", "C"}
	LoadCapacityReductions = []string{"None", "Minor", "Moderate", "Severe"}
)

const (
	MinFloors           = 0
	MaxFloors           = 10
	MinConstructionYear = 1920
	MinInputQuality     = 1
	MaxInputQuality     = 5
	MaxNarrativeRunes   = 4000
)

func oneOf(field, value string, allowed []string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", NewValidationError(field, "is required")
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, trimmed) {
			return candidate, nil
		}
	}
	return "", NewValidationError(field, "invalid value %q", trimmed)
}

type TypeOfUse string

func NewTypeOfUse(value string) (TypeOfUse, error) {
	if strings.EqualFold(strings.TrimSpace(value), "Emergency Buildig") {
		value = "Emergency Building"
	}
	v, err := oneOf("type_of_use", value, TypesOfUse)
	return TypeOfUse(v), err
}

type NumberOfUsers string

func NewNumberOfUsers(value string) (NumberOfUsers, error) {
	v, err := oneOf("number_of_users", value, NumberOfUsersBuckets)
	return NumberOfUsers(v), err
}

type ImportanceCategory string

func NewImportanceCategory(value string) (ImportanceCategory, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 2 && (trimmed[0] == 'S' || trimmed[0] == 's') {
		trimmed = "Σ" + trimmed[1:]
	}
	v, err := oneOf("building_importance_category", trimmed, ImportanceCategories)
	return ImportanceCategory(v), err
}

// Answer is a yes/no indicator value.
type Answer string

const (
	AnswerNo  Answer = "No"
	AnswerYes Answer = "Yes"
)

// NewAnswer accepts the canonical values plus the labels used on the intake form.
// An empty value means No.
func NewAnswer(field, value string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "no", "false", "0":
		return AnswerNo, nil
	case "yes", "true", "1", "yes (provide photo)", "rust/spalling (provide photo)":
		return AnswerYes, nil
	}
	return "", NewValidationError(field, "must be Yes or No")
}

func (a Answer) Yes() bool {
	return a == AnswerYes
}

func NewFloorCount(value int) (int, error) {
	if value < MinFloors || value > MaxFloors {
		return 0, NewValidationError("number_of_floors", "must be between %d and %d", MinFloors, MaxFloors)
	}
	return value, nil
}

// NewConstructionYear bounds the year to [MinConstructionYear, now.Year()].
func NewConstructionYear(value int, now time.Time) (int, error) {
	if value < MinConstructionYear || value > now.Year() {
		return 0, NewValidationError("year_of_construction", "must be between %d and %d", MinConstructionYear, now.Year())
	}
	return value, nil
}

type Location struct {
	Latitude  float64
	Longitude float64
}

// NewLocation requires a selected point; nil coordinates mean the picker yielded nothing.
func NewLocation(lat, lng *float64) (Location, error) {
	if lat == nil || lng == nil {
		return Location{}, NewValidationError("location", "select location on the map")
	}
	if math.IsNaN(*lat) || *lat < -90 || *lat > 90 {
		return Location{}, NewValidationError("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(*lng) || *lng < -180 || *lng > 180 {
		return Location{}, NewValidationError("longitude", "must be between -180 and 180")
	}
	return Location{Latitude: *lat, Longitude: *lng}, nil
}

// Valid reports whether l is a point on the globe.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

type StructuralSystem string

func NewStructuralSystem(value string) (StructuralSystem, error) {
	v, err := oneOf("structural_system", value, StructuralSystems)
	return StructuralSystem(v), err
}

type SoilClass string

func NewSoilClass(value string) (SoilClass, error) {
	v, err := oneOf("soil_class", value, SoilClasses)
	return SoilClass(v), err
}

type LoadCapacityReduction string

func NewLoadCapacityReduction(value string) (LoadCapacityReduction, error) {
	v, err := oneOf("load_capacity_reduction", value, LoadCapacityReductions)
	return LoadCapacityReduction(v), err
}

func NewInputQuality(value int) (int, error) {
	if value < MinInputQuality || value > MaxInputQuality {
		return 0, NewValidationError("input_quality", "must be between %d and %d", MinInputQuality, MaxInputQuality)
	}
	return value, nil
}

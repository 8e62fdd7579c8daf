package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func validSurveyInput() SurveyInput {
	return SurveyInput{
		Latitude:           f64(40.0),
		Longitude:          f64(22.5),
		TypeOfUse:          "Residential",
		NumberOfUsers:      "0-10",
		ImportanceCategory: "Σ2",
		NumberOfFloors:     3,
		YearOfConstruction: 1985,
	}
}

func TestBuildSurvey_Valid(t *testing.T) {
	s, err := BuildSurvey(validSurveyInput(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 40.0, s.Location.Latitude)
	assert.Equal(t, 22.5, s.Location.Longitude)
	assert.Equal(t, TypeOfUse("Residential"), s.TypeOfUse)
	assert.Equal(t, AnswerNo, s.SoftFloor)
	assert.False(t, s.Reviewed)
}

func TestBuildSurvey_MissingLocation(t *testing.T) {
	in := validSurveyInput()
	in.Latitude = nil
	_, err := BuildSurvey(in, time.Now())
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "location", verr.Field)
}

func TestBuildSurvey_Bounds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]func(*SurveyInput){
		"floors too high": func(in *SurveyInput) { in.NumberOfFloors = 11 },
		"floors negative": func(in *SurveyInput) { in.NumberOfFloors = -1 },
		"year too old":    func(in *SurveyInput) { in.YearOfConstruction = 1919 },
		"year in future":  func(in *SurveyInput) { in.YearOfConstruction = 2027 },
		"latitude":        func(in *SurveyInput) { in.Latitude = f64(91) },
		"latitude nan":    func(in *SurveyInput) { in.Latitude = f64(math.NaN()) },
		"longitude nan":   func(in *SurveyInput) { in.Longitude = f64(math.NaN()) },
		"type of use":     func(in *SurveyInput) { in.TypeOfUse = "Spaceport" },
		"answer":          func(in *SurveyInput) { in.SoftFloor = "maybe" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validSurveyInput()
			mutate(&in)
			_, err := BuildSurvey(in, now)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}

func TestNewLocation_NaNNamesTheAxis(t *testing.T) {
	_, err := NewLocation(f64(math.NaN()), f64(22.5))
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "latitude", verr.Field)

	_, err = NewLocation(f64(40), f64(math.NaN()))
	verr, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "longitude", verr.Field)
}

func TestBuildSurvey_PhotoRequiresIndicator(t *testing.T) {
	in := validSurveyInput()
	in.Photos = map[ImageCategory][]byte{ImageSoftFloor: []byte("x")}
	_, err := BuildSurvey(in, time.Now())
	assert.True(t, IsValidation(err))

	in.SoftFloor = "Yes (Provide Photo)"
	s, err := BuildSurvey(in, time.Now())
	require.NoError(t, err)
	assert.True(t, s.SoftFloor.Yes())
	assert.NotContains(t, s.DisallowedImageCategories(), ImageSoftFloor)
	assert.Contains(t, s.DisallowedImageCategories(), ImageShortColumn)
}

func TestImportanceCategory_ASCIIAlias(t *testing.T) {
	v, err := NewImportanceCategory("s4")
	require.NoError(t, err)
	assert.Equal(t, ImportanceCategory("Σ4"), v)
}

func TestTags_JoinSplitRoundTrip(t *testing.T) {
	tags, err := NewTagSet("structural_vulnerabilities", []string{"Soft floor", "Short column"})
	require.NoError(t, err)
	assert.Equal(t, "Soft floor,Short column", JoinTags(tags))
	assert.Equal(t, tags, SplitTags(JoinTags(tags)))
}

func TestTags_RejectComma(t *testing.T) {
	_, err := NewTagSet("retrofitting_methods", []string{"Jacketing, FRP"})
	assert.True(t, IsValidation(err))
}

func TestTags_Dedup(t *testing.T) {
	tags, err := NewTagSet("f", []string{" a ", "a", "", "b"})
	require.NoError(t, err)
	assert.Equal(t, TagSet{"a", "b"}, tags)
	assert.Nil(t, SplitTags(""))
}

func TestBuildReview(t *testing.T) {
	r, err := BuildReview(7, ReviewInput{
		StructuralSystem:          "rc frame",
		InputQuality:              4,
		SoilClass:                 "B",
		LoadCapacityReduction:     "Minor",
		ConstructedArea:           "120.50",
		StructuralVulnerabilities: []string{"Soft floor"},
		IrregularVertical:         "Yes",
		Photos:                    map[ImageCategory][]byte{ImageIrregularVertical: []byte("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, StructuralSystem("RC frame"), r.StructuralSystem)
	assert.Equal(t, "120.5", r.ConstructedArea.String())
	assert.Equal(t, SoilClass("B"), r.SoilClass)
}

func TestBuildReview_Invalid(t *testing.T) {
	base := ReviewInput{StructuralSystem: "Steel", InputQuality: 3, SoilClass: "A", LoadCapacityReduction: "None"}
	cases := map[string]func(*ReviewInput){
		"quality":   func(in *ReviewInput) { in.InputQuality = 6 },
		"soil":      func(in *ReviewInput) { in.SoilClass = "D" },
		"area":      func(in *ReviewInput) { in.ConstructedArea = "-1" },
		"area text": func(in *ReviewInput) { in.ConstructedArea = "big" },
		"photo":     func(in *ReviewInput) { in.Photos = map[ImageCategory][]byte{ImageTorsionRotation: []byte("x")} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := BuildReview(1, in)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
	_, err := BuildReview(0, base)
	assert.True(t, IsValidation(err))
}

func TestPaging_Offset(t *testing.T) {
	assert.Equal(t, 0, Paging{}.Offset())
	assert.Equal(t, 0, Paging{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, Paging{Page: 3, Limit: 10}.Offset())
}

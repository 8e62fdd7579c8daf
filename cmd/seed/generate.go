package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// Default map center of the intake form.
const (
	centerLatitude  = 40.257280
	centerLongitude = 22.510743
	spreadDegrees   = 0.05
)

type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(seed uint64, now time.Time) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

func (g *generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

func (g *generator) answer(yesPercent int) string {
	if g.rng.IntN(100) < yesPercent {
		return string(domain.AnswerYes)
	}
	return string(domain.AnswerNo)
}

func (g *generator) offset() float64 {
	return (g.rng.Float64()*2 - 1) * spreadDegrees
}

func (g *generator) survey() (*domain.Survey, error) {
	lat := centerLatitude + g.offset()
	lng := centerLongitude + g.offset()
	years := g.now.Year() - domain.MinConstructionYear + 1
	return domain.BuildSurvey(domain.SurveyInput{
		Latitude:                   &lat,
		Longitude:                  &lng,
		TypeOfUse:                  g.pick(domain.TypesOfUse),
		NumberOfUsers:              g.pick(domain.NumberOfUsersBuckets),
		ImportanceCategory:         g.pick(domain.ImportanceCategories),
		NonStructuralFallingDanger: g.answer(20),
		NumberOfFloors:             g.rng.IntN(domain.MaxFloors + 1),
		ConditionOfStructure:       g.answer(30),
		YearOfConstruction:         domain.MinConstructionYear + g.rng.IntN(years),
		PreviousDamages:            g.answer(25),
		NeighboringBuildingsImpact: g.answer(10),
		SoftFloor:                  g.answer(15),
		ShortColumn:                g.answer(10),
	}, g.now)
}

func (g *generator) review() (*domain.Review, error) {
	// survey id 1 is a placeholder; the caller sets the real one after insert
	r, err := domain.BuildReview(1, domain.ReviewInput{
		StructuralSystem:          g.pick(domain.StructuralSystems),
		ArrangementWalls:          g.answer(50),
		IrregularVertical:         g.answer(20),
		IrregularHorizontal:       g.answer(20),
		TorsionRotation:           g.answer(10),
		HeavyFinishes:             g.answer(15),
		StructuralVulnerabilities: []string{"Soft floor"}[:g.rng.IntN(2)],
		InputQuality:              domain.MinInputQuality + g.rng.IntN(domain.MaxInputQuality-domain.MinInputQuality+1),
		SoilClass:                 g.pick(domain.SoilClasses),
		LoadCapacityReduction:     g.pick(domain.LoadCapacityReductions),
		ConstructedArea:           fmt.Sprintf("%d.%d", 50+g.rng.IntN(900), g.rng.IntN(10)),
		StructurePerformance:      "Generated demo assessment.",
	})
	if err != nil {
		return nil, err
	}
	r.ReviewedBy = "seed"
	r.ReviewedAt = g.now.UTC()
	return r, nil
}

// batch returns count surveys and reviews for the first reviewed of them.
func (g *generator) batch(count, reviewed int) ([]*domain.Survey, []*domain.Review, error) {
	if count < 0 || reviewed < 0 || reviewed > count {
		return nil, nil, fmt.Errorf("need 0 <= reviewed (%d) <= surveys (%d)", reviewed, count)
	}
	surveys := make([]*domain.Survey, 0, count)
	for range count {
		s, err := g.survey()
		if err != nil {
			return nil, nil, fmt.Errorf("generate survey: %w", err)
		}
		surveys = append(surveys, s)
	}
	reviews := make([]*domain.Review, 0, reviewed)
	for range reviewed {
		r, err := g.review()
		if err != nil {
			return nil, nil, fmt.Errorf("generate review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return surveys, reviews, nil
}

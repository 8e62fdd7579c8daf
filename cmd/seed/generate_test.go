package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorBatch(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	surveys, reviews, err := newGenerator(7, now).batch(40, 10)
	require.NoError(t, err)
	require.Len(t, surveys, 40)
	require.Len(t, reviews, 10)

	for _, s := range surveys {
		assert.InDelta(t, centerLatitude, s.Location.Latitude, spreadDegrees)
		assert.InDelta(t, centerLongitude, s.Location.Longitude, spreadDegrees)
		assert.LessOrEqual(t, s.YearOfConstruction, now.Year())
	}
	for _, r := range reviews {
		assert.Equal(t, "seed", r.ReviewedBy)
		assert.False(t, r.ConstructedArea.IsNegative())
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	now := time.Now()
	a, _, err := newGenerator(42, now).batch(5, 0)
	require.NoError(t, err)
	b, _, err := newGenerator(42, now).batch(5, 0)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].Location, b[i].Location)
		assert.Equal(t, a[i].TypeOfUse, b[i].TypeOfUse)
	}
}

func TestGeneratorRejectsBadCounts(t *testing.T) {
	_, _, err := newGenerator(1, time.Now()).batch(3, 4)
	assert.Error(t, err)
}

package application

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/memory"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/sqlite"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/xlsx"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

type passthroughNormalizer struct{}

func (passthroughNormalizer) NormalizeAll(_ context.Context, photos map[domain.ImageCategory][]byte) (map[domain.ImageCategory][]byte, error) {
	out := make(map[domain.ImageCategory][]byte, len(photos))
	for k, v := range photos {
		if len(v) > 0 {
			out[k] = v
		}
	}
	return out, nil
}

type fixture struct {
	surveys *sqlite.SurveyRepository
	reviews *sqlite.ReviewRepository
	users   *sqlite.UserRepository
	svc     ReviewService
	gate    Gate
	admin   session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "survey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		surveys: sqlite.NewSurveyRepository(db),
		reviews: sqlite.NewReviewRepository(db),
		users:   sqlite.NewUserRepository(db),
		admin:   session.NewAuthenticated("admin", time.Now(), time.Hour),
	}
	f.svc = NewReviewService(f.surveys, f.reviews, memory.NewLocker(), passthroughNormalizer{}, xlsx.NewExporter())
	f.gate = NewGate(f.users, GateConfig{AdminUsername: "admin", AdminPassword: "admin", BcryptCost: bcrypt.MinCost})
	return f
}

func (f *fixture) storeSurvey(t *testing.T) *domain.Survey {
	t.Helper()
	lat, lng := 40.0, 22.5
	s, err := domain.BuildSurvey(domain.SurveyInput{
		Latitude: &lat, Longitude: &lng,
		TypeOfUse: "Residential", NumberOfUsers: "0-10", ImportanceCategory: "Σ2",
		NumberOfFloors: 1, YearOfConstruction: 1990,
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.surveys.Create(context.Background(), s, nil))
	return s
}

func TestReviewWorkflow_ReviewRemovesFromPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.storeSurvey(t)

	pending, err := f.svc.Pending(ctx, f.admin, domain.Paging{})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	detail, err := f.svc.Inspect(ctx, f.admin, s.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Survey.Images)
	assert.Nil(t, detail.Review)

	review, err := f.svc.Submit(ctx, f.admin, s.ID, domain.ReviewInput{
		StructuralSystem: "RC frame", InputQuality: 4, SoilClass: "B", LoadCapacityReduction: "None",
	})
	require.NoError(t, err)
	assert.Equal(t, s.ID, review.SurveyID)
	assert.Equal(t, "admin", review.ReviewedBy)

	pending, err = f.svc.Pending(ctx, f.admin, domain.Paging{})
	require.NoError(t, err)
	assert.Empty(t, pending)

	reviewed, err := f.svc.Reviewed(ctx, f.admin, domain.Paging{})
	require.NoError(t, err)
	require.Len(t, reviewed, 1)
	assert.Equal(t, domain.SoilClass("B"), reviewed[0].Review.SoilClass)

	detail, err = f.svc.Inspect(ctx, f.admin, s.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Review)
	assert.Equal(t, 4, detail.Review.InputQuality)

	counts, err := f.svc.Counts(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, Counts{Pending: 0, Reviewed: 1}, counts)
}

func TestReviewWorkflow_SecondReviewConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.storeSurvey(t)
	in := domain.ReviewInput{StructuralSystem: "Steel", InputQuality: 3, SoilClass: "A", LoadCapacityReduction: "None"}

	_, err := f.svc.Submit(ctx, f.admin, s.ID, in)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.admin, s.ID, in)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReviewWorkflow_UnknownSurvey(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), f.admin, 404, domain.ReviewInput{
		StructuralSystem: "Steel", InputQuality: 3, SoilClass: "A", LoadCapacityReduction: "None",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReviewWorkflow_RequiresAuthenticatedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anonymous := session.NewIntake(time.Now(), time.Hour)
	expired := session.NewAuthenticated("admin", time.Now().Add(-2*time.Hour), time.Hour)

	for _, sess := range []session.Session{{}, anonymous, expired} {
		_, err := f.svc.Pending(ctx, sess, domain.Paging{})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.svc.Submit(ctx, sess, 1, domain.ReviewInput{})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.ErrorIs(t, f.svc.Export(ctx, sess, &bytes.Buffer{}, true), domain.ErrUnauthorized)
	}
}

func TestReviewWorkflow_EditSurvey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.storeSurvey(t)

	lat, lng := 40.1, 22.6
	edited, err := f.svc.EditSurvey(ctx, f.admin, s.ID, domain.SurveyInput{
		Latitude: &lat, Longitude: &lng,
		TypeOfUse: "Industrial", NumberOfUsers: "11-100", ImportanceCategory: "Σ3",
		NumberOfFloors: 4, YearOfConstruction: 2001, SoftFloor: "Yes",
		Photos: map[domain.ImageCategory][]byte{domain.ImageSoftFloor: []byte("jpeg")},
	})
	require.NoError(t, err)
	assert.Equal(t, s.ID, edited.ID)
	assert.Equal(t, domain.TypeOfUse("Industrial"), edited.TypeOfUse)
	assert.False(t, edited.Reviewed)
	require.Len(t, edited.Images, 1)

	data, err := f.svc.SurveyImage(ctx, f.admin, s.ID, domain.ImageSoftFloor)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = f.svc.SurveyImage(ctx, f.admin, s.ID, "selfie")
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.EditSurvey(ctx, f.admin, 999, domain.SurveyInput{
		Latitude: &lat, Longitude: &lng,
		TypeOfUse: "Industrial", NumberOfUsers: "11-100", ImportanceCategory: "Σ3", YearOfConstruction: 2001,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReviewWorkflow_ReviewPhotosAndExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.storeSurvey(t)

	review, err := f.svc.Submit(ctx, f.admin, s.ID, domain.ReviewInput{
		StructuralSystem: "Steel", InputQuality: 5, SoilClass: "C", LoadCapacityReduction: "Severe",
		HeavyFinishes:             "Yes",
		StructuralVulnerabilities: []string{"Soft floor", "Short column"},
		Photos:                    map[domain.ImageCategory][]byte{domain.ImageHeavyFinishes: []byte("hf")},
	})
	require.NoError(t, err)

	data, err := f.svc.ReviewImage(ctx, f.admin, review.ID, domain.ImageHeavyFinishes)
	require.NoError(t, err)
	assert.Equal(t, []byte("hf"), data)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Export(ctx, f.admin, &buf, true))
	assert.NotZero(t, buf.Len())

	buf.Reset()
	require.NoError(t, f.svc.Export(ctx, f.admin, &buf, false))
	assert.NotZero(t, buf.Len())
}

func TestGate_FixedCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.gate.Authenticate(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	res, err := f.gate.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "admin", res.Username)

	_, err = f.gate.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGate_RegisteredUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.gate.Register(ctx, " dennis ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "dennis", user.Username)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	res, err := f.gate.Authenticate(ctx, "dennis", "correct horse")
	require.NoError(t, err)
	assert.True(t, res.Authenticated)

	_, err = f.gate.Authenticate(ctx, "dennis", "wrong horse")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.gate.Authenticate(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.gate.Register(ctx, "dennis", "another password")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.gate.Register(ctx, "admin", "another password")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.gate.Register(ctx, "short", "123")
	assert.True(t, domain.IsValidation(err))
}

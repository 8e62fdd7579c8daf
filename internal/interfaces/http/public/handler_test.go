package public

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/imaging"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/memory"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/sqlite"
	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
	publicapp "github.com/sngm3741/building-survey-services/api/internal/public/application"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

type harness struct {
	router  http.Handler
	surveys *sqlite.SurveyRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "survey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	surveys := sqlite.NewSurveyRepository(db)
	intake := publicapp.NewIntakeService(surveys, imaging.NewNormalizer(imaging.DefaultMaxInputBytes), memory.NewChallengeStore(), publicapp.IntakeConfig{
		Challenge: publicapp.ChallengeConfig{
			Mode:          publicapp.ChallengeFixed,
			FixedQuestion: "Type the word building",
			FixedAnswer:   "building",
		},
		SessionTTL: time.Hour,
	})
	logger, _ := test.NewNullLogger()
	h := NewHandler(Config{
		Logger:        logger,
		Intake:        intake,
		Codec:         session.NewCodec([]byte("test-secret"), "test", "test"),
		MaxPhotoBytes: 1 << 20,
	})
	r := chi.NewRouter()
	r.Route("/api", h.Register)
	return &harness{router: r, surveys: surveys}
}

func (h *harness) startSession(t *testing.T) sessionResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intake/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func surveyForm(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func baseFields() map[string]string {
	return map[string]string{
		"latitude":                     "40.0",
		"longitude":                    "22.5",
		"type_of_use":                  "Residential",
		"number_of_users":              "0-10",
		"building_importance_category": "Σ2",
		"number_of_floors":             "0",
		"year_of_construction":         "1985",
		"human_check":                  " Building ",
	}
}

func (h *harness) submit(t *testing.T, token string, fields map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := surveyForm(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/api/surveys", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	for x := 0; x < 100; x++ {
		img.Set(x, x%60, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func errorField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Field
}

func TestOptions(t *testing.T) {
	h := newHarness(t)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var opts publicapp.FormOptions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Contains(t, opts.TypesOfUse, "Residential")
	assert.Len(t, opts.SurveyImageCategories, len(domain.SurveyImageCategories))
}

func TestSubmitSurvey_StoresRecordWithoutImages(t *testing.T) {
	h := newHarness(t)
	sess := h.startSession(t)
	assert.Equal(t, publicapp.ChallengeFixed, sess.Challenge.Mode)
	assert.Equal(t, "Type the word building", sess.Challenge.Question)

	rec := h.submit(t, sess.Token, baseFields(), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created surveyCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, publicapp.SuccessMessage, created.Message)

	stored, err := h.surveys.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeOfUse("Residential"), stored.TypeOfUse)
	assert.InDelta(t, 40.0, stored.Location.Latitude, 1e-9)
	assert.InDelta(t, 22.5, stored.Location.Longitude, 1e-9)
	assert.False(t, stored.Reviewed)
	assert.Empty(t, stored.Images)

	count, err := h.surveys.Count(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitSurvey_WithPhoto(t *testing.T) {
	h := newHarness(t)
	sess := h.startSession(t)

	fields := baseFields()
	fields["soft_floor"] = "Yes"
	rec := h.submit(t, sess.Token, fields, map[string][]byte{"photo_soft_floor": pngBytes(t)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created surveyCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	img, err := h.surveys.Image(context.Background(), created.ID, domain.ImageSoftFloor)
	require.NoError(t, err)
	decoded, format, err := image.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Pt(20, 12), decoded.Bounds().Size())
}

func TestSubmitSurvey_Rejections(t *testing.T) {
	h := newHarness(t)
	sess := h.startSession(t)

	rec := h.submit(t, "", baseFields(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	fields := baseFields()
	delete(fields, "latitude")
	delete(fields, "longitude")
	rec = h.submit(t, sess.Token, fields, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "location", errorField(t, rec))

	fields = baseFields()
	fields["human_check"] = "house"
	rec = h.submit(t, sess.Token, fields, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "human_check", errorField(t, rec))

	fields = baseFields()
	fields["soft_floor"] = "Yes"
	rec = h.submit(t, sess.Token, fields, map[string][]byte{"photo_soft_floor": []byte("not an image")})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	count, err := h.surveys.Count(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, count)
}

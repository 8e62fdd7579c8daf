package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("soil_class", "bad"), http.StatusBadRequest},
		{fmt.Errorf("photo: %w", domain.ErrDecode), http.StatusUnsupportedMediaType},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("survey 3: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()

	rec := httptest.NewRecorder()
	WriteError(logger, rec, errors.New("database is locked"), "store survey")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	rec = httptest.NewRecorder()
	WriteError(logger, rec, domain.NewValidationError("location", "select location"), "store survey")
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Error: "select location", Field: "location"}, body)
}

func TestPagingFromQuery(t *testing.T) {
	assert.Equal(t, domain.Paging{Page: 1, Limit: DefaultPageLimit}, PagingFromQuery("", ""))
	assert.Equal(t, domain.Paging{Page: 3, Limit: 10}, PagingFromQuery("10", "3"))
	assert.Equal(t, domain.Paging{Page: 1, Limit: MaxPageLimit}, PagingFromQuery("100000", "-2"))
}

func TestParseHelpers(t *testing.T) {
	id, err := ParseID("id", "42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	_, err = ParseID("id", "abc")
	assert.True(t, domain.IsValidation(err))

	f, err := ParseOptionalFloat("latitude", "")
	require.NoError(t, err)
	assert.Nil(t, f)
	f, err = ParseOptionalFloat("latitude", "40.25")
	require.NoError(t, err)
	assert.InDelta(t, 40.25, *f, 1e-9)
	_, err = ParseOptionalFloat("latitude", "north")
	assert.True(t, domain.IsValidation(err))
}

type loginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

func TestDecodeJSON(t *testing.T) {
	var p loginPayload
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"admin","password":"admin"}`))
	require.NoError(t, DecodeJSON(r, &p))
	assert.Equal(t, "admin", p.Username)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"admin"}`))
	err := DecodeJSON(r, &loginPayload{})
	ve, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "password", ve.Field)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`))
	assert.True(t, domain.IsValidation(DecodeJSON(r, &loginPayload{})))
}

func TestRequireSession(t *testing.T) {
	logger, _ := test.NewNullLogger()
	codec := session.NewCodec([]byte("secret"), "iss", "aud")
	admin, err := codec.Encode(session.NewAuthenticated("admin", time.Now(), time.Hour))
	require.NoError(t, err)
	intake, err := codec.Encode(session.NewIntake(time.Now(), time.Hour))
	require.NoError(t, err)

	var seen session.Session
	h := RequireSession(logger, codec, session.KindAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFrom(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]int{
		"":                 http.StatusUnauthorized,
		"Bearer ":          http.StatusUnauthorized,
		"Bearer garbage":   http.StatusUnauthorized,
		"Bearer " + intake: http.StatusUnauthorized,
		"Basic " + admin:   http.StatusUnauthorized,
		"Bearer " + admin:  http.StatusNoContent,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, header)
	}
	assert.True(t, seen.Authenticated)
	assert.Equal(t, "admin", seen.Username)
}

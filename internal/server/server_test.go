package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sngm3741/building-survey-services/api/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(key string) string {
		switch key {
		case "SESSION_SECRET":
			return "server-test-secret"
		case "SQLITE_PATH":
			return filepath.Join(t.TempDir(), "data", "survey.db")
		case "HUMAN_CHECK_MODE":
			return "fixed"
		case "HUMAN_CHECK_QUESTION":
			return "Type the word building"
		case "HUMAN_CHECK_ANSWER":
			return "building"
		case "API_ALLOWED_ORIGINS":
			return "https://survey.example"
		case "BCRYPT_COST":
			return "4"
		}
		return ""
	})
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	srv, err := New(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, srv.Close(context.Background()))
	})
	return ts
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func postJSON(t *testing.T, url, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func postForm(t *testing.T, url, token string, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url, token string, dst any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	decode(t, resp, dst)
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.DriverSQLite, body["store"])
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/surveys", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://survey.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://survey.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://elsewhere.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

// TestSubmitReviewLifecycle walks a survey from the public form to the reviewed list.
func TestSubmitReviewLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/intake/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var intake struct {
		Token string `json:"token"`
	}
	decode(t, resp, &intake)

	resp = postForm(t, ts.URL+"/api/surveys", intake.Token, map[string]string{
		"latitude":                     "40.0",
		"longitude":                    "22.5",
		"type_of_use":                  "Residential",
		"number_of_users":              "0-10",
		"building_importance_category": "Σ1",
		"year_of_construction":         "1970",
		"human_check":                  "building",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID int64 `json:"id"`
	}
	decode(t, resp, &created)

	resp = postJSON(t, ts.URL+"/admin/login", "", map[string]string{"username": "admin", "password": "wrong"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/admin/login", "", map[string]string{"username": "admin", "password": "admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, resp, &login)

	var pending struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/admin/surveys", login.Token, &pending))
	require.Len(t, pending.Items, 1)
	assert.Equal(t, created.ID, pending.Items[0].ID)

	resp = postForm(t, ts.URL+"/admin/surveys/"+strconv.FormatInt(created.ID, 10)+"/review", login.Token, map[string]string{
		"structural_system":       "Unreinforced masonry",
		"input_quality":           "4",
		"soil_class":              "B",
		"load_capacity_reduction": "Moderate",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/admin/surveys", login.Token, &pending))
	assert.Empty(t, pending.Items)

	var sess struct {
		Pending  int `json:"pending"`
		Reviewed int `json:"reviewed"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/admin/session", login.Token, &sess))
	assert.Equal(t, 0, sess.Pending)
	assert.Equal(t, 1, sess.Reviewed)

	// an intake token must not open the admin area
	var denied map[string]string
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, ts.URL+"/admin/surveys", intake.Token, &denied))
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "postgres"
	logger, _ := test.NewNullLogger()
	_, err := New(context.Background(), cfg, logger)
	assert.Error(t, err)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"SESSION_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "admin", cfg.AdminPassword)
	assert.Equal(t, 12*time.Hour, cfg.Session.AdminTTL)
	assert.Equal(t, time.Hour, cfg.Session.IntakeTTL)
	assert.Equal(t, []byte("s3cret"), cfg.Session.Secret)
	assert.Equal(t, "generated", cfg.HumanCheck.Mode)
	assert.Equal(t, 10<<20, cfg.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.RedisURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"SESSION_SECRET":       "s3cret",
		"STORE_DRIVER":         "Mongo",
		"API_ALLOWED_ORIGINS":  " https://a.example , ,https://b.example",
		"ADMIN_SESSION_TTL":    "30m",
		"HUMAN_CHECK_MODE":     "fixed",
		"HUMAN_CHECK_QUESTION": "Type the word building",
		"HUMAN_CHECK_ANSWER":   "building",
		"BCRYPT_COST":          "12",
		"LOG_LEVEL":            "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Session.AdminTTL)
	assert.Equal(t, "fixed", cfg.HumanCheck.Mode)
	assert.Equal(t, "building", cfg.HumanCheck.Answer)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"unknown driver":   {"SESSION_SECRET": "x", "STORE_DRIVER": "postgres"},
		"bad duration":     {"SESSION_SECRET": "x", "ADMIN_SESSION_TTL": "forever"},
		"negative ttl":     {"SESSION_SECRET": "x", "INTAKE_SESSION_TTL": "-1h"},
		"bad integer":      {"SESSION_SECRET": "x", "BCRYPT_COST": "ten"},
		"fixed no answer":  {"SESSION_SECRET": "x", "HUMAN_CHECK_MODE": "fixed", "HUMAN_CHECK_QUESTION": "q"},
		"unknown mode":     {"SESSION_SECRET": "x", "HUMAN_CHECK_MODE": "captcha"},
		"zero upload size": {"SESSION_SECRET": "x", "MAX_UPLOAD_BYTES": "0"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envMap(values))
			assert.Error(t, err)
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// SessionConfig is the HS256 signing setup shared by intake and admin tokens.
type SessionConfig struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AdminTTL  time.Duration
	IntakeTTL time.Duration
}

// HumanCheckConfig selects how the intake form proves a human is submitting.
type HumanCheckConfig struct {
	Mode     string
	Question string
	Answer   string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr           string
	StoreDriver    string
	SQLitePath     string
	MongoURI       string
	MongoDatabase  string
	ConnectTimeout time.Duration
	RedisURL       string
	RequestTimeout time.Duration
	AllowedOrigins []string
	AdminUsername  string
	AdminPassword  string
	BcryptCost     int
	MaxUploadBytes int
	Session        SessionConfig
	HumanCheck     HumanCheckConfig
	Log            LogConfig
}

// Load reads .env (when present) and the process environment. Invalid configuration
// stops the process.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}
	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{getenv: getenv}

	secret := strings.TrimSpace(e.get("SESSION_SECRET"))
	if secret == "" {
		return Config{}, errors.New("SESSION_SECRET must be configured")
	}

	cfg := Config{
		Addr:           e.envOrDefault("HTTP_ADDR", ":8080"),
		StoreDriver:    strings.ToLower(e.envOrDefault("STORE_DRIVER", DriverSQLite)),
		SQLitePath:     e.envOrDefault("SQLITE_PATH", "data/survey.db"),
		MongoURI:       e.envOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:  e.envOrDefault("MONGO_DB", "building-survey"),
		RedisURL:       strings.TrimSpace(e.get("REDIS_URL")),
		AllowedOrigins: e.parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		AdminUsername:  e.envOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword:  e.envOrDefault("ADMIN_PASSWORD", "admin"),
		Session: SessionConfig{
			Secret:   []byte(secret),
			Issuer:   e.envOrDefault("SESSION_ISSUER", "building-survey-api"),
			Audience: e.envOrDefault("SESSION_AUDIENCE", "building-survey"),
		},
		HumanCheck: HumanCheckConfig{
			Mode:     strings.ToLower(e.envOrDefault("HUMAN_CHECK_MODE", "generated")),
			Question: strings.TrimSpace(e.get("HUMAN_CHECK_QUESTION")),
			Answer:   strings.TrimSpace(e.get("HUMAN_CHECK_ANSWER")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(e.envOrDefault("LOG_LEVEL", "info")),
			Format: strings.ToLower(e.envOrDefault("LOG_FORMAT", "json")),
			File:   strings.TrimSpace(e.get("LOG_FILE")),
		},
	}

	var err error
	if cfg.ConnectTimeout, err = e.duration("CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = e.duration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Session.AdminTTL, err = e.duration("ADMIN_SESSION_TTL", 12*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Session.IntakeTTL, err = e.duration("INTAKE_SESSION_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = e.integer("BCRYPT_COST", 10); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadBytes, err = e.integer("MAX_UPLOAD_BYTES", 10<<20); err != nil {
		return Config{}, err
	}
	if cfg.Log.MaxSizeMB, err = e.integer("LOG_MAX_SIZE_MB", 100); err != nil {
		return Config{}, err
	}
	if cfg.Log.MaxBackups, err = e.integer("LOG_MAX_BACKUPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.Log.MaxAgeDays, err = e.integer("LOG_MAX_AGE_DAYS", 28); err != nil {
		return Config{}, err
	}

	switch cfg.StoreDriver {
	case DriverSQLite, DriverMongo:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverMongo, cfg.StoreDriver)
	}
	switch cfg.HumanCheck.Mode {
	case "generated":
	case "fixed":
		if cfg.HumanCheck.Question == "" || cfg.HumanCheck.Answer == "" {
			return Config{}, errors.New("HUMAN_CHECK_QUESTION and HUMAN_CHECK_ANSWER are required when HUMAN_CHECK_MODE=fixed")
		}
	default:
		return Config{}, fmt.Errorf("HUMAN_CHECK_MODE must be generated or fixed, got %q", cfg.HumanCheck.Mode)
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return cfg, nil
}

type env struct {
	getenv func(string) string
}

func (e env) get(key string) string {
	return e.getenv(key)
}

func (e env) envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e env) parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}

func (e env) duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func (e env) integer(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

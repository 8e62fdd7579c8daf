package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	adminapp "github.com/sngm3741/building-survey-services/api/internal/admin/application"
	"github.com/sngm3741/building-survey-services/api/internal/config"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/memory"
	mongostore "github.com/sngm3741/building-survey-services/api/internal/infrastructure/mongo"
	redisstore "github.com/sngm3741/building-survey-services/api/internal/infrastructure/redis"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/sqlite"
	publicapp "github.com/sngm3741/building-survey-services/api/internal/public/application"
)

// lockTTL bounds how long a crashed replica can hold a survey lock in Redis.
const lockTTL = 30 * time.Second

// SurveyStore is the union of what the intake and the review side need.
type SurveyStore interface {
	publicapp.SurveyRepository
	adminapp.SurveyRepository
}

// Stores bundles the repositories of the configured driver.
type Stores struct {
	Driver  string
	Surveys SurveyStore
	Reviews adminapp.ReviewRepository
	Users   adminapp.UserRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Stores) Close(ctx context.Context) error {
	return s.close(ctx)
}

// OpenStores connects the driver named by cfg.StoreDriver. SQLite migrations and
// Mongo indexes are applied before it returns.
func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		store, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:  config.DriverMongo,
			Surveys: mongostore.NewSurveyRepository(store),
			Reviews: mongostore.NewReviewRepository(store),
			Users:   mongostore.NewUserRepository(store),
			ping:    store.Ping,
			close:   store.Close,
		}, nil
	case config.DriverSQLite, "":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:  config.DriverSQLite,
			Surveys: sqlite.NewSurveyRepository(db),
			Reviews: sqlite.NewReviewRepository(db),
			Users:   sqlite.NewUserRepository(db),
			ping:    db.Ping,
			close:   func(context.Context) error { return db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// coordination holds the challenge store and survey lock, shared through Redis when
// configured and process-local otherwise.
type coordination struct {
	challenges publicapp.ChallengeStore
	locker     adminapp.Locker
	client     *redis.Client
}

func openCoordination(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*coordination, error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, using in-process challenge store and survey lock")
		return &coordination{challenges: memory.NewChallengeStore(), locker: memory.NewLocker()}, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	client, err := redisstore.Connect(connectCtx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return &coordination{
		challenges: redisstore.NewChallengeStore(client),
		locker:     redisstore.NewLocker(client, lockTTL),
		client:     client,
	}, nil
}

func (c *coordination) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

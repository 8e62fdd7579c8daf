// Command seed prepares a survey database: it applies migrations, registers reviewer
// accounts and loads demo surveys around the default map center.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	adminapp "github.com/sngm3741/building-survey-services/api/internal/admin/application"
	"github.com/sngm3741/building-survey-services/api/internal/config"
	"github.com/sngm3741/building-survey-services/api/internal/logging"
	"github.com/sngm3741/building-survey-services/api/internal/server"
)

type storeFlags struct {
	driver     string
	sqlitePath string
	mongoURI   string
	mongoDB    string
	timeout    time.Duration
}

var (
	flags  storeFlags
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Maintain the building survey database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, _, err := logging.New(logging.Options{Level: "info", Format: "text"})
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations (SQLite) or create indexes (Mongo)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stores, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer stores.Close(context.Background())
		logger.WithField("store", stores.Driver).Info("schema up to date")
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage reviewer accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Register a reviewer; the password is read from --password or stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Insert generated surveys, some of them already reviewed",
	RunE:  runDemo,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.driver, "driver", envOrDefault("STORE_DRIVER", config.DriverSQLite), "store driver: sqlite or mongo")
	pf.StringVar(&flags.sqlitePath, "sqlite-path", envOrDefault("SQLITE_PATH", "data/survey.db"), "SQLite database file")
	pf.StringVar(&flags.mongoURI, "mongo-uri", envOrDefault("MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection string")
	pf.StringVar(&flags.mongoDB, "mongo-db", envOrDefault("MONGO_DB", "building-survey"), "MongoDB database name")
	pf.DurationVar(&flags.timeout, "timeout", 60*time.Second, "overall deadline")

	userAddCmd.Flags().String("password", "", "password (prompted from stdin when empty)")
	userAddCmd.Flags().Int("bcrypt-cost", 10, "bcrypt cost")

	demoCmd.Flags().Int("surveys", 25, "number of surveys to generate")
	demoCmd.Flags().Int("reviewed", 5, "how many of them get a review")
	demoCmd.Flags().Uint64("seed", 20240601, "random seed for reproducible data")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(migrateCmd, userCmd, demoCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "ignoring .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func openStores(ctx context.Context) (*server.Stores, error) {
	return server.OpenStores(ctx, config.Config{
		StoreDriver:    strings.ToLower(flags.driver),
		SQLitePath:     flags.sqlitePath,
		MongoURI:       flags.mongoURI,
		MongoDatabase:  flags.mongoDB,
		ConnectTimeout: flags.timeout,
	})
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	password, _ := cmd.Flags().GetString("password")
	cost, _ := cmd.Flags().GetInt("bcrypt-cost")
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	gate := adminapp.NewGate(stores.Users, adminapp.GateConfig{
		AdminUsername: envOrDefault("ADMIN_USERNAME", "admin"),
		BcryptCost:    cost,
	})
	user, err := gate.Register(ctx, args[0], password)
	if err != nil {
		return err
	}
	logger.WithField("username", user.Username).WithField("id", user.ID).Info("reviewer registered")
	return nil
}

func runDemo(cmd *cobra.Command, _ []string) error {
	count, _ := cmd.Flags().GetInt("surveys")
	reviewed, _ := cmd.Flags().GetInt("reviewed")
	seed, _ := cmd.Flags().GetUint64("seed")

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	gen := newGenerator(seed, time.Now())
	surveys, reviews, err := gen.batch(count, reviewed)
	if err != nil {
		return err
	}
	for i, s := range surveys {
		if err := stores.Surveys.Create(ctx, s, nil); err != nil {
			return fmt.Errorf("insert survey %d: %w", i+1, err)
		}
	}
	for i, r := range reviews {
		r.SurveyID = surveys[i].ID
		if err := stores.Reviews.Create(ctx, r); err != nil {
			return fmt.Errorf("insert review for survey %d: %w", r.SurveyID, err)
		}
	}
	logger.WithFields(logrus.Fields{
		"store":    stores.Driver,
		"surveys":  len(surveys),
		"reviewed": len(reviews),
		"seed":     seed,
	}).Info("demo data loaded")
	return nil
}

// Package sqlite is the embedded relational store for surveys, reviews and users.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	_ "modernc.org/sqlite"
)

// DB owns the single connection to the survey database. Writes are serialised by
// keeping exactly one open connection.
type DB struct {
	db   *sql.DB
	path string
}

// Open creates (if needed) and migrates the database at path.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	store := &DB{db: conn, path: path}
	if err := store.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Path() string {
	return d.path
}

// Ping checks that the database answers.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrations replay the schema history; the last step is the canonical layout.
var migrations = []string{
	// 1: intake form with one photo row per indicator.
	`CREATE TABLE IF NOT EXISTS survey_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		type_of_use TEXT NOT NULL,
		number_of_users TEXT NOT NULL,
		building_importance_category TEXT NOT NULL,
		non_structural_falling_danger TEXT NOT NULL,
		number_of_floors INTEGER NOT NULL,
		condition_of_structure TEXT NOT NULL,
		year_of_construction INTEGER NOT NULL,
		previous_damages TEXT NOT NULL,
		neighboring_buildings_impact TEXT NOT NULL,
		soft_floor TEXT NOT NULL,
		short_column TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS survey_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		survey_id INTEGER NOT NULL REFERENCES survey_data(id),
		image_type TEXT NOT NULL,
		image BLOB NOT NULL,
		UNIQUE (survey_id, image_type)
	);`,
	// 2: reviewer assessments, one per survey.
	`CREATE TABLE IF NOT EXISTS review_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		survey_id INTEGER NOT NULL UNIQUE REFERENCES survey_data(id),
		structural_system TEXT NOT NULL,
		arrangement_walls TEXT NOT NULL,
		irregular_vertical TEXT NOT NULL,
		irregular_vertical_photo BLOB,
		irregular_horizontal TEXT NOT NULL,
		irregular_horizontal_photo BLOB,
		torsion_rotation TEXT NOT NULL,
		torsion_rotation_photo BLOB,
		heavy_finishes TEXT NOT NULL,
		heavy_finishes_photo BLOB,
		input_quality INTEGER NOT NULL,
		soil_class TEXT NOT NULL,
		load_capacity_reduction TEXT NOT NULL,
		constructed_area TEXT NOT NULL,
		constructed_area_photo BLOB,
		structure_performance TEXT NOT NULL DEFAULT '',
		reviewed INTEGER NOT NULL DEFAULT 1,
		reviewed_at INTEGER NOT NULL,
		reviewed_by TEXT NOT NULL DEFAULT ''
	);`,
	// 3: inline reviewed flag, backfilled from existing reviews.
	`ALTER TABLE survey_data ADD COLUMN reviewed INTEGER NOT NULL DEFAULT 0;
	UPDATE survey_data SET reviewed = 1 WHERE id IN (SELECT survey_id FROM review_data);
	CREATE INDEX IF NOT EXISTS idx_survey_data_reviewed ON survey_data(reviewed, created_at, id);`,
	// 4: registered reviewers.
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	// 5: review tags as rows instead of a comma-joined column.
	`CREATE TABLE IF NOT EXISTS review_tags (
		review_id INTEGER NOT NULL REFERENCES review_data(id),
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (review_id, kind, tag)
	);`,
}

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return err
	}

	var current int
	if err := d.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		err := d.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range splitStatements(migrations[i]) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d: %w", version, err)
				}
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, version, time.Now().UnixNano())
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the number of applied migrations.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := d.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	return v, err
}

func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			stmts = append(stmts, p)
		}
	}
	return stmts
}

// withTx runs fn inside a transaction and commits when it returns nil.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation matches SQLite constraint failures without depending on driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
}

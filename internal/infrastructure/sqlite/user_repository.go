package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

type UserRepository struct {
	db  *DB
	now func() time.Time
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Create inserts user. Duplicate usernames yield domain.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("user payload is nil")
	}
	now := r.now().UTC()
	res, err := r.db.db.ExecContext(ctx, `INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, toNanos(now))
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Username, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	return nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var (
		user    domain.User
		created int64
	)
	err := r.db.db.QueryRowContext(ctx, `SELECT id, username, password, created_at FROM users WHERE username = ?`, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	user.CreatedAt = fromNanos(created)
	return &user, nil
}

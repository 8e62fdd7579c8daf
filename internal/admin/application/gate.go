package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

const (
	minPasswordRunes = 8
	maxPasswordBytes = 72
)

type GateConfig struct {
	AdminUsername string
	AdminPassword string
	BcryptCost    int
}

func NewGate(users UserRepository, cfg GateConfig) Gate {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	// compared against when the username is unknown so both paths cost one bcrypt run
	dummy, _ := bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), cfg.BcryptCost)
	return &gate{users: users, cfg: cfg, dummyHash: dummy}
}

type gate struct {
	users     UserRepository
	cfg       GateConfig
	dummyHash []byte
}

// Authenticate accepts the configured admin credential first, then registered users.
// Any mismatch yields domain.ErrUnauthorized.
func (g *gate) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	if username == "" || password == "" {
		return AuthResult{}, domain.ErrUnauthorized
	}
	if g.fixedMatch(username, password) {
		return AuthResult{Authenticated: true, Username: username}, nil
	}

	user, err := g.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(g.dummyHash, []byte(password))
		return AuthResult{}, domain.ErrUnauthorized
	}
	if err != nil {
		return AuthResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, domain.ErrUnauthorized
	}
	return AuthResult{Authenticated: true, Username: user.Username}, nil
}

func (g *gate) fixedMatch(username, password string) bool {
	if g.cfg.AdminUsername == "" || g.cfg.AdminPassword == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.cfg.AdminPassword)) == 1
	return userOK && passOK
}

// Register stores a new reviewer with a bcrypt hash. Taken usernames, including the
// fixed admin name, yield domain.ErrConflict.
func (g *gate) Register(ctx context.Context, username, password string) (*domain.User, error) {
	name, err := domain.NewUsername(username)
	if err != nil {
		return nil, err
	}
	if name == g.cfg.AdminUsername {
		return nil, fmt.Errorf("user %q: %w", name, domain.ErrConflict)
	}
	if utf8.RuneCountInString(password) < minPasswordRunes {
		return nil, domain.NewValidationError("password", "must be at least %d characters", minPasswordRunes)
	}
	if len(password) > maxPasswordBytes {
		return nil, domain.NewValidationError("password", "must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Username: name, PasswordHash: string(hash)}
	if err := g.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

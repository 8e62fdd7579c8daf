// Package session holds the explicit per-user session that replaces process-wide state.
// A Session travels between requests as a signed bearer token.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes anonymous intake sessions from authenticated reviewer sessions.
type Kind string

const (
	KindIntake Kind = "intake"
	KindAdmin  Kind = "admin"
)

// Session is the state of one interactive session. The zero value is unauthenticated.
type Session struct {
	ID            string
	Kind          Kind
	Authenticated bool
	Username      string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// NewIntake starts an anonymous intake session.
func NewIntake(now time.Time, ttl time.Duration) Session {
	return Session{
		ID:        uuid.NewString(),
		Kind:      KindIntake,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// NewAuthenticated starts a reviewer session for username.
func NewAuthenticated(username string, now time.Time, ttl time.Duration) Session {
	return Session{
		ID:            uuid.NewString(),
		Kind:          KindAdmin,
		Authenticated: true,
		Username:      username,
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
	}
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type claims struct {
	jwt.RegisteredClaims
	Kind          Kind `json:"kind"`
	Authenticated bool `json:"auth,omitempty"`
}

// Codec signs and verifies session tokens with HS256.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

func NewCodec(secret []byte, issuer, audience string) *Codec {
	return &Codec{
		secret:   append([]byte(nil), secret...),
		issuer:   issuer,
		audience: audience,
		leeway:   30 * time.Second,
	}
}

// Encode returns the bearer token for s.
func (c *Codec) Encode(s Session) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("session secret is not configured")
	}
	rc := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.Username,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	if c.audience != "" {
		rc.Audience = jwt.ClaimStrings{c.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: rc,
		Kind:             s.Kind,
		Authenticated:    s.Authenticated,
	})
	return token.SignedString(c.secret)
}

// Decode verifies token and rebuilds the Session it carries.
func (c *Codec) Decode(token string) (Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(c.leeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	parsed := &claims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return Session{}, fmt.Errorf("invalid session token: %w", err)
	}
	if parsed.ID == "" {
		return Session{}, errors.New("invalid session token: missing id")
	}

	s := Session{
		ID:            parsed.ID,
		Kind:          parsed.Kind,
		Authenticated: parsed.Authenticated && parsed.Kind == KindAdmin && parsed.Subject != "",
		Username:      parsed.Subject,
	}
	if parsed.IssuedAt != nil {
		s.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		s.ExpiresAt = parsed.ExpiresAt.Time
	}
	return s, nil
}

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or the unauthenticated zero value.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

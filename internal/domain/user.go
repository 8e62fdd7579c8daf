package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// User is a registered reviewer account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func NewUsername(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	n := utf8.RuneCountInString(trimmed)
	if n < 3 || n > 64 {
		return "", NewValidationError("username", "must be between 3 and 64 characters")
	}
	return trimmed, nil
}

// Paging controls list pagination. Zero Limit means no limit.
type Paging struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Paging) Offset() int {
	if p.Limit <= 0 || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

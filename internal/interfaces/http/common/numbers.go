package common

import (
	"strconv"
	"strings"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// ParsePositiveInt parses positive integers with fallback.
func ParsePositiveInt(value string, fallback int) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback, false
	}
	return parsed, true
}

// ParseID parses a positive int64 path parameter.
func ParseID(field, value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(field, "must be a positive integer")
	}
	return id, nil
}

// ParseOptionalFloat returns nil for an empty value.
func ParseOptionalFloat(field, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, domain.NewValidationError(field, "must be a number")
	}
	return &f, nil
}

// ParseOptionalInt returns 0 for an empty value.
func ParseOptionalInt(field, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer")
	}
	return n, nil
}

// PagingFromQuery reads limit and page, clamping limit to MaxPageLimit.
func PagingFromQuery(limitRaw, pageRaw string) domain.Paging {
	limit, _ := ParsePositiveInt(limitRaw, DefaultPageLimit)
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	page, _ := ParsePositiveInt(pageRaw, 1)
	return domain.Paging{Page: page, Limit: limit}
}

package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	tagSeparator = ","
	maxTagRunes  = 100
)

// TagSet is an ordered set of free-text tags. Order is the order of first appearance.
type TagSet []string

// NewTagSet trims, drops empties and de-duplicates values. Tags may not contain the
// separator used by the joined column format.
func NewTagSet(field string, values []string) (TagSet, error) {
	if len(values) == 0 {
		return nil, nil
	}
	result := make(TagSet, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if strings.Contains(tag, tagSeparator) {
			return nil, NewValidationError(field, "tag %q must not contain a comma", tag)
		}
		if utf8.RuneCountInString(tag) > maxTagRunes {
			return nil, NewValidationError(field, "tag must be at most %d characters", maxTagRunes)
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

func (s TagSet) Strings() []string {
	return append([]string{}, s...)
}

func (s TagSet) Contains(tag string) bool {
	for _, v := range s {
		if v == tag {
			return true
		}
	}
	return false
}

// JoinTags renders the legacy comma-joined column value.
func JoinTags(tags TagSet) string {
	return strings.Join(tags, tagSeparator)
}

// SplitTags parses a comma-joined column value back into a TagSet.
func SplitTags(joined string) TagSet {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, tagSeparator)
	result := make(TagSet, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		result = append(result, part)
	}
	return result
}

package application

import (
	"strings"
	"time"

	"github.com/stayhub/service-rental/internal/common/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// NormalizePage applies the 1-indexed paging defaults and caps the page size.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
// and returns the UTC calendar date it falls on.
func ParseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
	}
	if err != nil {
		return time.Time{}, domain.NewValidationError(field + " must be a date (YYYY-MM-DD)")
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

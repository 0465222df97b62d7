package domain

import (
	"fmt"
	"time"
)

// FiscalPolicy describes how dates map onto fiscal years.
// The zero value is the calendar year in UTC.
type FiscalPolicy struct {
	StartMonth time.Month
	Location   *time.Location
}

// NewFiscalPolicy validates and builds a policy.
func NewFiscalPolicy(startMonth int, location *time.Location) (FiscalPolicy, error) {
	if startMonth < 1 || startMonth > 12 {
		return FiscalPolicy{}, fmt.Errorf("%w: fiscal year start month must be 1-12, got %d", ErrInvalidInput, startMonth)
	}
	if location == nil {
		location = time.UTC
	}
	return FiscalPolicy{StartMonth: time.Month(startMonth), Location: location}, nil
}

// FiscalYear returns the fiscal year containing t, labelled by the calendar
// year in which it starts.
func (p FiscalPolicy) FiscalYear(t time.Time) int {
	start := p.StartMonth
	if start == 0 {
		start = time.January
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	local := t.In(loc)
	if local.Month() < start {
		return local.Year() - 1
	}
	return local.Year()
}

// IsCalendarYear reports whether the policy is the default January-December year.
func (p FiscalPolicy) IsCalendarYear() bool {
	return p.StartMonth == 0 || p.StartMonth == time.January
}

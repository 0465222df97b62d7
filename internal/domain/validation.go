package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxNoteLength     = 1000
	MaxAmount         = "1000000000000" // 1 trillion
	MaxAmountScale    = 4
	DefaultPageSize   = 50
	MaxPageSize       = 1000
	DateLayout        = "2006-01-02"
	MaxSearchTermSize = 200
)

// Decimal arithmetic rescales to the operand's exponent, so magnitudes are
// bounded before any comparison.
const (
	minAmountExponent = -MaxAmountScale - 18
	maxAmountExponent = 12
	maxAmountDigits   = 40
)

var (
	maxAmount      = decimal.RequireFromString(MaxAmount)
	searchAmountRe = regexp.MustCompile(`^\d{1,13}(\.\d{1,4})?$`)
)

// ValidateID checks that id is a well-formed ULID.
func ValidateID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// IsValidID reports whether id is a well-formed ULID.
func IsValidID(id string) bool {
	return ValidateID(id) == nil
}

// CheckAmountMagnitude rejects decimals whose exponent or coefficient is
// outside what any valid amount can carry.
func CheckAmountMagnitude(amount decimal.Decimal) error {
	if exp := amount.Exponent(); exp < minAmountExponent || exp > maxAmountExponent {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	if amount.NumDigits() > maxAmountDigits {
		return fmt.Errorf("%w: too many digits", ErrInvalidAmount)
	}
	return nil
}

// ValidateAmount validates a transaction amount
func ValidateAmount(amount decimal.Decimal) error {
	if err := CheckAmountMagnitude(amount); err != nil {
		return err
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxAmount)
	}

	if amount.Exponent() < -MaxAmountScale && !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MaxAmountScale)
	}

	return nil
}

// ValidateNote validates the free-text note.
func ValidateNote(note string) error {
	if len(note) > MaxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrInvalidInput, MaxNoteLength)
	}
	return nil
}

// ParseDate accepts a calendar date (YYYY-MM-DD, midnight UTC) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseSearchAmount reports whether a search term is a plain amount literal.
func ParseSearchAmount(term string) (decimal.Decimal, bool) {
	term = strings.TrimSpace(term)
	if !searchAmountRe.MatchString(term) {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(term)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// ValidatePagination turns page/pageSize into limit/offset, applying defaults and bounds.
func ValidatePagination(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	// OFFSET is bound as int32.
	if maxPage := math.MaxInt32/pageSize + 1; page > maxPage {
		page = maxPage
	}

	return pageSize, (page - 1) * pageSize
}

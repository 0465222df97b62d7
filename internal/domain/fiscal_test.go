package domain

import (
	"errors"
	"testing"
	"time"
)

func TestFiscalYearCalendarDefault(t *testing.T) {
	var p FiscalPolicy

	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), 2023},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), 2024},
	}

	for _, tt := range tests {
		if got := p.FiscalYear(tt.at); got != tt.want {
			t.Fatalf("FiscalYear(%s) = %d, want %d", tt.at, got, tt.want)
		}
	}

	if !p.IsCalendarYear() {
		t.Fatalf("zero policy should be a calendar year")
	}
}

func TestFiscalYearCustomStart(t *testing.T) {
	p, err := NewFiscalPolicy(4, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p.FiscalYear(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)); got != 2023 {
		t.Fatalf("March 2024 should be in FY2023, got %d", got)
	}
	if got := p.FiscalYear(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)); got != 2024 {
		t.Fatalf("April 2024 should be in FY2024, got %d", got)
	}
	if p.IsCalendarYear() {
		t.Fatalf("April start is not a calendar year")
	}
}

func TestFiscalYearUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	p, err := NewFiscalPolicy(1, tokyo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2023-12-31 20:00 UTC is already 2024-01-01 in Tokyo.
	at := time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC)
	if got := p.FiscalYear(at); got != 2024 {
		t.Fatalf("FiscalYear = %d, want 2024", got)
	}
}

func TestNewFiscalPolicyRejectsBadMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if _, err := NewFiscalPolicy(m, nil); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("month %d: expected ErrInvalidInput, got %v", m, err)
		}
	}
}

package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/usecase"
)

// CreateTransactionRequest represents a request to create a transaction.
// Amount accepts a JSON number or string; Date accepts YYYY-MM-DD or RFC 3339.
type CreateTransactionRequest struct {
	Type   string           `json:"type"`
	Amount *decimal.Decimal `json:"amount"`
	Note   string           `json:"note"`
	Date   *string          `json:"date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransactionRequest) ToUseCaseInput() (usecase.CreateTransactionInput, error) {
	txType, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return usecase.CreateTransactionInput{}, err
	}
	if r.Amount == nil {
		return usecase.CreateTransactionInput{}, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount)
	}
	if err := domain.CheckAmountMagnitude(*r.Amount); err != nil {
		return usecase.CreateTransactionInput{}, err
	}

	input := usecase.CreateTransactionInput{
		Type:   txType,
		Amount: *r.Amount,
		Note:   r.Note,
	}

	if r.Date != nil {
		date, err := domain.ParseDate(*r.Date)
		if err != nil {
			return usecase.CreateTransactionInput{}, err
		}
		input.Date = &date
	}

	return input, nil
}

// UpdateTransactionRequest is a merge-patch: omitted fields are left unchanged.
type UpdateTransactionRequest struct {
	Type   *string          `json:"type,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Note   *string          `json:"note,omitempty"`
	Date   *string          `json:"date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateTransactionRequest) ToUseCaseInput() (usecase.UpdateTransactionInput, error) {
	var input usecase.UpdateTransactionInput

	if r.Type != nil {
		txType, err := domain.ParseTransactionType(*r.Type)
		if err != nil {
			return input, err
		}
		input.Type = &txType
	}
	if r.Amount != nil {
		if err := domain.CheckAmountMagnitude(*r.Amount); err != nil {
			return input, err
		}
		input.Amount = r.Amount
	}
	input.Note = r.Note

	if r.Date != nil {
		date, err := domain.ParseDate(*r.Date)
		if err != nil {
			return input, err
		}
		input.Date = &date
	}

	return input, nil
}

// ParseOptionalDate parses a query parameter date; empty means unset.
func ParseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseRangeEnd parses an inclusive upper bound. A bare calendar date covers the whole day.
func ParseRangeEnd(s string) (*time.Time, error) {
	t, err := ParseOptionalDate(s)
	if err != nil || t == nil {
		return t, err
	}
	if _, dateOnly := time.Parse(domain.DateLayout, s); dateOnly == nil {
		end := t.Add(24*time.Hour - time.Microsecond)
		return &end, nil
	}
	return t, nil
}

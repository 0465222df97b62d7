package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbook/internal/domain"
)

// Amounts are rendered as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	Date      time.Time       `json:"date"`
	CreatedBy string          `json:"createdBy"`
	UpdatedBy string          `json:"updatedBy"`
	Deleted   bool            `json:"deleted"`
	DeletedBy *string         `json:"deletedBy"`
	DeletedAt *time.Time      `json:"deletedAt"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Version   int64           `json:"version"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:        t.ID,
		Type:      string(t.Type),
		Amount:    t.Amount,
		Note:      t.Note,
		Date:      t.Date,
		CreatedBy: t.CreatedBy,
		UpdatedBy: t.UpdatedBy,
		Deleted:   t.Deleted,
		DeletedBy: t.DeletedBy,
		DeletedAt: t.DeletedAt,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Version:   t.Version,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// AuditEntryResponse represents an audit entry in API responses.
// Before and After are the stored snapshots, emitted verbatim.
type AuditEntryResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	Action        string          `json:"action"`
	UserID        string          `json:"userId"`
	Timestamp     time.Time       `json:"timestamp"`
	Before        json.RawMessage `json:"before"`
	After         json.RawMessage `json:"after"`
}

// AuditEntryFromDomain converts a domain audit entry to response.
func AuditEntryFromDomain(e *domain.AuditEntry) *AuditEntryResponse {
	before := json.RawMessage("null")
	if len(e.Before) > 0 {
		before = json.RawMessage(e.Before)
	}
	return &AuditEntryResponse{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		Action:        string(e.Action),
		UserID:        e.UserID,
		Timestamp:     e.Timestamp,
		Before:        before,
		After:         json.RawMessage(e.After),
	}
}

// AuditEntriesFromDomain converts domain audit entries to responses.
func AuditEntriesFromDomain(entries []*domain.AuditEntry) []*AuditEntryResponse {
	result := make([]*AuditEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = AuditEntryFromDomain(e)
	}
	return result
}

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
}

// SummaryResponse carries income, expense and balance totals.
type SummaryResponse struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// SummaryFromDomain converts a domain summary to response.
func SummaryFromDomain(s *domain.Summary) *SummaryResponse {
	return &SummaryResponse{
		TotalIncome:  s.TotalIncome,
		TotalExpense: s.TotalExpense,
		Balance:      s.Balance,
	}
}

// SuccessResponse acknowledges a mutation without a body.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

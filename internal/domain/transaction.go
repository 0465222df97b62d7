package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction as money in or money out.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// IsValid checks if the type is income or expense.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// ParseTransactionType parses a user supplied type.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidType, s)
	}
	return t, nil
}

// Transaction is a single income or expense record.
// A deleted transaction keeps its row; Deleted, DeletedBy and DeletedAt are set together.
type Transaction struct {
	ID        string
	Type      TransactionType
	Amount    decimal.Decimal
	Note      string
	Date      time.Time
	CreatedBy string
	UpdatedBy string
	Deleted   bool
	DeletedBy *string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// Validate checks the record invariants before it is written.
func (t *Transaction) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: got %q", ErrInvalidType, t.Type)
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	}

	if t.Deleted != (t.DeletedBy != nil) || t.Deleted != (t.DeletedAt != nil) {
		return fmt.Errorf("%w: deleted flag and deletion metadata disagree", ErrInvalidInput)
	}

	return nil
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.DeletedBy != nil {
		v := *t.DeletedBy
		c.DeletedBy = &v
	}
	if t.DeletedAt != nil {
		v := *t.DeletedAt
		c.DeletedAt = &v
	}
	return &c
}

// TransactionPatch holds the fields supplied to an update. Nil means "leave as is".
type TransactionPatch struct {
	Type   *TransactionType
	Amount *decimal.Decimal
	Note   *string
	Date   *time.Time
}

// IsEmpty reports whether no field was supplied.
func (p TransactionPatch) IsEmpty() bool {
	return p.Type == nil && p.Amount == nil && p.Note == nil && p.Date == nil
}

// Validate checks the supplied fields only.
func (p TransactionPatch) Validate() error {
	if p.Type != nil && !p.Type.IsValid() {
		return fmt.Errorf("%w: got %q", ErrInvalidType, *p.Type)
	}
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return fmt.Errorf("%w: date cannot be empty", ErrInvalidDate)
	}
	return nil
}

// ApplyPatch merges the patch into an active transaction.
func (t *Transaction) ApplyPatch(p TransactionPatch, actor string, at time.Time) error {
	if t.Deleted {
		return fmt.Errorf("%w: cannot update a soft-deleted transaction without restore", ErrAlreadyDeleted)
	}

	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.Date != nil {
		t.Date = *p.Date
	}

	t.UpdatedBy = actor
	t.UpdatedAt = at
	return nil
}

// MarkDeleted moves an active transaction to the deleted state.
func (t *Transaction) MarkDeleted(actor string, at time.Time) error {
	if t.Deleted {
		return ErrAlreadyDeleted
	}

	t.Deleted = true
	t.DeletedBy = &actor
	t.DeletedAt = &at
	t.UpdatedBy = actor
	t.UpdatedAt = at
	return nil
}

// Restore moves a deleted transaction back to the active state.
func (t *Transaction) Restore(actor string, at time.Time) error {
	if !t.Deleted {
		return ErrNotDeleted
	}

	t.Deleted = false
	t.DeletedBy = nil
	t.DeletedAt = nil
	t.UpdatedBy = actor
	t.UpdatedAt = at
	return nil
}

// Snapshot is the serialized state of a transaction as stored in an audit entry.
type Snapshot = json.RawMessage

type transactionSnapshot struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    json.Number     `json:"amount"`
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

// SnapshotOf serializes the full record. A nil transaction yields a nil snapshot.
func SnapshotOf(t *Transaction) (Snapshot, error) {
	if t == nil {
		return nil, nil
	}

	data, err := json.Marshal(transactionSnapshot{
		ID:        t.ID,
		Type:      t.Type,
		Amount:    json.Number(t.Amount.String()),
		Note:      t.Note,
		Date:      t.Date.UTC(),
		CreatedBy: t.CreatedBy,
		UpdatedBy: t.UpdatedBy,
		Deleted:   t.Deleted,
		DeletedBy: t.DeletedBy,
		DeletedAt: utcPtr(t.DeletedAt),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
		Version:   t.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transaction snapshot: %w", err)
	}
	return data, nil
}

// TransactionFromSnapshot decodes a snapshot back into a transaction.
func TransactionFromSnapshot(s Snapshot) (*Transaction, error) {
	if len(s) == 0 {
		return nil, nil
	}

	var snap transactionSnapshot
	if err := json.Unmarshal(s, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal transaction snapshot: %w", err)
	}

	amount, err := decimal.NewFromString(snap.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("snapshot amount: %w", err)
	}

	return &Transaction{
		ID:        snap.ID,
		Type:      snap.Type,
		Amount:    amount,
		Note:      snap.Note,
		Date:      snap.Date,
		CreatedBy: snap.CreatedBy,
		UpdatedBy: snap.UpdatedBy,
		Deleted:   snap.Deleted,
		DeletedBy: snap.DeletedBy,
		DeletedAt: snap.DeletedAt,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
		Version:   snap.Version,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	From           *time.Time
	To             *time.Time
	Type           *TransactionType
	Search         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Summary aggregates non-deleted transactions over a date range.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/metrics"
)

// AuditRecorder builds and appends audit entries. It never updates or removes them.
type AuditRecorder struct {
	repo    AuditRepository
	idGen   IDGenerator
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewAuditRecorder creates an AuditRecorder. metrics may be nil.
func NewAuditRecorder(repo AuditRepository, idGen IDGenerator, m *metrics.Metrics) *AuditRecorder {
	return &AuditRecorder{
		repo:    repo,
		idGen:   idGen,
		now:     time.Now,
		metrics: m,
	}
}

// Record appends one entry describing the change from before to after.
// With a nil tx the entry is written outside any database transaction.
func (r *AuditRecorder) Record(
	ctx context.Context,
	tx Transaction,
	transactionID string,
	action domain.AuditAction,
	userID string,
	before, after *domain.Transaction,
) (*domain.AuditEntry, error) {
	if err := validateAuditInput(transactionID, action, userID, before, after); err != nil {
		return nil, err
	}

	beforeSnap, err := domain.SnapshotOf(before)
	if err != nil {
		return nil, err
	}
	afterSnap, err := domain.SnapshotOf(after)
	if err != nil {
		return nil, err
	}

	entry := &domain.AuditEntry{
		ID:            r.idGen.Generate(),
		TransactionID: transactionID,
		Action:        action,
		UserID:        userID,
		Timestamp:     r.now().UTC().Truncate(timestampPrecision),
		Before:        beforeSnap,
		After:         afterSnap,
	}

	if tx != nil {
		err = r.repo.CreateTx(ctx, tx, entry)
	} else {
		err = r.repo.Create(ctx, entry)
	}
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if r.metrics != nil {
		r.metrics.AuditEntriesRecorded.WithLabelValues(string(action)).Inc()
	}

	return entry, nil
}

func validateAuditInput(transactionID string, action domain.AuditAction, userID string, before, after *domain.Transaction) error {
	if !domain.IsValidID(transactionID) {
		return fmt.Errorf("%w: malformed transaction id %q", domain.ErrAuditRejected, transactionID)
	}
	if !domain.IsValidID(userID) {
		return fmt.Errorf("%w: malformed user id %q", domain.ErrAuditRejected, userID)
	}
	if !action.IsValid() {
		return fmt.Errorf("%w: unknown action %q", domain.ErrAuditRejected, action)
	}
	if after == nil {
		return fmt.Errorf("%w: missing after state", domain.ErrAuditRejected)
	}
	if (action == domain.AuditActionCreate) != (before == nil) {
		return fmt.Errorf("%w: before state must be absent exactly for create", domain.ErrAuditRejected)
	}
	return nil
}

// ListAuditInput is the query for the audit read surface.
type ListAuditInput struct {
	TransactionID string
	UserID        string
	Action        domain.AuditAction
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// List returns one page of entries, newest first.
func (r *AuditRecorder) List(ctx context.Context, input ListAuditInput) (*domain.AuditPage, error) {
	if input.TransactionID != "" {
		if err := domain.ValidateID(input.TransactionID); err != nil {
			return nil, fmt.Errorf("transactionId: %w", err)
		}
	}
	if input.UserID != "" {
		if err := domain.ValidateID(input.UserID); err != nil {
			return nil, fmt.Errorf("userId: %w", err)
		}
	}

	limit, offset := domain.ValidatePagination(input.Page, input.PageSize)

	filter := domain.AuditFilter{
		TransactionID: input.TransactionID,
		UserID:        input.UserID,
		From:          input.From,
		To:            input.To,
		Limit:         limit,
		Offset:        offset,
	}
	// Unknown actions are ignored rather than rejected.
	if input.Action.IsValid() {
		filter.Action = input.Action
	}

	entries, total, err := r.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &domain.AuditPage{Entries: entries, TotalCount: total}, nil
}

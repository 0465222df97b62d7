package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/postgres/generated"
	"github.com/iho/ledgerbook/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository. It only inserts and reads;
// the schema rejects UPDATE and DELETE on audit_entries.
type AuditRepository struct {
	queries *generated.Queries
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return newAuditRepository(pool)
}

func newAuditRepository(db generated.DBTX) *AuditRepository {
	return &AuditRepository{queries: generated.New(db)}
}

// Create appends an entry outside any caller transaction.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	return insertAuditEntry(ctx, r.queries, entry)
}

// CreateTx appends an entry inside tx.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, entry *domain.AuditEntry) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}
	return insertAuditEntry(ctx, queries, entry)
}

func insertAuditEntry(ctx context.Context, queries *generated.Queries, entry *domain.AuditEntry) error {
	err := queries.CreateAuditEntry(ctx, generated.CreateAuditEntryParams{
		ID:            entry.ID,
		TransactionID: entry.TransactionID,
		Action:        string(entry.Action),
		UserID:        entry.UserID,
		RecordedAt:    timeToPgTimestamptz(entry.Timestamp),
		Before:        entry.Before,
		After:         entry.After,
	})
	return mapPgError(err)
}

// List retrieves entries matching filter, newest first, with the total match count.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int64, error) {
	count := generated.CountAuditEntriesParams{
		TransactionID: filter.TransactionID,
		UserID:        filter.UserID,
		Action:        string(filter.Action),
		FromTime:      optionalTimestamptz(filter.From),
		ToTime:        optionalTimestamptz(filter.To),
	}

	total, err := r.queries.CountAuditEntries(ctx, count)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.queries.ListAuditEntries(ctx, generated.ListAuditEntriesParams{
		TransactionID: count.TransactionID,
		UserID:        count.UserID,
		Action:        count.Action,
		FromTime:      count.FromTime,
		ToTime:        count.ToTime,
		Limit:         int32(filter.Limit),
		Offset:        int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]*domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToAuditEntry(row))
	}

	return entries, total, nil
}

func rowToAuditEntry(row generated.AuditEntry) *domain.AuditEntry {
	entry := &domain.AuditEntry{
		ID:            row.ID,
		TransactionID: row.TransactionID,
		Action:        domain.AuditAction(row.Action),
		UserID:        row.UserID,
		Timestamp:     row.RecordedAt.Time.UTC(),
		After:         domain.Snapshot(row.After),
	}
	if row.Before != nil {
		entry.Before = domain.Snapshot(row.Before)
	}
	return entry
}

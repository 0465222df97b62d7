package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/ledgerbook/internal/domain"
)

var auditColumns = []string{"id", "transaction_id", "action", "user_id", "recorded_at", "before", "after"}

func TestAuditRepositoryCreateTx(t *testing.T) {
	mock := newMockPool(t)
	repo := newAuditRepository(mock)
	tx := beginMockTx(t, mock)

	entry := &domain.AuditEntry{
		ID:            ulid.Make().String(),
		TransactionID: ulid.Make().String(),
		Action:        domain.AuditActionCreate,
		UserID:        ulid.Make().String(),
		Timestamp:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		After:         domain.Snapshot(`{"id":"x"}`),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_entries")).
		WithArgs(entry.ID, entry.TransactionID, "create", entry.UserID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.CreateTx(context.Background(), tx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	assertExpectations(t, mock)
}

func TestAuditRepositoryCreateOutsideTx(t *testing.T) {
	mock := newMockPool(t)
	repo := newAuditRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_entries")).
		WithArgs(anyArgs(7)...).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "audit_entries_pkey"})

	err := repo.Create(context.Background(), &domain.AuditEntry{ID: "dup", Action: domain.AuditActionUpdate})
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	assertExpectations(t, mock)
}

func TestAuditRepositoryList(t *testing.T) {
	mock := newMockPool(t)
	repo := newAuditRepository(mock)
	txID := ulid.Make().String()
	at := timeToPgTimestamptz(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_entries")).
		WithArgs(txID, "", "update", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY recorded_at DESC, id DESC")).
		WithArgs(txID, "", "update", pgxmock.AnyArg(), pgxmock.AnyArg(), int32(1), int32(0)).
		WillReturnRows(pgxmock.NewRows(auditColumns).
			AddRow("e1", txID, "update", "u1", at, []byte(`{"note":"a"}`), []byte(`{"note":"b"}`)))

	entries, total, err := repo.List(context.Background(), domain.AuditFilter{
		TransactionID: txID,
		Action:        domain.AuditActionUpdate,
		Limit:         1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(entries) != 1 {
		t.Fatalf("expected 1 of 2 entries, got %d of %d", len(entries), total)
	}
	if string(entries[0].Before) != `{"note":"a"}` || string(entries[0].After) != `{"note":"b"}` {
		t.Fatalf("snapshots not preserved: %s / %s", entries[0].Before, entries[0].After)
	}

	assertExpectations(t, mock)
}

func TestAuditRepositoryListKeepsNilBeforeForCreate(t *testing.T) {
	mock := newMockPool(t)
	repo := newAuditRepository(mock)
	at := timeToPgTimestamptz(time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_entries")).
		WithArgs(anyArgs(5)...).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_entries")).
		WithArgs(anyArgs(7)...).
		WillReturnRows(pgxmock.NewRows(auditColumns).
			AddRow("e1", "t1", "create", "u1", at, []byte(nil), []byte(`{}`)))

	entries, _, err := repo.List(context.Background(), domain.AuditFilter{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Before != nil {
		t.Fatalf("expected nil before, got %s", entries[0].Before)
	}

	assertExpectations(t, mock)
}

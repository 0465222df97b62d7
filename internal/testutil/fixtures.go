// Package testutil holds helpers for tests that need a real PostgreSQL.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/postgres"
	"github.com/iho/ledgerbook/internal/infrastructure/postgres/generated"
)

// TestDB provides test database connections.
type TestDB struct {
	Pool    *pgxpool.Pool
	Queries *generated.Queries
	t       *testing.T
}

// NewTestDB connects to DATABASE_URL and applies the embedded migrations.
// The test is skipped in -short mode or when DATABASE_URL is unset.
// audit_entries rejects TRUNCATE, so tests isolate themselves by fresh ids
// instead of wiping tables.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := postgres.RunMigrations(dbURL); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbURL, 10, 1)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	return &TestDB{
		Pool:    pool,
		Queries: generated.New(pool),
		t:       t,
	}
}

// CreateTestTransaction inserts an active transaction directly, bypassing the
// service and its fiscal gate, so tests can seed closed-year rows.
func (db *TestDB) CreateTestTransaction(ctx context.Context, txType domain.TransactionType, amount decimal.Decimal, date time.Time, actor string) *domain.Transaction {
	db.t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	id := GenerateID()

	var numeric pgtype.Numeric
	if err := numeric.Scan(amount.String()); err != nil {
		db.t.Fatalf("invalid amount %s: %v", amount, err)
	}
	ts := pgtype.Timestamptz{Time: now, Valid: true}

	row, err := db.Queries.InsertTransaction(ctx, generated.InsertTransactionParams{
		ID:        id,
		Type:      string(txType),
		Amount:    numeric,
		Note:      "seeded",
		Date:      pgtype.Timestamptz{Time: date.UTC(), Valid: true},
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	if err != nil {
		db.t.Fatalf("failed to create test transaction: %v", err)
	}

	return &domain.Transaction{
		ID:        row.ID,
		Type:      txType,
		Amount:    amount,
		Note:      row.Note,
		Date:      row.Date.Time.UTC(),
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: row.CreatedAt.Time.UTC(),
		UpdatedAt: row.UpdatedAt.Time.UTC(),
		Version:   row.Version,
	}
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}

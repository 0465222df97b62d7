package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/metrics"
	"github.com/iho/ledgerbook/internal/usecase"
	"github.com/iho/ledgerbook/internal/usecase/mocks"
)

type ledgerFixture struct {
	uc      *usecase.LedgerUseCase
	repo    *mocks.MemoryTransactionRepository
	audit   *mocks.MemoryAuditRepository
	outbox  *mocks.MemoryOutboxRepository
	txm     *mocks.MemoryTxManager
	metrics *metrics.Metrics
	now     time.Time
}

func newLedgerFixture(t *testing.T, now time.Time, policy usecase.AuditPolicy, opts ...func(*usecase.LedgerConfig)) *ledgerFixture {
	t.Helper()

	f := &ledgerFixture{
		repo:    mocks.NewMemoryTransactionRepository(),
		audit:   mocks.NewMemoryAuditRepository(),
		outbox:  mocks.NewMemoryOutboxRepository(),
		txm:     mocks.NewMemoryTxManager(),
		metrics: metrics.New(prometheus.NewRegistry()),
		now:     now,
	}
	clock := func() time.Time { return f.now }
	f.repo.Now = clock

	idGen := mocks.SequenceIDGenerator{}
	cfg := usecase.LedgerConfig{
		TxManager:    f.txm,
		Transactions: f.repo,
		Audit:        usecase.NewAuditRecorder(f.audit, idGen, f.metrics),
		FiscalLock:   usecase.NewFiscalLockGate(domain.FiscalPolicy{}, usecase.WithClock(clock)),
		IDGen:        idGen,
		Outbox:       f.outbox,
		AuditPolicy:  policy,
		Logger:       zerolog.Nop(),
		Metrics:      f.metrics,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.uc = usecase.NewLedgerUseCase(cfg)
	return f
}

func editor() domain.Claim {
	return domain.Claim{UserID: ulid.Make().String(), Role: domain.RoleEditor}
}

func admin() domain.Claim {
	return domain.Claim{UserID: ulid.Make().String(), Role: domain.RoleAdmin}
}

func dateOf(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func mar2024() time.Time {
	return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestLedgerUseCase_CreateRecordsAudit(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	actor := editor()

	created, err := f.uc.Create(context.Background(), actor, usecase.CreateTransactionInput{
		Type:   domain.TransactionTypeIncome,
		Amount: decimal.NewFromInt(100),
		Note:   "salary",
		Date:   dateOf(2024, 3, 1),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Deleted)
	assert.Equal(t, actor.UserID, created.CreatedBy)
	assert.Equal(t, actor.UserID, created.UpdatedBy)
	assert.Equal(t, int64(1), created.Version)

	stored, err := f.repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, domain.AuditActionCreate, entry.Action)
	assert.Equal(t, created.ID, entry.TransactionID)
	assert.Equal(t, actor.UserID, entry.UserID)
	assert.Nil(t, entry.Before)

	want, err := domain.SnapshotOf(stored)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(entry.After))

	events := f.outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeTransactionCreated, events[0].EventType)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Mutations.WithLabelValues("create")))
}

func TestLedgerUseCase_CreateDefaultsDateToNow(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)

	created, err := f.uc.Create(context.Background(), editor(), usecase.CreateTransactionInput{
		Type:   domain.TransactionTypeExpense,
		Amount: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.True(t, created.Date.Equal(mar2024()), "date = %s", created.Date)
}

func TestLedgerUseCase_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.CreateTransactionInput
		wantErr error
	}{
		{
			name:    "invalid type",
			input:   usecase.CreateTransactionInput{Type: "gift", Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrInvalidType,
		},
		{
			name:    "zero amount",
			input:   usecase.CreateTransactionInput{Type: domain.TransactionTypeIncome, Amount: decimal.Zero},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			input:   usecase.CreateTransactionInput{Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(-3)},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "editor writing into a closed year",
			input: usecase.CreateTransactionInput{
				Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(1), Date: dateOf(2023, 12, 31),
			},
			wantErr: domain.ErrFiscalLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)

			_, err := f.uc.Create(context.Background(), editor(), tt.input)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 0, f.repo.Count())
			assert.Empty(t, f.audit.Entries())
			assert.Equal(t, 0, f.txm.Begins, "no database transaction should be opened")
		})
	}
}

func TestLedgerUseCase_AdminMayCreateInClosedYear(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)

	created, err := f.uc.Create(context.Background(), admin(), usecase.CreateTransactionInput{
		Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(1), Date: dateOf(2022, 6, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2022, created.Date.Year())
}

func TestLedgerUseCase_UpdateMergesSuppliedFields(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	actor := editor()
	ctx := context.Background()

	created, err := f.uc.Create(ctx, actor, usecase.CreateTransactionInput{
		Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(100), Note: "rent", Date: dateOf(2024, 3, 1),
	})
	require.NoError(t, err)
	before, _ := f.repo.GetByID(ctx, created.ID)

	f.now = f.now.Add(time.Hour)
	other := editor()
	amount := decimal.NewFromInt(150)
	updated, err := f.uc.Update(ctx, other, created.ID, usecase.UpdateTransactionInput{Amount: &amount})
	require.NoError(t, err)

	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, domain.TransactionTypeIncome, updated.Type)
	assert.Equal(t, "rent", updated.Note)
	assert.True(t, updated.Date.Equal(before.Date))
	assert.Equal(t, other.UserID, updated.UpdatedBy)
	assert.Equal(t, actor.UserID, updated.CreatedBy)
	assert.True(t, updated.UpdatedAt.Equal(f.now))
	assert.Equal(t, int64(2), updated.Version)

	after, _ := f.repo.GetByID(ctx, created.ID)
	entries := f.audit.Entries()
	require.Len(t, entries, 2)
	entry := entries[1]
	assert.Equal(t, domain.AuditActionUpdate, entry.Action)

	wantBefore, _ := domain.SnapshotOf(before)
	wantAfter, _ := domain.SnapshotOf(after)
	assert.JSONEq(t, string(wantBefore), string(entry.Before))
	assert.JSONEq(t, string(wantAfter), string(entry.After))
}

func TestLedgerUseCase_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	badType := domain.TransactionType("transfer")
	negative := decimal.NewFromInt(-1)
	note := "x"

	tests := []struct {
		name    string
		id      func(f *ledgerFixture) string
		input   usecase.UpdateTransactionInput
		wantErr error
	}{
		{
			name:    "malformed id",
			id:      func(*ledgerFixture) string { return "not-an-id" },
			input:   usecase.UpdateTransactionInput{Note: &note},
			wantErr: domain.ErrInvalidID,
		},
		{
			name:    "unknown id",
			id:      func(*ledgerFixture) string { return ulid.Make().String() },
			input:   usecase.UpdateTransactionInput{Note: &note},
			wantErr: domain.ErrTransactionNotFound,
		},
		{
			name: "invalid type supplied",
			id: func(f *ledgerFixture) string {
				return f.repo.Seed(activeTx(dateOf(2024, 2, 1))).ID
			},
			input:   usecase.UpdateTransactionInput{Type: &badType},
			wantErr: domain.ErrInvalidType,
		},
		{
			name: "invalid amount supplied",
			id: func(f *ledgerFixture) string {
				return f.repo.Seed(activeTx(dateOf(2024, 2, 1))).ID
			},
			input:   usecase.UpdateTransactionInput{Amount: &negative},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "deleted target",
			id: func(f *ledgerFixture) string {
				tx := activeTx(dateOf(2024, 2, 1))
				_ = tx.MarkDeleted(tx.CreatedBy, mar2024())
				return f.repo.Seed(tx).ID
			},
			input:   usecase.UpdateTransactionInput{Note: &note},
			wantErr: domain.ErrAlreadyDeleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
			id := tt.id(f)

			_, err := f.uc.Update(ctx, editor(), id, tt.input)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.audit.Entries())
		})
	}
}

func activeTx(date *time.Time) *domain.Transaction {
	creator := ulid.Make().String()
	return &domain.Transaction{
		Type:      domain.TransactionTypeIncome,
		Amount:    decimal.NewFromInt(100),
		Note:      "seed",
		Date:      *date,
		CreatedBy: creator,
		UpdatedBy: creator,
		CreatedAt: *date,
		UpdatedAt: *date,
	}
}

func TestLedgerUseCase_FiscalLockBoundary(t *testing.T) {
	ctx := context.Background()
	newYear := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(200)

	f := newLedgerFixture(t, newYear, usecase.AuditPolicyStrict)
	seeded := f.repo.Seed(activeTx(dateOf(2023, 12, 31)))

	_, err := f.uc.Update(ctx, editor(), seeded.ID, usecase.UpdateTransactionInput{Amount: &amount})
	require.ErrorIs(t, err, domain.ErrFiscalLocked)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.uc.SoftDelete(ctx, editor(), seeded.ID)
	require.ErrorIs(t, err, domain.ErrFiscalLocked)
	assert.Empty(t, f.audit.Entries())

	updated, err := f.uc.Update(ctx, admin(), seeded.ID, usecase.UpdateTransactionInput{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Len(t, f.audit.Entries(), 1)
}

func TestLedgerUseCase_SoftDeleteTwice(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	ctx := context.Background()
	seeded := f.repo.Seed(activeTx(dateOf(2024, 3, 1)))
	actor := editor()

	deleted, err := f.uc.SoftDelete(ctx, actor, seeded.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	require.NotNil(t, deleted.DeletedBy)
	assert.Equal(t, actor.UserID, *deleted.DeletedBy)
	require.NotNil(t, deleted.DeletedAt)
	assert.True(t, deleted.DeletedAt.Equal(f.now))
	require.Len(t, f.audit.Entries(), 1)
	assert.Equal(t, domain.AuditActionSoftDelete, f.audit.Entries()[0].Action)

	_, err = f.uc.SoftDelete(ctx, actor, seeded.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyDeleted)
	assert.Len(t, f.audit.Entries(), 1, "failed delete must not add an audit entry")
}

func TestLedgerUseCase_RestoreActiveFails(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	seeded := f.repo.Seed(activeTx(dateOf(2024, 3, 1)))

	_, err := f.uc.Restore(context.Background(), admin(), seeded.ID)
	require.ErrorIs(t, err, domain.ErrNotDeleted)
	assert.Empty(t, f.audit.Entries())
}

func TestLedgerUseCase_DeleteRestoreRoundTrip(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	ctx := context.Background()
	original := f.repo.Seed(activeTx(dateOf(2024, 3, 1)))

	_, err := f.uc.SoftDelete(ctx, editor(), original.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	restorer := admin()
	restored, err := f.uc.Restore(ctx, restorer, original.ID)
	require.NoError(t, err)

	assert.False(t, restored.Deleted)
	assert.Nil(t, restored.DeletedBy)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, restorer.UserID, restored.UpdatedBy)

	// Everything but updatedBy, updatedAt and version matches the pre-delete record.
	normalized := restored.Clone()
	normalized.UpdatedBy = original.UpdatedBy
	normalized.UpdatedAt = original.UpdatedAt
	normalized.Version = original.Version
	assert.Equal(t, original, normalized)

	entries := f.audit.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditActionRestore, entries[1].Action)
}

func TestLedgerUseCase_RestoreSkipsFiscalLock(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	old := activeTx(dateOf(2020, 5, 5))
	_ = old.MarkDeleted(old.CreatedBy, *dateOf(2020, 5, 6))
	seeded := f.repo.Seed(old)

	restored, err := f.uc.Restore(context.Background(), admin(), seeded.ID)
	require.NoError(t, err)
	assert.False(t, restored.Deleted)
}

func TestLedgerUseCase_StrictAuditFailureRollsBack(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	auditErr := errors.New("audit table unavailable")
	f.audit.CreateTxFunc = func(context.Context, usecase.Transaction, *domain.AuditEntry) error {
		return auditErr
	}

	_, err := f.uc.Create(context.Background(), editor(), usecase.CreateTransactionInput{
		Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(10),
	})
	require.ErrorIs(t, err, auditErr)

	assert.Equal(t, 0, f.repo.Count(), "mutation must be rolled back with its audit entry")
	assert.Empty(t, f.outbox.Events())
	assert.Equal(t, 1, f.txm.Rollbacks)
	assert.Equal(t, 0, f.txm.Commits)
}

func TestLedgerUseCase_BestEffortAuditFailureIsSwallowed(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyBestEffort)
	f.audit.CreateFunc = func(context.Context, *domain.AuditEntry) error {
		return errors.New("audit table unavailable")
	}

	created, err := f.uc.Create(context.Background(), editor(), usecase.CreateTransactionInput{
		Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.Count())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuditFailures))
}

func TestLedgerUseCase_BestEffortWritesAfterCommit(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyBestEffort)

	_, err := f.uc.Create(context.Background(), editor(), usecase.CreateTransactionInput{
		Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Len(t, f.audit.Entries(), 1)
	assert.Nil(t, f.audit.Entries()[0].Before)
}

func TestLedgerUseCase_ConflictSurfaces(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	seeded := f.repo.Seed(activeTx(dateOf(2024, 3, 1)))

	f.repo.ReplaceFunc = func(context.Context, usecase.Transaction, *domain.Transaction, int64) (*domain.Transaction, error) {
		return nil, domain.ErrConflict
	}

	note := "late writer"
	_, err := f.uc.Update(context.Background(), editor(), seeded.ID, usecase.UpdateTransactionInput{Note: &note})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, f.audit.Entries())
}

func TestLedgerUseCase_GetHidesDeletedFromNonAdmins(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	tx := activeTx(dateOf(2024, 3, 1))
	_ = tx.MarkDeleted(tx.CreatedBy, mar2024())
	seeded := f.repo.Seed(tx)

	_, err := f.uc.Get(context.Background(), editor(), seeded.ID)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	got, err := f.uc.Get(context.Background(), admin(), seeded.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
}

func TestLedgerUseCase_ListIncludeDeletedIsAdminOnly(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	f.repo.Seed(activeTx(dateOf(2024, 3, 1)))
	gone := activeTx(dateOf(2024, 3, 2))
	_ = gone.MarkDeleted(gone.CreatedBy, mar2024())
	f.repo.Seed(gone)

	page, err := f.uc.List(context.Background(), editor(), usecase.ListTransactionsInput{IncludeDeleted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalCount)

	page, err = f.uc.List(context.Background(), admin(), usecase.ListTransactionsInput{IncludeDeleted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalCount)
	assert.True(t, page.Transactions[0].Date.After(page.Transactions[1].Date), "newest first")
}

func TestLedgerUseCase_Summary(t *testing.T) {
	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict)
	income := activeTx(dateOf(2024, 3, 1))
	income.Amount = decimal.NewFromInt(300)
	f.repo.Seed(income)

	expense := activeTx(dateOf(2024, 3, 2))
	expense.Type = domain.TransactionTypeExpense
	expense.Amount = decimal.NewFromInt(120)
	f.repo.Seed(expense)

	summary, err := f.uc.Summary(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(300)))
	assert.True(t, summary.TotalExpense.Equal(decimal.NewFromInt(120)))
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(180)))

	_, err = f.uc.Summary(context.Background(), dateOf(2024, 4, 1), dateOf(2024, 3, 1))
	require.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestParseAuditPolicy(t *testing.T) {
	p, err := usecase.ParseAuditPolicy("")
	require.NoError(t, err)
	assert.Equal(t, usecase.AuditPolicyStrict, p)

	p, err = usecase.ParseAuditPolicy("Best-Effort")
	require.NoError(t, err)
	assert.Equal(t, usecase.AuditPolicyBestEffort, p)

	_, err = usecase.ParseAuditPolicy("sometimes")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedgerUseCase_LockFailureIsConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	locker := mocks.NewMockLocker(ctrl)

	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict, func(cfg *usecase.LedgerConfig) {
		cfg.Locker = locker
	})
	seeded := f.repo.Seed(activeTx(dateOf(2024, 3, 1)))

	locker.EXPECT().
		Lock(gomock.Any(), "transaction:"+seeded.ID).
		Return(nil, fmt.Errorf("%w: record is being modified by another request", domain.ErrConflict))

	note := "blocked"
	_, err := f.uc.Update(context.Background(), editor(), seeded.ID, usecase.UpdateTransactionInput{Note: &note})
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.repo.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "seed", stored.Note)
	assert.Equal(t, int64(1), stored.Version)
	assert.Empty(t, f.audit.Entries())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MutationErrors.WithLabelValues("update", "conflict")))
}

func TestLedgerUseCase_UnlocksOnEveryOutcome(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	locker := mocks.NewMockLocker(ctrl)

	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict, func(cfg *usecase.LedgerConfig) {
		cfg.Locker = locker
	})

	active := f.repo.Seed(activeTx(dateOf(2024, 3, 1)))
	locked := f.repo.Seed(activeTx(dateOf(2023, 6, 1)))
	deleted := activeTx(dateOf(2024, 3, 1))
	deleted.Deleted = true
	deleted.DeletedBy = &deleted.CreatedBy
	deleted.DeletedAt = dateOf(2024, 3, 2)
	deleted = f.repo.Seed(deleted)

	unlocked := map[string]int{}
	for _, id := range []string{active.ID, locked.ID, deleted.ID} {
		locker.EXPECT().Lock(gomock.Any(), "transaction:"+id).Return(func(ctx context.Context) error {
			require.NoError(t, ctx.Err())
			unlocked[id]++
			return nil
		}, nil)
	}

	_, err := f.uc.SoftDelete(ctx, editor(), active.ID)
	require.NoError(t, err)

	_, err = f.uc.SoftDelete(ctx, editor(), locked.ID)
	require.ErrorIs(t, err, domain.ErrFiscalLocked)

	_, err = f.uc.SoftDelete(ctx, editor(), deleted.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyDeleted)

	assert.Equal(t, map[string]int{active.ID: 1, locked.ID: 1, deleted.ID: 1}, unlocked)
}

func TestLedgerUseCase_CreateIsNotLocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No Lock calls are expected for a record without an id.
	locker := mocks.NewMockLocker(ctrl)

	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict, func(cfg *usecase.LedgerConfig) {
		cfg.Locker = locker
	})

	_, err := f.uc.Create(context.Background(), editor(), usecase.CreateTransactionInput{
		Type:   domain.TransactionTypeIncome,
		Amount: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
}

func TestLedgerUseCase_RetryReloadsSnapshots(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTransactionRepository(ctrl)
	retrier := mocks.NewMockRetrier(ctrl)

	f := newLedgerFixture(t, mar2024(), usecase.AuditPolicyStrict, func(cfg *usecase.LedgerConfig) {
		cfg.Transactions = repo
		cfg.Retrier = retrier
	})

	first := activeTx(dateOf(2024, 3, 1))
	first.ID = ulid.Make().String()
	first.Version = 1
	concurrent := first.Clone()
	concurrent.Note = "changed elsewhere"
	concurrent.Version = 2

	serialization := errors.New("could not serialize access due to concurrent update")

	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, op func() error) error {
		if err := op(); !errors.Is(err, serialization) {
			t.Fatalf("expected first attempt to fail transiently, got %v", err)
		}
		return op()
	})

	gomock.InOrder(
		repo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), first.ID).Return(first.Clone(), nil),
		repo.EXPECT().Replace(gomock.Any(), gomock.Any(), gomock.Any(), int64(1)).Return(nil, serialization),
		repo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), first.ID).Return(concurrent.Clone(), nil),
		repo.EXPECT().Replace(gomock.Any(), gomock.Any(), gomock.Any(), int64(2)).DoAndReturn(
			func(_ context.Context, _ usecase.Transaction, next *domain.Transaction, _ int64) (*domain.Transaction, error) {
				stored := next.Clone()
				stored.Version = 3
				return stored, nil
			}),
	)

	amount := decimal.NewFromInt(250)
	updated, err := f.uc.Update(ctx, editor(), first.ID, usecase.UpdateTransactionInput{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Version)
	assert.Equal(t, "changed elsewhere", updated.Note)

	entries := f.audit.Entries()
	require.Len(t, entries, 1, "the failed attempt must not leave an audit entry")
	wantBefore, err := domain.SnapshotOf(concurrent)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantBefore), string(entries[0].Before))
	wantAfter, err := domain.SnapshotOf(updated)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantAfter), string(entries[0].After))
	assert.Len(t, f.outbox.Events(), 1)
}

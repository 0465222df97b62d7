package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/postgres/generated"
	"github.com/iho/ledgerbook/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
	idGen   usecase.IDGenerator
	now     func() time.Time
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepository(pool)
}

func newTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		queries: generated.New(db),
		idGen:   NewULIDGenerator(),
		now:     time.Now,
	}
}

// GetByID retrieves a transaction by ID, deleted or not.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return rowToTransaction(row), nil
}

// GetByIDForUpdate retrieves a transaction by ID with a FOR UPDATE lock.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetTransactionByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return rowToTransaction(row), nil
}

// Insert stores a new transaction. The store owns ID, timestamps and version.
func (r *TransactionRepository) Insert(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) (*domain.Transaction, error) {
	if t.ID != "" {
		return nil, domain.ErrIDPreassigned
	}

	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}
	now := timeToPgTimestamptz(r.now().UTC().Truncate(time.Microsecond))

	row, err := queries.InsertTransaction(ctx, generated.InsertTransactionParams{
		ID:        r.idGen.Generate(),
		Type:      string(t.Type),
		Amount:    decimalToNumeric(t.Amount),
		Note:      t.Note,
		Date:      timeToPgTimestamptz(t.Date),
		CreatedBy: t.CreatedBy,
		UpdatedBy: t.UpdatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	return rowToTransaction(row), nil
}

// Replace overwrites every mutable column when the stored version matches.
func (r *TransactionRepository) Replace(ctx context.Context, tx usecase.Transaction, t *domain.Transaction, expectedVersion int64) (*domain.Transaction, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.ReplaceTransaction(ctx, generated.ReplaceTransactionParams{
		ID:        t.ID,
		Version:   expectedVersion,
		Type:      string(t.Type),
		Amount:    decimalToNumeric(t.Amount),
		Note:      t.Note,
		Date:      timeToPgTimestamptz(t.Date),
		UpdatedBy: t.UpdatedBy,
		Deleted:   t.Deleted,
		DeletedBy: optionalText(t.DeletedBy),
		DeletedAt: optionalTimestamptz(t.DeletedAt),
		UpdatedAt: timeToPgTimestamptz(t.UpdatedAt),
	})
	if err == nil {
		return rowToTransaction(row), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapPgError(err)
	}

	exists, err := queries.TransactionExists(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrConflict
	}

	return nil, domain.ErrTransactionNotFound
}

// List returns one page of transactions, newest date first, and the total match count.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int64, error) {
	count := generated.CountTransactionsParams{
		IncludeDeleted: filter.IncludeDeleted,
		FromDate:       optionalTimestamptz(filter.From),
		ToDate:         optionalTimestamptz(filter.To),
		Search:         escapeLike(strings.TrimSpace(filter.Search)),
	}
	if filter.Type != nil {
		count.Type = pgtype.Text{String: string(*filter.Type), Valid: true}
	}
	if amount, ok := domain.ParseSearchAmount(filter.Search); ok {
		count.SearchAmount = decimalToNumeric(amount)
	}

	total, err := r.queries.CountTransactions(ctx, count)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.queries.ListTransactions(ctx, generated.ListTransactionsParams{
		IncludeDeleted: count.IncludeDeleted,
		FromDate:       count.FromDate,
		ToDate:         count.ToDate,
		Type:           count.Type,
		Search:         count.Search,
		SearchAmount:   count.SearchAmount,
		Limit:          int32(filter.Limit),
		Offset:         int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, err
	}

	transactions := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, rowToTransaction(row))
	}

	return transactions, total, nil
}

// Summarize totals non-deleted income and expense in the date range.
func (r *TransactionRepository) Summarize(ctx context.Context, from, to *time.Time) (*domain.Summary, error) {
	row, err := r.queries.SummarizeTransactions(ctx, generated.SummarizeTransactionsParams{
		FromDate: optionalTimestamptz(from),
		ToDate:   optionalTimestamptz(to),
	})
	if err != nil {
		return nil, err
	}

	income := numericToDecimal(row.TotalIncome)
	expense := numericToDecimal(row.TotalExpense)

	return &domain.Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:        row.ID,
		Type:      domain.TransactionType(row.Type),
		Amount:    numericToDecimal(row.Amount),
		Note:      row.Note,
		Date:      row.Date.Time.UTC(),
		CreatedBy: row.CreatedBy,
		UpdatedBy: row.UpdatedBy,
		Deleted:   row.Deleted,
		DeletedBy: textPtr(row.DeletedBy),
		DeletedAt: timestamptzPtr(row.DeletedAt),
		CreatedAt: row.CreatedAt.Time.UTC(),
		UpdatedAt: row.UpdatedAt.Time.UTC(),
		Version:   row.Version,
	}
}

package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getTransactionByID = `-- name: GetTransactionByID :one
SELECT id, type, amount, note, date, created_by, updated_by, deleted, deleted_by, deleted_at, created_at, updated_at, version FROM transactions WHERE id = $1
`

func (q *Queries) GetTransactionByID(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByID, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Amount,
		&i.Note,
		&i.Date,
		&i.CreatedBy,
		&i.UpdatedBy,
		&i.Deleted,
		&i.DeletedBy,
		&i.DeletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Version,
	)
	return i, err
}

const getTransactionByIDForUpdate = `-- name: GetTransactionByIDForUpdate :one
SELECT id, type, amount, note, date, created_by, updated_by, deleted, deleted_by, deleted_at, created_at, updated_at, version FROM transactions WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetTransactionByIDForUpdate(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByIDForUpdate, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Amount,
		&i.Note,
		&i.Date,
		&i.CreatedBy,
		&i.UpdatedBy,
		&i.Deleted,
		&i.DeletedBy,
		&i.DeletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Version,
	)
	return i, err
}

const insertTransaction = `-- name: InsertTransaction :one
INSERT INTO transactions (id, type, amount, note, date, created_by, updated_by, deleted, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9, 1)
RETURNING id, type, amount, note, date, created_by, updated_by, deleted, deleted_by, deleted_at, created_at, updated_at, version
`

type InsertTransactionParams struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Amount    pgtype.Numeric     `json:"amount"`
	Note      string             `json:"note"`
	Date      pgtype.Timestamptz `json:"date"`
	CreatedBy string             `json:"created_by"`
	UpdatedBy string             `json:"updated_by"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, insertTransaction,
		arg.ID,
		arg.Type,
		arg.Amount,
		arg.Note,
		arg.Date,
		arg.CreatedBy,
		arg.UpdatedBy,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Amount,
		&i.Note,
		&i.Date,
		&i.CreatedBy,
		&i.UpdatedBy,
		&i.Deleted,
		&i.DeletedBy,
		&i.DeletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Version,
	)
	return i, err
}

const replaceTransaction = `-- name: ReplaceTransaction :one
UPDATE transactions
SET type = $3,
    amount = $4,
    note = $5,
    date = $6,
    updated_by = $7,
    deleted = $8,
    deleted_by = $9,
    deleted_at = $10,
    updated_at = $11,
    version = version + 1
WHERE id = $1 AND version = $2
RETURNING id, type, amount, note, date, created_by, updated_by, deleted, deleted_by, deleted_at, created_at, updated_at, version
`

type ReplaceTransactionParams struct {
	ID        string             `json:"id"`
	Version   int64              `json:"version"`
	Type      string             `json:"type"`
	Amount    pgtype.Numeric     `json:"amount"`
	Note      string             `json:"note"`
	Date      pgtype.Timestamptz `json:"date"`
	UpdatedBy string             `json:"updated_by"`
	Deleted   bool               `json:"deleted"`
	DeletedBy pgtype.Text        `json:"deleted_by"`
	DeletedAt pgtype.Timestamptz `json:"deleted_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) ReplaceTransaction(ctx context.Context, arg ReplaceTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, replaceTransaction,
		arg.ID,
		arg.Version,
		arg.Type,
		arg.Amount,
		arg.Note,
		arg.Date,
		arg.UpdatedBy,
		arg.Deleted,
		arg.DeletedBy,
		arg.DeletedAt,
		arg.UpdatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Amount,
		&i.Note,
		&i.Date,
		&i.CreatedBy,
		&i.UpdatedBy,
		&i.Deleted,
		&i.DeletedBy,
		&i.DeletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Version,
	)
	return i, err
}

const transactionExists = `-- name: TransactionExists :one
SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)
`

func (q *Queries) TransactionExists(ctx context.Context, id string) (bool, error) {
	row := q.db.QueryRow(ctx, transactionExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, type, amount, note, date, created_by, updated_by, deleted, deleted_by, deleted_at, created_at, updated_at, version FROM transactions
WHERE ($1::boolean OR deleted = FALSE)
  AND ($2::timestamptz IS NULL OR date >= $2)
  AND ($3::timestamptz IS NULL OR date <= $3)
  AND ($4::text IS NULL OR type = $4)
  AND ($5::text = '' OR note ILIKE '%' || $5 || '%' OR amount = $6::numeric)
ORDER BY date DESC, id DESC
LIMIT $7 OFFSET $8
`

type ListTransactionsParams struct {
	IncludeDeleted bool               `json:"include_deleted"`
	FromDate       pgtype.Timestamptz `json:"from_date"`
	ToDate         pgtype.Timestamptz `json:"to_date"`
	Type           pgtype.Text        `json:"type"`
	Search         string             `json:"search"`
	SearchAmount   pgtype.Numeric     `json:"search_amount"`
	Limit          int32              `json:"limit"`
	Offset         int32              `json:"offset"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions,
		arg.IncludeDeleted,
		arg.FromDate,
		arg.ToDate,
		arg.Type,
		arg.Search,
		arg.SearchAmount,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Type,
			&i.Amount,
			&i.Note,
			&i.Date,
			&i.CreatedBy,
			&i.UpdatedBy,
			&i.Deleted,
			&i.DeletedBy,
			&i.DeletedAt,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.Version,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM transactions
WHERE ($1::boolean OR deleted = FALSE)
  AND ($2::timestamptz IS NULL OR date >= $2)
  AND ($3::timestamptz IS NULL OR date <= $3)
  AND ($4::text IS NULL OR type = $4)
  AND ($5::text = '' OR note ILIKE '%' || $5 || '%' OR amount = $6::numeric)
`

type CountTransactionsParams struct {
	IncludeDeleted bool               `json:"include_deleted"`
	FromDate       pgtype.Timestamptz `json:"from_date"`
	ToDate         pgtype.Timestamptz `json:"to_date"`
	Type           pgtype.Text        `json:"type"`
	Search         string             `json:"search"`
	SearchAmount   pgtype.Numeric     `json:"search_amount"`
}

func (q *Queries) CountTransactions(ctx context.Context, arg CountTransactionsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countTransactions,
		arg.IncludeDeleted,
		arg.FromDate,
		arg.ToDate,
		arg.Type,
		arg.Search,
		arg.SearchAmount,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const summarizeTransactions = `-- name: SummarizeTransactions :one
SELECT
    COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0)::numeric AS total_income,
    COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)::numeric AS total_expense
FROM transactions
WHERE deleted = FALSE
  AND ($1::timestamptz IS NULL OR date >= $1)
  AND ($2::timestamptz IS NULL OR date <= $2)
`

type SummarizeTransactionsParams struct {
	FromDate pgtype.Timestamptz `json:"from_date"`
	ToDate   pgtype.Timestamptz `json:"to_date"`
}

type SummarizeTransactionsRow struct {
	TotalIncome  pgtype.Numeric `json:"total_income"`
	TotalExpense pgtype.Numeric `json:"total_expense"`
}

func (q *Queries) SummarizeTransactions(ctx context.Context, arg SummarizeTransactionsParams) (SummarizeTransactionsRow, error) {
	row := q.db.QueryRow(ctx, summarizeTransactions, arg.FromDate, arg.ToDate)
	var i SummarizeTransactionsRow
	err := row.Scan(&i.TotalIncome, &i.TotalExpense)
	return i, err
}

package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAuditEntry = `-- name: CreateAuditEntry :exec
INSERT INTO audit_entries (id, transaction_id, action, user_id, recorded_at, before, after)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateAuditEntryParams struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	Action        string             `json:"action"`
	UserID        string             `json:"user_id"`
	RecordedAt    pgtype.Timestamptz `json:"recorded_at"`
	Before        []byte             `json:"before"`
	After         []byte             `json:"after"`
}

func (q *Queries) CreateAuditEntry(ctx context.Context, arg CreateAuditEntryParams) error {
	_, err := q.db.Exec(ctx, createAuditEntry,
		arg.ID,
		arg.TransactionID,
		arg.Action,
		arg.UserID,
		arg.RecordedAt,
		arg.Before,
		arg.After,
	)
	return err
}

const listAuditEntries = `-- name: ListAuditEntries :many
SELECT id, transaction_id, action, user_id, recorded_at, before, after FROM audit_entries
WHERE ($1::text = '' OR transaction_id = $1)
  AND ($2::text = '' OR user_id = $2)
  AND ($3::text = '' OR action = $3)
  AND ($4::timestamptz IS NULL OR recorded_at >= $4)
  AND ($5::timestamptz IS NULL OR recorded_at <= $5)
ORDER BY recorded_at DESC, id DESC
LIMIT $6 OFFSET $7
`

type ListAuditEntriesParams struct {
	TransactionID string             `json:"transaction_id"`
	UserID        string             `json:"user_id"`
	Action        string             `json:"action"`
	FromTime      pgtype.Timestamptz `json:"from_time"`
	ToTime        pgtype.Timestamptz `json:"to_time"`
	Limit         int32              `json:"limit"`
	Offset        int32              `json:"offset"`
}

func (q *Queries) ListAuditEntries(ctx context.Context, arg ListAuditEntriesParams) ([]AuditEntry, error) {
	rows, err := q.db.Query(ctx, listAuditEntries,
		arg.TransactionID,
		arg.UserID,
		arg.Action,
		arg.FromTime,
		arg.ToTime,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AuditEntry{}
	for rows.Next() {
		var i AuditEntry
		if err := rows.Scan(
			&i.ID,
			&i.TransactionID,
			&i.Action,
			&i.UserID,
			&i.RecordedAt,
			&i.Before,
			&i.After,
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

const countAuditEntries = `-- name: CountAuditEntries :one
SELECT COUNT(*) FROM audit_entries
WHERE ($1::text = '' OR transaction_id = $1)
  AND ($2::text = '' OR user_id = $2)
  AND ($3::text = '' OR action = $3)
  AND ($4::timestamptz IS NULL OR recorded_at >= $4)
  AND ($5::timestamptz IS NULL OR recorded_at <= $5)
`

type CountAuditEntriesParams struct {
	TransactionID string             `json:"transaction_id"`
	UserID        string             `json:"user_id"`
	Action        string             `json:"action"`
	FromTime      pgtype.Timestamptz `json:"from_time"`
	ToTime        pgtype.Timestamptz `json:"to_time"`
}

func (q *Queries) CountAuditEntries(ctx context.Context, arg CountAuditEntriesParams) (int64, error) {
	row := q.db.QueryRow(ctx, countAuditEntries,
		arg.TransactionID,
		arg.UserID,
		arg.Action,
		arg.FromTime,
		arg.ToTime,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

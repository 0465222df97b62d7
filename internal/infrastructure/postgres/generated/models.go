package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type AuditEntry struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	Action        string             `json:"action"`
	UserID        string             `json:"user_id"`
	RecordedAt    pgtype.Timestamptz `json:"recorded_at"`
	Before        []byte             `json:"before"`
	After         []byte             `json:"after"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}

type Transaction struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Amount    pgtype.Numeric     `json:"amount"`
	Note      string             `json:"note"`
	Date      pgtype.Timestamptz `json:"date"`
	CreatedBy string             `json:"created_by"`
	UpdatedBy string             `json:"updated_by"`
	Deleted   bool               `json:"deleted"`
	DeletedBy pgtype.Text        `json:"deleted_by"`
	DeletedAt pgtype.Timestamptz `json:"deleted_at"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
	Version   int64              `json:"version"`
}

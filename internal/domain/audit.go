package domain

import (
	"time"
)

// AuditAction represents the kind of state change recorded.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionSoftDelete AuditAction = "soft-delete"
	AuditActionRestore    AuditAction = "restore"
)

// IsValid checks if the action is one of the recorded actions.
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionSoftDelete, AuditActionRestore:
		return true
	}
	return false
}

// AuditEntry is an immutable before/after record of one state change.
// Before is nil for create.
type AuditEntry struct {
	ID            string
	TransactionID string
	Action        AuditAction
	UserID        string
	Timestamp     time.Time
	Before        Snapshot
	After         Snapshot
}

// AuditFilter defines filters for querying audit entries.
type AuditFilter struct {
	TransactionID string
	UserID        string
	Action        AuditAction
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// AuditPage is one page of audit entries, newest first.
type AuditPage struct {
	Entries    []*AuditEntry
	TotalCount int64
}

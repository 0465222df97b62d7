package domain

import "errors"

var (
	// Input errors
	ErrInvalidID     = errors.New("invalid transaction id")
	ErrInvalidType   = errors.New("type must be income or expense")
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidInput  = errors.New("invalid input")

	// Transaction state errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyDeleted      = errors.New("transaction already deleted")
	ErrNotDeleted          = errors.New("transaction is not deleted")
	ErrIDPreassigned       = errors.New("transaction id is assigned by the store")

	// Store errors
	ErrDuplicateKey = errors.New("duplicate key")
	ErrConflict     = errors.New("transaction was modified concurrently")

	// Audit errors
	ErrAuditRejected = errors.New("audit entry rejected")
)

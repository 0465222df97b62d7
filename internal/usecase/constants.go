package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds one mutation's database transaction.
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long a replayable create response is kept.
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending is the value stored under a key while its first request runs.
	IdempotencyPending = "processing"

	// timestampPrecision matches PostgreSQL timestamptz resolution.
	timestampPrecision = time.Microsecond
)

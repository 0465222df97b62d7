package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/metrics"
)

// AuditPolicy decides how an audit write relates to the mutation it describes.
type AuditPolicy string

const (
	// AuditPolicyStrict writes the entry in the mutation's database transaction.
	AuditPolicyStrict AuditPolicy = "strict"
	// AuditPolicyBestEffort writes the entry after commit and only logs failures.
	AuditPolicyBestEffort AuditPolicy = "best-effort"
)

// ParseAuditPolicy parses a configured policy name.
func ParseAuditPolicy(s string) (AuditPolicy, error) {
	switch p := AuditPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case AuditPolicyStrict, AuditPolicyBestEffort:
		return p, nil
	case "":
		return AuditPolicyStrict, nil
	default:
		return "", fmt.Errorf("%w: unknown audit policy %q", domain.ErrInvalidInput, s)
	}
}

// LedgerConfig wires a LedgerUseCase.
type LedgerConfig struct {
	TxManager    TransactionManager
	Transactions TransactionRepository
	Audit        *AuditRecorder
	FiscalLock   *FiscalLockGate
	IDGen        IDGenerator

	// Optional
	Outbox      OutboxRepository
	Locker      Locker
	Retrier     Retrier
	AuditPolicy AuditPolicy
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
}

// LedgerUseCase runs the transaction lifecycle: create, update, soft-delete and restore.
type LedgerUseCase struct {
	txManager    TransactionManager
	transactions TransactionRepository
	audit        *AuditRecorder
	fiscalLock   *FiscalLockGate
	idGen        IDGenerator
	outbox       OutboxRepository
	locker       Locker
	retrier      Retrier
	auditPolicy  AuditPolicy
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(cfg LedgerConfig) *LedgerUseCase {
	if cfg.Retrier == nil {
		cfg.Retrier = noRetry{}
	}
	if cfg.AuditPolicy == "" {
		cfg.AuditPolicy = AuditPolicyStrict
	}

	return &LedgerUseCase{
		txManager:    cfg.TxManager,
		transactions: cfg.Transactions,
		audit:        cfg.Audit,
		fiscalLock:   cfg.FiscalLock,
		idGen:        cfg.IDGen,
		outbox:       cfg.Outbox,
		locker:       cfg.Locker,
		retrier:      cfg.Retrier,
		auditPolicy:  cfg.AuditPolicy,
		logger:       cfg.Logger.With().Str("component", "ledger").Logger(),
		metrics:      cfg.Metrics,
	}
}

// CreateTransactionInput is the input for Create. A nil Date means "now".
type CreateTransactionInput struct {
	Type   domain.TransactionType
	Amount decimal.Decimal
	Note   string
	Date   *time.Time
}

// UpdateTransactionInput holds the supplied fields of a partial update.
type UpdateTransactionInput struct {
	Type   *domain.TransactionType
	Amount *decimal.Decimal
	Note   *string
	Date   *time.Time
}

func (in UpdateTransactionInput) patch() domain.TransactionPatch {
	p := domain.TransactionPatch{
		Type:   in.Type,
		Amount: in.Amount,
		Note:   in.Note,
	}
	if in.Date != nil {
		d := in.Date.UTC().Truncate(timestampPrecision)
		p.Date = &d
	}
	return p
}

// Create inserts a new active transaction owned by actor.
func (uc *LedgerUseCase) Create(ctx context.Context, actor domain.Claim, input CreateTransactionInput) (*domain.Transaction, error) {
	date := uc.now()
	if input.Date != nil {
		date = input.Date.UTC().Truncate(timestampPrecision)
	}

	draft := &domain.Transaction{
		Type:      input.Type,
		Amount:    input.Amount,
		Note:      input.Note,
		Date:      date,
		CreatedBy: actor.UserID,
		UpdatedBy: actor.UserID,
	}
	if err := draft.Validate(); err != nil {
		return nil, uc.fail(domain.AuditActionCreate, err)
	}
	if err := domain.ValidateNote(draft.Note); err != nil {
		return nil, uc.fail(domain.AuditActionCreate, err)
	}

	if err := uc.fiscalLock.Check(actor.Role, draft.Date); err != nil {
		return nil, uc.fail(domain.AuditActionCreate, err)
	}

	created, err := uc.mutate(ctx, domain.AuditActionCreate, actor, "", func(txCtx context.Context, tx Transaction) (*domain.Transaction, *domain.Transaction, error) {
		stored, err := uc.transactions.Insert(txCtx, tx, draft.Clone())
		if err != nil {
			return nil, nil, err
		}
		return nil, stored, nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		amount, _ := created.Amount.Float64()
		uc.metrics.TransactionAmount.WithLabelValues(string(created.Type)).Observe(amount)
	}

	return created, nil
}

// Update merges the supplied fields into an active transaction.
func (uc *LedgerUseCase) Update(ctx context.Context, actor domain.Claim, id string, input UpdateTransactionInput) (*domain.Transaction, error) {
	patch := input.patch()
	if err := patch.Validate(); err != nil {
		return nil, uc.fail(domain.AuditActionUpdate, err)
	}
	if patch.Note != nil {
		if err := domain.ValidateNote(*patch.Note); err != nil {
			return nil, uc.fail(domain.AuditActionUpdate, err)
		}
	}
	if err := domain.ValidateID(id); err != nil {
		return nil, uc.fail(domain.AuditActionUpdate, err)
	}

	return uc.mutate(ctx, domain.AuditActionUpdate, actor, id, func(txCtx context.Context, tx Transaction) (*domain.Transaction, *domain.Transaction, error) {
		current, err := uc.loadForWrite(txCtx, tx, actor, id, true)
		if err != nil {
			return nil, nil, err
		}

		next := current.Clone()
		if err := next.ApplyPatch(patch, actor.UserID, uc.now()); err != nil {
			return nil, nil, err
		}

		return uc.replace(txCtx, tx, current, next)
	})
}

// SoftDelete marks an active transaction as deleted.
func (uc *LedgerUseCase) SoftDelete(ctx context.Context, actor domain.Claim, id string) (*domain.Transaction, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, uc.fail(domain.AuditActionSoftDelete, err)
	}

	return uc.mutate(ctx, domain.AuditActionSoftDelete, actor, id, func(txCtx context.Context, tx Transaction) (*domain.Transaction, *domain.Transaction, error) {
		current, err := uc.loadForWrite(txCtx, tx, actor, id, true)
		if err != nil {
			return nil, nil, err
		}

		next := current.Clone()
		if err := next.MarkDeleted(actor.UserID, uc.now()); err != nil {
			return nil, nil, err
		}

		return uc.replace(txCtx, tx, current, next)
	})
}

// Restore returns a deleted transaction to the active state. The fiscal lock is not consulted.
func (uc *LedgerUseCase) Restore(ctx context.Context, actor domain.Claim, id string) (*domain.Transaction, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, uc.fail(domain.AuditActionRestore, err)
	}

	return uc.mutate(ctx, domain.AuditActionRestore, actor, id, func(txCtx context.Context, tx Transaction) (*domain.Transaction, *domain.Transaction, error) {
		current, err := uc.loadForWrite(txCtx, tx, actor, id, false)
		if err != nil {
			return nil, nil, err
		}

		next := current.Clone()
		if err := next.Restore(actor.UserID, uc.now()); err != nil {
			return nil, nil, err
		}

		return uc.replace(txCtx, tx, current, next)
	})
}

// Get returns a single transaction. Deleted transactions are visible to admins only.
func (uc *LedgerUseCase) Get(ctx context.Context, actor domain.Claim, id string) (*domain.Transaction, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}

	t, err := uc.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Deleted && !actor.IsAdmin() {
		return nil, domain.ErrTransactionNotFound
	}
	return t, nil
}

// ListTransactionsInput is the query for the transaction listing.
type ListTransactionsInput struct {
	From           *time.Time
	To             *time.Time
	Type           *domain.TransactionType
	Search         string
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// TransactionPage is one page of a listing, newest date first.
type TransactionPage struct {
	Transactions []*domain.Transaction
	TotalCount   int64
}

// List returns transactions matching the filter. Only admins may include deleted ones.
func (uc *LedgerUseCase) List(ctx context.Context, actor domain.Claim, input ListTransactionsInput) (*TransactionPage, error) {
	if input.Type != nil && !input.Type.IsValid() {
		return nil, domain.ErrInvalidType
	}
	if len(input.Search) > domain.MaxSearchTermSize {
		return nil, fmt.Errorf("%w: search term too long", domain.ErrInvalidInput)
	}

	limit, offset := domain.ValidatePagination(input.Page, input.PageSize)

	items, total, err := uc.transactions.List(ctx, domain.TransactionFilter{
		From:           input.From,
		To:             input.To,
		Type:           input.Type,
		Search:         strings.TrimSpace(input.Search),
		IncludeDeleted: input.IncludeDeleted && actor.IsAdmin(),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return nil, err
	}

	return &TransactionPage{Transactions: items, TotalCount: total}, nil
}

// Summary totals non-deleted transactions in the optional date range.
func (uc *LedgerUseCase) Summary(ctx context.Context, from, to *time.Time) (*domain.Summary, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: from is after to", domain.ErrInvalidDate)
	}
	return uc.transactions.Summarize(ctx, from, to)
}

// loadForWrite locks the row and applies the fiscal gate to the stored date.
func (uc *LedgerUseCase) loadForWrite(ctx context.Context, tx Transaction, actor domain.Claim, id string, fiscal bool) (*domain.Transaction, error) {
	current, err := uc.transactions.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if fiscal {
		if err := uc.fiscalLock.Check(actor.Role, current.Date); err != nil {
			return nil, err
		}
	}

	return current, nil
}

func (uc *LedgerUseCase) replace(ctx context.Context, tx Transaction, current, next *domain.Transaction) (*domain.Transaction, *domain.Transaction, error) {
	if err := next.Validate(); err != nil {
		return nil, nil, err
	}

	stored, err := uc.transactions.Replace(ctx, tx, next, current.Version)
	if err != nil {
		return nil, nil, err
	}
	return current, stored, nil
}

type mutationFunc func(txCtx context.Context, tx Transaction) (before, after *domain.Transaction, err error)

// mutate runs fn and its audit entry in one database transaction, serialized per id
// when a Locker is configured and retried on transient storage errors.
func (uc *LedgerUseCase) mutate(ctx context.Context, action domain.AuditAction, actor domain.Claim, id string, fn mutationFunc) (*domain.Transaction, error) {
	start := time.Now()

	if uc.locker != nil && id != "" {
		unlock, err := uc.locker.Lock(ctx, "transaction:"+id)
		if err != nil {
			return nil, uc.fail(action, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				uc.logger.Warn().Err(err).Str("transaction_id", id).Msg("failed to release transaction lock")
			}
		}()
	}

	var before, after *domain.Transaction
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		before, after, err = uc.runInTx(ctx, action, actor, fn)
		return err
	})
	if err != nil {
		return nil, uc.fail(action, err)
	}

	if uc.auditPolicy == AuditPolicyBestEffort {
		if _, err := uc.audit.Record(ctx, nil, after.ID, action, actor.UserID, before, after); err != nil {
			uc.logger.Error().
				Err(err).
				Str("transaction_id", after.ID).
				Str("action", string(action)).
				Str("user_id", actor.UserID).
				Msg("audit entry lost after committed mutation")
			if uc.metrics != nil {
				uc.metrics.AuditFailures.Inc()
			}
		}
	}

	if uc.metrics != nil {
		uc.metrics.Mutations.WithLabelValues(string(action)).Inc()
		uc.metrics.MutationDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	}

	uc.logger.Debug().
		Str("transaction_id", after.ID).
		Str("action", string(action)).
		Str("user_id", actor.UserID).
		Int64("version", after.Version).
		Msg("transaction mutated")

	return after, nil
}

func (uc *LedgerUseCase) runInTx(ctx context.Context, action domain.AuditAction, actor domain.Claim, fn mutationFunc) (*domain.Transaction, *domain.Transaction, error) {
	// Add transaction timeout
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	before, after, err := fn(txCtx, tx)
	if err != nil {
		return nil, nil, err
	}

	if uc.auditPolicy == AuditPolicyStrict {
		if _, err := uc.audit.Record(txCtx, tx, after.ID, action, actor.UserID, before, after); err != nil {
			return nil, nil, err
		}
	}

	if uc.outbox != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   after.ID,
			AggregateType: domain.AggregateTypeTransaction,
			EventType:     domain.EventTypeFor(action),
			Payload:       domain.NewTransactionEventPayload(after, actor.UserID),
			CreatedAt:     uc.now(),
		}
		if err := uc.outbox.Create(txCtx, tx, event); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, err
	}

	return before, after, nil
}

func (uc *LedgerUseCase) now() time.Time {
	return uc.fiscalLock.Now().UTC().Truncate(timestampPrecision)
}

func (uc *LedgerUseCase) fail(action domain.AuditAction, err error) error {
	if uc.metrics != nil {
		uc.metrics.MutationErrors.WithLabelValues(string(action), errorType(err)).Inc()
	}
	return err
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrFiscalLocked):
		return "fiscal_locked"
	case errors.Is(err, domain.ErrAlreadyDeleted), errors.Is(err, domain.ErrNotDeleted):
		return "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error {
	return operation()
}

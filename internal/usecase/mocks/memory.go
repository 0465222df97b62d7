package mocks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/usecase"
)

// ErrTxClosed is returned when a MemoryTx is used after Commit or Rollback.
var ErrTxClosed = errors.New("memory tx already closed")

// MemoryTxManager hands out MemoryTx values whose writes apply only on Commit.
type MemoryTxManager struct {
	mu        sync.Mutex
	Begins    int
	Commits   int
	Rollbacks int

	BeginFunc  func(ctx context.Context) error
	CommitFunc func(ctx context.Context) error
}

func NewMemoryTxManager() *MemoryTxManager {
	return &MemoryTxManager{}
}

func (m *MemoryTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		if err := m.BeginFunc(ctx); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.Begins++
	m.mu.Unlock()
	return &MemoryTx{manager: m}, nil
}

// MemoryTx stages writes until Commit.
type MemoryTx struct {
	manager *MemoryTxManager
	ops     []func()
	closed  bool
}

func (t *MemoryTx) stage(op func()) {
	t.ops = append(t.ops, op)
}

func (t *MemoryTx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	if t.manager.CommitFunc != nil {
		if err := t.manager.CommitFunc(ctx); err != nil {
			return err
		}
	}
	t.closed = true
	for _, op := range t.ops {
		op()
	}
	t.manager.mu.Lock()
	t.manager.Commits++
	t.manager.mu.Unlock()
	return nil
}

func (t *MemoryTx) Rollback(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	t.ops = nil
	t.manager.mu.Lock()
	t.manager.Rollbacks++
	t.manager.mu.Unlock()
	return nil
}

func memoryTx(tx usecase.Transaction) *MemoryTx {
	mt, ok := tx.(*MemoryTx)
	if !ok {
		panic("mocks: expected *MemoryTx")
	}
	return mt
}

// MemoryTransactionRepository is an in-memory TransactionRepository.
type MemoryTransactionRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Transaction
	Now   func() time.Time

	InsertFunc           func(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) (*domain.Transaction, error)
	ReplaceFunc          func(ctx context.Context, tx usecase.Transaction, t *domain.Transaction, expectedVersion int64) (*domain.Transaction, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error)
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{
		items: make(map[string]*domain.Transaction),
		Now:   time.Now,
	}
}

// Seed stores t as-is, bypassing transactions.
func (r *MemoryTransactionRepository) Seed(t *domain.Transaction) *domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	r.items[t.ID] = t.Clone()
	return t.Clone()
}

// Count returns the number of stored transactions.
func (r *MemoryTransactionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *MemoryTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.items[id]; ok {
		return t.Clone(), nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *MemoryTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	if r.GetByIDForUpdateFunc != nil {
		return r.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryTransactionRepository) Insert(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) (*domain.Transaction, error) {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, t)
	}
	if t.ID != "" {
		return nil, domain.ErrIDPreassigned
	}

	stored := t.Clone()
	stored.ID = ulid.Make().String()
	stored.CreatedAt = r.Now().UTC().Truncate(time.Microsecond)
	stored.UpdatedAt = stored.CreatedAt
	stored.Version = 1

	memoryTx(tx).stage(func() {
		r.mu.Lock()
		r.items[stored.ID] = stored.Clone()
		r.mu.Unlock()
	})
	return stored.Clone(), nil
}

func (r *MemoryTransactionRepository) Replace(ctx context.Context, tx usecase.Transaction, t *domain.Transaction, expectedVersion int64) (*domain.Transaction, error) {
	if r.ReplaceFunc != nil {
		return r.ReplaceFunc(ctx, tx, t, expectedVersion)
	}

	r.mu.RLock()
	current, ok := r.items[t.ID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if current.Version != expectedVersion {
		return nil, domain.ErrConflict
	}

	stored := t.Clone()
	stored.CreatedAt = current.CreatedAt
	stored.CreatedBy = current.CreatedBy
	stored.Version = expectedVersion + 1

	memoryTx(tx).stage(func() {
		r.mu.Lock()
		r.items[stored.ID] = stored.Clone()
		r.mu.Unlock()
	})
	return stored.Clone(), nil
}

func (r *MemoryTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int64, error) {
	r.mu.RLock()
	matched := make([]*domain.Transaction, 0, len(r.items))
	for _, t := range r.items {
		if matchesFilter(t, filter) {
			matched = append(matched, t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date.Equal(matched[j].Date) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Date.After(matched[j].Date)
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func matchesFilter(t *domain.Transaction, f domain.TransactionFilter) bool {
	if t.Deleted && !f.IncludeDeleted {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.Search != "" {
		noteMatch := strings.Contains(strings.ToLower(t.Note), strings.ToLower(f.Search))
		amount, err := decimal.NewFromString(f.Search)
		amountMatch := err == nil && amount.Equal(t.Amount)
		if !noteMatch && !amountMatch {
			return false
		}
	}
	return true
}

func (r *MemoryTransactionRepository) Summarize(ctx context.Context, from, to *time.Time) (*domain.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &domain.Summary{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero}
	for _, t := range r.items {
		if !matchesFilter(t, domain.TransactionFilter{From: from, To: to}) {
			continue
		}
		if t.Type == domain.TransactionTypeIncome {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		} else {
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s, nil
}

// MemoryAuditRepository is an append-only in-memory AuditRepository.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry

	CreateFunc   func(ctx context.Context, entry *domain.AuditEntry) error
	CreateTxFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.AuditEntry) error
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

// Entries returns the committed entries in insertion order.
func (r *MemoryAuditRepository) Entries() []*domain.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *MemoryAuditRepository) append(entry *domain.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *entry
	r.entries = append(r.entries, &e)
}

func (r *MemoryAuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, entry)
	}
	r.append(entry)
	return nil
}

func (r *MemoryAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, entry *domain.AuditEntry) error {
	if r.CreateTxFunc != nil {
		return r.CreateTxFunc(ctx, tx, entry)
	}
	memoryTx(tx).stage(func() { r.append(entry) })
	return nil
}

func (r *MemoryAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int64, error) {
	r.mu.RLock()
	matched := make([]*domain.AuditEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.TransactionID != "" && e.TransactionID != filter.TransactionID {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

// MemoryOutboxRepository is an in-memory OutboxRepository.
type MemoryOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMemoryOutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{}
}

// Events returns committed events in insertion order.
func (r *MemoryOutboxRepository) Events() []*domain.OutboxEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.OutboxEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *MemoryOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, event)
	}
	memoryTx(tx).stage(func() {
		r.mu.Lock()
		r.events = append(r.events, event)
		r.mu.Unlock()
	})
	return nil
}

func (r *MemoryOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range r.events {
		if !e.Published {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (r *MemoryOutboxRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	var deleted int64
	for _, e := range r.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return deleted, nil
}

// SequenceIDGenerator returns fresh ULIDs.
type SequenceIDGenerator struct{}

func (SequenceIDGenerator) Generate() string {
	return ulid.Make().String()
}

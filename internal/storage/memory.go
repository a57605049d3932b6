package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
)

// MemoryStore keeps everything in process memory. It is used for local
// runs and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	records      map[string]core.RecurringRecord
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget // keyed by user_id + "\x00" + category
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:      make(map[string]core.RecurringRecord),
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.Budget),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

func (m *MemoryStore) ListActiveByUser(_ context.Context, userID string, kind core.RecordKind) ([]core.RecurringRecord, error) {
	return m.listRecords(userID, kind, true), nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID string, kind core.RecordKind) ([]core.RecurringRecord, error) {
	return m.listRecords(userID, kind, false), nil
}

func (m *MemoryStore) listRecords(userID string, kind core.RecordKind, activeOnly bool) []core.RecurringRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []core.RecurringRecord{}
	for _, r := range m.records {
		if r.UserID != userID || r.Kind != kind || (activeOnly && !r.Active) {
			continue
		}
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(*out[j].CreatedAt) {
			return out[i].CreatedAt.After(*out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryStore) GetRecord(_ context.Context, id string) (core.RecurringRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return core.RecurringRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return copyRecord(r), nil
}

func (m *MemoryStore) CreateRecord(_ context.Context, r core.RecurringRecord) (core.RecurringRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == nil {
		now := m.now()
		r.CreatedAt = &now
	}
	r.Currency = strings.ToUpper(r.Currency)
	r.Version = 1

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[r.ID]; exists {
		return core.RecurringRecord{}, fmt.Errorf("record %s already exists", r.ID)
	}
	m.records[r.ID] = copyRecord(r)
	return copyRecord(r), nil
}

func (m *MemoryStore) UpdateRecord(_ context.Context, id string, patch core.RecordPatch) (core.RecurringRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.records[id]
	if !ok {
		return core.RecurringRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	updated := patch.Apply(copyRecord(current))
	if err := updated.Validate(); err != nil {
		return core.RecurringRecord{}, err
	}
	updated.Version = current.Version + 1
	m.records[id] = updated
	return copyRecord(updated), nil
}

func (m *MemoryStore) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	return m.filterTransactions(func(t core.Transaction) bool { return t.UserID == userID }), nil
}

func (m *MemoryStore) ListTransactionsBetween(_ context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	return m.filterTransactions(func(t core.Transaction) bool {
		return t.UserID == userID && !t.Date.Before(from) && !t.Date.After(to)
	}), nil
}

func (m *MemoryStore) filterTransactions(keep func(core.Transaction) bool) []core.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []core.Transaction{}
	for _, t := range m.transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now()
	}
	t.Currency = strings.ToUpper(t.Currency)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return t, nil
}

func (m *MemoryStore) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	delete(m.transactions, id)
	return nil
}

func (m *MemoryStore) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []core.Budget{}
	for _, b := range m.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *MemoryStore) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	key := b.UserID + "\x00" + b.Category
	b.Currency = strings.ToUpper(b.Currency)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.budgets[key]; ok {
		b.ID = existing.ID
	} else if b.ID == "" {
		b.ID = uuid.NewString()
	}
	m.budgets[key] = b
	return b, nil
}

// copyRecord detaches the pointer fields so callers cannot mutate stored
// state.
func copyRecord(r core.RecurringRecord) core.RecurringRecord {
	if r.StartDate != nil {
		d := *r.StartDate
		r.StartDate = &d
	}
	if r.EndDate != nil {
		d := *r.EndDate
		r.EndDate = &d
	}
	if r.CreatedAt != nil {
		t := *r.CreatedAt
		r.CreatedAt = &t
	}
	return r
}

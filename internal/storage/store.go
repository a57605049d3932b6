// Package storage persists recurring records, transactions and budgets.
package storage

import (
	"context"
	"errors"

	"spendwise/internal/core"
)

var ErrNotFound = errors.New("storage: not found")

// RecordStore persists subscriptions and income streams.
type RecordStore interface {
	// ListActiveByUser returns the active records of one kind.
	ListActiveByUser(ctx context.Context, userID string, kind core.RecordKind) ([]core.RecurringRecord, error)
	// ListByUser returns all records of one kind, active or not.
	ListByUser(ctx context.Context, userID string, kind core.RecordKind) ([]core.RecurringRecord, error)
	GetRecord(ctx context.Context, id string) (core.RecurringRecord, error)
	CreateRecord(ctx context.Context, r core.RecurringRecord) (core.RecurringRecord, error)
	// UpdateRecord applies patch and bumps the record version.
	UpdateRecord(ctx context.Context, id string, patch core.RecordPatch) (core.RecurringRecord, error)
	DeleteRecord(ctx context.Context, id string) error
}

// TransactionStore persists one-off expenses. Listings are ordered by date,
// newest first.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	// ListTransactionsBetween returns transactions dated within [from, to].
	ListTransactionsBetween(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// BudgetStore persists per-category spending limits, one per user and
// category.
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
}

// Store is everything the application persists.
type Store interface {
	RecordStore
	TransactionStore
	BudgetStore
	Ping(ctx context.Context) error
	Close() error
}

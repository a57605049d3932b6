// Package backend builds the storage, publishing and mirror components
// selected by configuration.
package backend

import (
	"context"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/services"
	"spendwise/internal/sheets"
	"spendwise/internal/storage"
)

// CleanupFunc releases resources held by a component.
type CleanupFunc func() error

// BackendResult is the storage backend plus the optional change publisher.
// Publisher is nil when no broker is configured.
type BackendResult struct {
	Store     storage.Store
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// MirrorResult is the spreadsheet mirror together with its cleanup hook.
type MirrorResult struct {
	Mirror  sheets.Mirror
	Cleanup CleanupFunc
	// Cleaner is set when the mirror keeps a cache that should be swept
	// periodically.
	Cleaner cache.Cleaner
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config MirrorConfig) (*MirrorResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional change publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// MirrorConfig selects the spreadsheet mirror. An empty SpreadsheetID
// selects the in-memory mirror.
type MirrorConfig struct {
	SpreadsheetID      string
	SubscriptionsSheet string
	IncomeSheet        string
	CredentialsJSON    string
	CredentialsFile    string
	RowCacheSize       int
	RowCacheTTL        time.Duration
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

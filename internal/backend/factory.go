package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	gsheet "spendwise/internal/sheets/google"
	"spendwise/internal/sheets/memory"
	"spendwise/internal/storage"
)

var _ Factory = (*DefaultFactory)(nil)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
	// dial is replaced in tests so that no broker is needed.
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial:   amqp.NewClient,
	}
}

// CreateBackend opens the configured store. A broker that cannot be reached
// is logged and publishing is disabled; storage stays authoritative.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = storage.NewMemoryStore()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	result := &BackendResult{Store: store, Cleanup: store.Close}

	if config.AMQPURL == "" {
		return result, nil
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without mirroring", "error", err)
		return result, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)

	result.Publisher = client
	result.Cleanup = func() error {
		return errors.Join(client.Close(), store.Close())
	}
	return result, nil
}

// CreateMirror returns the Google Sheets mirror, or an in-memory one when
// no spreadsheet is configured.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config MirrorConfig) (*MirrorResult, error) {
	if config.SpreadsheetID == "" {
		f.logger.WarnContext(ctx, "No spreadsheet configured, mirroring to memory")
		return &MirrorResult{Mirror: memory.New(), Cleanup: func() error { return nil }}, nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.SpreadsheetID,
		SubscriptionsSheet: config.SubscriptionsSheet,
		IncomeSheet:        config.IncomeSheet,
		CredentialsJSON:    config.CredentialsJSON,
		CredentialsFile:    config.CredentialsFile,
		RowCacheSize:       config.RowCacheSize,
		RowCacheTTL:        config.RowCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "spreadsheet_id", config.SpreadsheetID)

	return &MirrorResult{
		Mirror:  client,
		Cleanup: func() error { return nil },
		Cleaner: client.RowCache(),
	}, nil
}

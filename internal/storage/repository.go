package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"

	_ "modernc.org/sqlite"
)

// Fixed width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: NewQueries(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListActiveByUser(ctx context.Context, userID string, kind core.RecordKind) ([]core.RecurringRecord, error) {
	return r.listRecords(ctx, userID, kind, true)
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string, kind core.RecordKind) ([]core.RecurringRecord, error) {
	return r.listRecords(ctx, userID, kind, false)
}

func (r *SQLiteRepository) listRecords(ctx context.Context, userID string, kind core.RecordKind, activeOnly bool) ([]core.RecurringRecord, error) {
	rows, err := r.queries.ListRecordsByUser(ctx, userID, string(kind), activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", kind, err)
	}
	out := make([]core.RecurringRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable record", "id", row.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (core.RecurringRecord, error) {
	row, err := r.queries.GetRecord(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.RecurringRecord{}, fmt.Errorf("get record: %w", err)
	}
	return recordFromRow(row)
}

// CreateRecord assigns an ID and creation time when missing.
func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec core.RecurringRecord) (core.RecurringRecord, error) {
	now := r.now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt == nil {
		rec.CreatedAt = &now
	}
	rec.Version = 1

	row := recordToRow(rec)
	row.UpdatedAt = now.Format(timestampLayout)
	if err := r.queries.CreateRecord(ctx, row); err != nil {
		return core.RecurringRecord{}, fmt.Errorf("create record: %w", err)
	}

	slog.InfoContext(ctx, "Recurring record saved to SQLite", "id", rec.ID, "kind", rec.Kind, "amount", rec.Amount)
	return rec, nil
}

// UpdateRecord reads, patches and writes the record in one transaction.
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, id string, patch core.RecordPatch) (core.RecurringRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.RecurringRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := q.GetRecord(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.RecurringRecord{}, fmt.Errorf("get record: %w", err)
	}
	current, err := recordFromRow(row)
	if err != nil {
		return core.RecurringRecord{}, err
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.RecurringRecord{}, err
	}
	newRow := recordToRow(updated)
	newRow.UpdatedAt = r.now().Format(timestampLayout)
	if _, err := q.UpdateRecord(ctx, newRow); err != nil {
		return core.RecurringRecord{}, fmt.Errorf("update record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.RecurringRecord{}, fmt.Errorf("commit: %w", err)
	}

	updated.Version = current.Version + 1
	return updated, nil
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id string) error {
	n, err := r.queries.DeleteRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactionsFromRows(rows)
}

func (r *SQLiteRepository) ListTransactionsBetween(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsBetween(ctx, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions between: %w", err)
	}
	return transactionsFromRows(rows)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	err := r.queries.CreateTransaction(ctx, TransactionRow{
		ID:         t.ID,
		UserID:     t.UserID,
		Item:       t.Item,
		Amount:     t.Amount,
		Currency:   strings.ToUpper(t.Currency),
		Category:   t.Category,
		Date:       t.Date.String(),
		ReceiptURL: t.ReceiptURL,
		CreatedAt:  t.CreatedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(rows))
	for i, b := range rows {
		out[i] = core.Budget{ID: b.ID, UserID: b.UserID, Category: b.Category, Limit: b.Limit, Currency: b.Currency}
	}
	return out, nil
}

// UpsertBudget keeps the existing ID when the user already has a budget for
// the category.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	row, err := r.queries.UpsertBudget(ctx, BudgetRow{
		ID:        b.ID,
		UserID:    b.UserID,
		Category:  b.Category,
		Limit:     b.Limit,
		Currency:  strings.ToUpper(b.Currency),
		UpdatedAt: r.now().Format(timestampLayout),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return core.Budget{ID: row.ID, UserID: row.UserID, Category: row.Category, Limit: row.Limit, Currency: row.Currency}, nil
}

func recordToRow(rec core.RecurringRecord) RecordRow {
	row := RecordRow{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Kind:      string(rec.Kind),
		Name:      rec.Name,
		Amount:    rec.Amount,
		Currency:  strings.ToUpper(rec.Currency),
		Frequency: string(rec.Frequency),
		Active:    rec.Active,
		Version:   rec.Version,
	}
	if rec.StartDate != nil {
		row.StartDate = sql.NullString{String: rec.StartDate.String(), Valid: true}
	}
	if rec.EndDate != nil {
		row.EndDate = sql.NullString{String: rec.EndDate.String(), Valid: true}
	}
	if rec.CreatedAt != nil {
		row.CreatedAt = rec.CreatedAt.UTC().Format(timestampLayout)
	}
	return row
}

func recordFromRow(row RecordRow) (core.RecurringRecord, error) {
	rec := core.RecurringRecord{
		ID:        row.ID,
		UserID:    row.UserID,
		Kind:      core.RecordKind(row.Kind),
		Name:      row.Name,
		Amount:    row.Amount,
		Currency:  row.Currency,
		Frequency: core.Frequency(row.Frequency),
		Active:    row.Active,
		Version:   row.Version,
	}
	if row.StartDate.Valid && row.StartDate.String != "" {
		d, err := core.ParseDate(row.StartDate.String)
		if err != nil {
			return rec, fmt.Errorf("record %s start date: %w", row.ID, err)
		}
		rec.StartDate = &d
	}
	if row.EndDate.Valid && row.EndDate.String != "" {
		d, err := core.ParseDate(row.EndDate.String)
		if err != nil {
			return rec, fmt.Errorf("record %s end date: %w", row.ID, err)
		}
		rec.EndDate = &d
	}
	if t, err := time.Parse(timestampLayout, row.CreatedAt); err == nil {
		rec.CreatedAt = &t
	}
	return rec, nil
}

func transactionsFromRows(rows []TransactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", row.ID, err)
		}
		created, _ := time.Parse(timestampLayout, row.CreatedAt)
		out = append(out, core.Transaction{
			ID:         row.ID,
			UserID:     row.UserID,
			Item:       row.Item,
			Amount:     row.Amount,
			Currency:   row.Currency,
			Category:   row.Category,
			Date:       d,
			ReceiptURL: row.ReceiptURL,
			CreatedAt:  created,
		})
	}
	return out, nil
}

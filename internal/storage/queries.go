package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the SQL used by SQLiteRepository, one method per statement.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type RecordRow struct {
	ID        string
	UserID    string
	Kind      string
	Name      string
	Amount    float64
	Currency  string
	Frequency string
	StartDate sql.NullString
	EndDate   sql.NullString
	Active    bool
	Version   int64
	CreatedAt string
	UpdatedAt string
}

const recordColumns = `id, user_id, kind, name, amount, currency, frequency, start_date, end_date, active, version, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (RecordRow, error) {
	var r RecordRow
	err := s.Scan(&r.ID, &r.UserID, &r.Kind, &r.Name, &r.Amount, &r.Currency, &r.Frequency,
		&r.StartDate, &r.EndDate, &r.Active, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const createRecord = `INSERT INTO recurring_records (` + recordColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRecord(ctx context.Context, r RecordRow) error {
	_, err := q.db.ExecContext(ctx, createRecord,
		r.ID, r.UserID, r.Kind, r.Name, r.Amount, r.Currency, r.Frequency,
		r.StartDate, r.EndDate, r.Active, r.Version, r.CreatedAt, r.UpdatedAt)
	return err
}

const getRecord = `SELECT ` + recordColumns + ` FROM recurring_records WHERE id = ?`

func (q *Queries) GetRecord(ctx context.Context, id string) (RecordRow, error) {
	return scanRecord(q.db.QueryRowContext(ctx, getRecord, id))
}

const listRecordsByUser = `SELECT ` + recordColumns + ` FROM recurring_records
WHERE user_id = ? AND kind = ?
ORDER BY created_at DESC, id`

const listActiveRecordsByUser = `SELECT ` + recordColumns + ` FROM recurring_records
WHERE user_id = ? AND kind = ? AND active = 1
ORDER BY created_at DESC, id`

func (q *Queries) ListRecordsByUser(ctx context.Context, userID, kind string, activeOnly bool) ([]RecordRow, error) {
	query := listRecordsByUser
	if activeOnly {
		query = listActiveRecordsByUser
	}
	rows, err := q.db.QueryContext(ctx, query, userID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RecordRow
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const updateRecord = `UPDATE recurring_records
SET name = ?, amount = ?, currency = ?, frequency = ?, start_date = ?, end_date = ?,
    active = ?, version = version + 1, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateRecord(ctx context.Context, r RecordRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateRecord,
		r.Name, r.Amount, r.Currency, r.Frequency, r.StartDate, r.EndDate,
		r.Active, r.UpdatedAt, r.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteRecord = `DELETE FROM recurring_records WHERE id = ?`

func (q *Queries) DeleteRecord(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRecord, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type TransactionRow struct {
	ID         string
	UserID     string
	Item       string
	Amount     float64
	Currency   string
	Category   string
	Date       string
	ReceiptURL string
	CreatedAt  string
}

const transactionColumns = `id, user_id, item, amount, currency, category, date, receipt_url, created_at`

func scanTransaction(s scanner) (TransactionRow, error) {
	var t TransactionRow
	err := s.Scan(&t.ID, &t.UserID, &t.Item, &t.Amount, &t.Currency, &t.Category, &t.Date, &t.ReceiptURL, &t.CreatedAt)
	return t, err
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.UserID, t.Item, t.Amount, t.Currency, t.Category, t.Date, t.ReceiptURL, t.CreatedAt)
	return err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ?
ORDER BY date DESC, created_at DESC`

const listTransactionsBetween = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ? AND date >= ? AND date <= ?
ORDER BY date DESC, created_at DESC`

func (q *Queries) ListTransactions(ctx context.Context, userID string) ([]TransactionRow, error) {
	return q.queryTransactions(ctx, listTransactions, userID)
}

// Dates are stored as YYYY-MM-DD text, so lexical order is date order.
func (q *Queries) ListTransactionsBetween(ctx context.Context, userID, from, to string) ([]TransactionRow, error) {
	return q.queryTransactions(ctx, listTransactionsBetween, userID, from, to)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type BudgetRow struct {
	ID        string
	UserID    string
	Category  string
	Limit     float64
	Currency  string
	UpdatedAt string
}

const upsertBudget = `INSERT INTO budgets (id, user_id, category, limit_amount, currency, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, category) DO UPDATE SET
    limit_amount = excluded.limit_amount,
    currency = excluded.currency,
    updated_at = excluded.updated_at
RETURNING id, user_id, category, limit_amount, currency, updated_at`

func (q *Queries) UpsertBudget(ctx context.Context, b BudgetRow) (BudgetRow, error) {
	var out BudgetRow
	err := q.db.QueryRowContext(ctx, upsertBudget, b.ID, b.UserID, b.Category, b.Limit, b.Currency, b.UpdatedAt).
		Scan(&out.ID, &out.UserID, &out.Category, &out.Limit, &out.Currency, &out.UpdatedAt)
	return out, err
}

const listBudgets = `SELECT id, user_id, category, limit_amount, currency, updated_at
FROM budgets WHERE user_id = ? ORDER BY category`

func (q *Queries) ListBudgets(ctx context.Context, userID string) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BudgetRow
	for rows.Next() {
		var b BudgetRow
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit, &b.Currency, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

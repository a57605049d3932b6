package services

import (
	"context"
	"fmt"
	"strings"

	"spendwise/internal/accounting"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// LedgerService records one-off expenses and per-category budgets.
type LedgerService struct {
	transactions storage.TransactionStore
	budgets      storage.BudgetStore
	currency     string
	logger       *log.Logger
}

func NewLedgerService(store interface {
	storage.TransactionStore
	storage.BudgetStore
}, defaultCurrency string, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.NewDiscard()
	}
	return &LedgerService{
		transactions: store,
		budgets:      store,
		currency:     core.NormalizeCurrency(defaultCurrency, accounting.DefaultCurrency),
		logger:       logger.WithComponent(log.ComponentRecords),
	}
}

// AddTransaction rounds the amount to cents and maps the category onto a
// known one before storing. An empty currency takes the default.
func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Item = strings.TrimSpace(t.Item)
	t.Amount = core.RoundCents(t.Amount)
	t.Category = core.NormalizeCategory(t.Category)
	if strings.TrimSpace(t.Currency) == "" {
		t.Currency = s.currency
	}
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.transactions.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction saved", log.FieldUserID, t.UserID, log.FieldAmount, t.Amount, log.FieldCurrency, t.Currency)
	return saved, nil
}

// Transactions lists a user's transactions inside the period, newest first.
func (s *LedgerService) Transactions(ctx context.Context, userID string, period core.CalendarPeriod) ([]core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrEmptyUser
	}
	if period.Kind == core.PeriodAllTime {
		return s.transactions.ListTransactions(ctx, userID)
	}
	from, to := period.Window(core.Date{}, core.Date{})
	return s.transactions.ListTransactionsBetween(ctx, userID, from, to)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	return s.transactions.DeleteTransaction(ctx, id)
}

// SetBudget creates or replaces the user's limit for a category.
func (s *LedgerService) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Category = core.NormalizeCategory(b.Category)
	if strings.TrimSpace(b.Currency) == "" {
		b.Currency = s.currency
	}
	b.Currency = strings.ToUpper(strings.TrimSpace(b.Currency))
	b.Limit = core.RoundCents(b.Limit)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.budgets.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return saved, nil
}

func (s *LedgerService) Budgets(ctx context.Context, userID string) ([]core.Budget, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrEmptyUser
	}
	return s.budgets.ListBudgets(ctx, userID)
}

package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/accounting"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// SummaryService builds dashboard totals and budget overviews.
type SummaryService struct {
	records      storage.RecordStore
	transactions storage.TransactionStore
	budgets      storage.BudgetStore
	engine       *accounting.Engine
	converter    accounting.CurrencyConverter
	currency     string
}

func NewSummaryService(store storage.Store, engine *accounting.Engine, converter accounting.CurrencyConverter, defaultCurrency string) *SummaryService {
	return &SummaryService{
		records:      store,
		transactions: store,
		budgets:      store,
		engine:       engine,
		converter:    converter,
		currency:     core.NormalizeCurrency(defaultCurrency, accounting.DefaultCurrency),
	}
}

func (s *SummaryService) reportCurrency(code string) string {
	return core.NormalizeCurrency(code, s.currency)
}

// Summary returns subscriptions, income, expenses and net for the period.
func (s *SummaryService) Summary(ctx context.Context, userID string, period core.CalendarPeriod, currency string) (core.PeriodSummary, error) {
	cur := s.reportCurrency(currency)

	var subs, incomes []core.RecurringRecord
	var txs []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subs, err = s.records.ListActiveByUser(gctx, userID, core.KindSubscription)
		return err
	})
	g.Go(func() (err error) {
		incomes, err = s.records.ListActiveByUser(gctx, userID, core.KindIncome)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.periodTransactions(gctx, userID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.PeriodSummary{}, fmt.Errorf("load summary data: %w", err)
	}

	subscriptions := core.RoundCents(s.engine.ComputeAggregate(subs, cur, period))
	income := core.RoundCents(s.engine.ComputeAggregate(incomes, cur, period))
	expenses := s.sumTransactions(txs, cur)

	return core.PeriodSummary{
		Period:        period.String(),
		Currency:      cur,
		Subscriptions: subscriptions,
		Income:        income,
		Expenses:      expenses,
		Net:           core.SumAmounts(income, -subscriptions, -expenses),
	}, nil
}

// Breakdown returns each record's contribution to the period, largest
// first.
func (s *SummaryService) Breakdown(ctx context.Context, userID string, kind core.RecordKind, period core.CalendarPeriod, currency string) ([]accounting.RecordAmount, error) {
	records, err := s.records.ListActiveByUser(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := s.engine.Breakdown(records, s.reportCurrency(currency), period)
	for i := range out {
		out[i].Amount = core.RoundCents(out[i].Amount)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out, nil
}

// BudgetOverview joins spending per category with the user's budgets. The
// period's subscription cost is reported under the Subscriptions category.
// Budgeted categories without spending are included with zero.
func (s *SummaryService) BudgetOverview(ctx context.Context, userID string, period core.CalendarPeriod, currency string) (core.BudgetOverview, error) {
	cur := s.reportCurrency(currency)

	var subs []core.RecurringRecord
	var txs []core.Transaction
	var budgets []core.Budget
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subs, err = s.records.ListActiveByUser(gctx, userID, core.KindSubscription)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.periodTransactions(gctx, userID, period)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.budgets.ListBudgets(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.BudgetOverview{}, fmt.Errorf("load budget data: %w", err)
	}

	spent := map[string]float64{}
	for _, t := range txs {
		spent[core.NormalizeCategory(t.Category)] += s.converter.Convert(t.Amount, t.Currency, cur)
	}
	if cost := s.engine.ComputeAggregate(subs, cur, period); cost > 0 {
		spent[core.CategorySubscriptions] += cost
	}

	limits := map[string]float64{}
	for _, b := range budgets {
		limits[b.Category] = s.converter.Convert(b.Limit, b.Currency, cur)
		if _, ok := spent[b.Category]; !ok {
			spent[b.Category] = 0
		}
	}

	overview := core.BudgetOverview{
		Period:     period.String(),
		Currency:   cur,
		Categories: make([]core.BudgetStatus, 0, len(spent)),
	}
	amounts := make([]float64, 0, len(spent))
	for category, amount := range spent {
		amount = core.RoundCents(amount)
		amounts = append(amounts, amount)
		overview.Categories = append(overview.Categories, budgetStatus(category, amount, limits))
	}
	overview.TotalSpent = core.SumAmounts(amounts...)

	sort.Slice(overview.Categories, func(i, j int) bool {
		a, b := overview.Categories[i], overview.Categories[j]
		if a.Spent != b.Spent {
			return a.Spent > b.Spent
		}
		return a.Category < b.Category
	})
	return overview, nil
}

func budgetStatus(category string, spent float64, limits map[string]float64) core.BudgetStatus {
	st := core.BudgetStatus{Category: category, Spent: spent}
	limit, ok := limits[category]
	if !ok || limit <= 0 {
		return st
	}
	st.HasBudget = true
	st.Limit = core.RoundCents(limit)
	st.OverBudget = spent > limit
	pct := spent / limit * 100
	if pct > 100 {
		pct = 100
	}
	st.Percentage = core.RoundCents(pct)
	return st
}

func (s *SummaryService) periodTransactions(ctx context.Context, userID string, period core.CalendarPeriod) ([]core.Transaction, error) {
	if period.Kind == core.PeriodAllTime {
		return s.transactions.ListTransactions(ctx, userID)
	}
	from, to := period.Window(core.Date{}, core.Date{})
	return s.transactions.ListTransactionsBetween(ctx, userID, from, to)
}

func (s *SummaryService) sumTransactions(txs []core.Transaction, cur string) float64 {
	amounts := make([]float64, len(txs))
	for i, t := range txs {
		amounts[i] = s.converter.Convert(t.Amount, t.Currency, cur)
	}
	return core.SumAmounts(amounts...)
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/accounting"
	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
	"spendwise/internal/utils"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func testEngine() *accounting.Engine {
	return accounting.New(core.NewConverter(nil), accounting.WithClock(utils.NewMockClock(testNow)))
}

func datePtr(y, m, d int) *core.Date {
	v := core.NewDate(y, m, d)
	return &v
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.RecordChangedMessage
	err  error
}

func (f *fakePublisher) PublishRecordChanged(_ context.Context, msg *amqp.RecordChangedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func monthly(user, name string, amount float64, start *core.Date) core.RecurringRecord {
	return core.RecurringRecord{
		UserID: user, Kind: core.KindSubscription, Name: name, Amount: amount,
		Currency: "USD", Frequency: core.Monthly, StartDate: start, Active: true,
	}
}

func TestRecordService_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewRecordService(storage.NewMemoryStore(), pub, testEngine(), nil)

	rec := monthly("u1", "  Video  ", 12, datePtr(2024, 1, 31))
	rec.Currency = "usd"
	created, err := svc.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "Video", created.Name)
	assert.Equal(t, "USD", created.Currency)

	amount := 14.0
	updated, err := svc.Update(ctx, created.ID, core.RecordPatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	require.NoError(t, svc.Delete(ctx, created.ID))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, amqp.OpUpsert, pub.msgs[0].Op)
	assert.Equal(t, int64(2), pub.msgs[1].Version)
	assert.Equal(t, amqp.OpDelete, pub.msgs[2].Op)
	assert.Equal(t, created.ID, pub.msgs[2].ID)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), storage.ErrNotFound)
}

func TestRecordService_CreateValidates(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewRecordService(storage.NewMemoryStore(), pub, testEngine(), nil)

	_, err := svc.Create(context.Background(), monthly("u1", "Bad", -1, nil))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, pub.msgs)
}

func TestRecordService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewRecordService(storage.NewMemoryStore(), pub, testEngine(), nil)

	created, err := svc.Create(context.Background(), monthly("u1", "Music", 9.99, nil))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestRecordService_NextChargeDate(t *testing.T) {
	ctx := context.Background()
	svc := NewRecordService(storage.NewMemoryStore(), nil, testEngine(), nil)

	tests := []struct {
		name   string
		record core.RecurringRecord
		want   *core.Date
	}{
		{"month end anchor", monthly("u1", "A", 1, datePtr(2024, 1, 31)), datePtr(2024, 3, 31)},
		{"charge today moves to next", monthly("u1", "B", 1, datePtr(2023, 12, 15)), datePtr(2024, 4, 15)},
		{"no start", monthly("u1", "C", 1, nil), nil},
		{
			name: "ends before next charge",
			record: func() core.RecurringRecord {
				r := monthly("u1", "D", 1, datePtr(2024, 1, 20))
				r.EndDate = datePtr(2024, 3, 20)
				return r
			}(),
			want: nil,
		},
		{
			name: "inactive",
			record: func() core.RecurringRecord {
				r := monthly("u1", "E", 1, datePtr(2024, 1, 1))
				r.Active = false
				return r
			}(),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := svc.Create(ctx, tt.record)
			require.NoError(t, err)
			view, err := svc.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, view.NextChargeDate)
		})
	}

	views, err := svc.List(ctx, "u1", core.KindSubscription)
	require.NoError(t, err)
	assert.Len(t, views, len(tests))
}

func seedSummary(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.CreateRecord(ctx, monthly("u1", "Streaming", 10, datePtr(2024, 1, 10)))
	require.NoError(t, err)

	salary := monthly("u1", "Salary", 1000, datePtr(2024, 1, 1))
	salary.Kind = core.KindIncome
	_, err = store.CreateRecord(ctx, salary)
	require.NoError(t, err)

	for _, tx := range []core.Transaction{
		{UserID: "u1", Item: "Market", Amount: 50, Currency: "USD", Category: "Groceries", Date: core.NewDate(2024, 3, 2)},
		{UserID: "u1", Item: "Dinner", Amount: 30.5, Currency: "USD", Category: "restaurants", Date: core.NewDate(2024, 3, 20)},
		{UserID: "u1", Item: "Book", Amount: 9.2, Currency: "EUR", Category: "Education", Date: core.NewDate(2024, 3, 5)},
		{UserID: "u1", Item: "Old", Amount: 99, Currency: "USD", Category: "Groceries", Date: core.NewDate(2024, 2, 10)},
	} {
		_, err := store.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}
}

func TestSummaryService_Summary(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSummary(t, store)
	svc := NewSummaryService(store, testEngine(), core.NewConverter(nil), "USD")

	sum, err := svc.Summary(context.Background(), "u1", core.Month(2024, 3), "")
	require.NoError(t, err)

	assert.Equal(t, "month:2024-03", sum.Period)
	assert.Equal(t, "USD", sum.Currency)
	assert.InDelta(t, 10, sum.Subscriptions, 0.001)
	assert.InDelta(t, 1000, sum.Income, 0.001)
	assert.InDelta(t, 90.5, sum.Expenses, 0.001)
	assert.InDelta(t, 899.5, sum.Net, 0.001)

	all, err := svc.Summary(context.Background(), "u1", core.AllTime(), "USD")
	require.NoError(t, err)
	assert.InDelta(t, 189.5, all.Expenses, 0.001)
	assert.InDelta(t, 30, all.Subscriptions, 0.001)
	assert.InDelta(t, 3000, all.Income, 0.001)
}

func TestSummaryService_BudgetOverview(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedSummary(t, store)
	for _, b := range []core.Budget{
		{UserID: "u1", Category: "Groceries", Limit: 40, Currency: "USD"},
		{UserID: "u1", Category: "Restaurants", Limit: 92, Currency: "EUR"},
		{UserID: "u1", Category: "Shopping", Limit: 100, Currency: "USD"},
	} {
		_, err := store.UpsertBudget(ctx, b)
		require.NoError(t, err)
	}
	svc := NewSummaryService(store, testEngine(), core.NewConverter(nil), "USD")

	ov, err := svc.BudgetOverview(ctx, "u1", core.Month(2024, 3), "USD")
	require.NoError(t, err)

	assert.InDelta(t, 100.5, ov.TotalSpent, 0.001)
	require.Len(t, ov.Categories, 5)

	names := make([]string, len(ov.Categories))
	for i, c := range ov.Categories {
		names[i] = c.Category
	}
	assert.Equal(t, []string{"Groceries", "Restaurants", "Education", "Subscriptions", "Shopping"}, names)

	groceries := ov.Categories[0]
	assert.True(t, groceries.HasBudget)
	assert.True(t, groceries.OverBudget)
	assert.Equal(t, 100.0, groceries.Percentage)

	restaurants := ov.Categories[1]
	assert.InDelta(t, 100, restaurants.Limit, 0.001)
	assert.InDelta(t, 30.5, restaurants.Percentage, 0.001)
	assert.False(t, restaurants.OverBudget)

	education := ov.Categories[2]
	assert.False(t, education.HasBudget)
	assert.InDelta(t, 10, education.Spent, 0.001)

	shopping := ov.Categories[4]
	assert.Equal(t, 0.0, shopping.Spent)
	assert.Equal(t, 0.0, shopping.Percentage)
}

func TestSummaryService_Breakdown(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedSummary(t, store)
	_, err := store.CreateRecord(ctx, monthly("u1", "Cloud", 25, datePtr(2024, 2, 1)))
	require.NoError(t, err)
	svc := NewSummaryService(store, testEngine(), core.NewConverter(nil), "USD")

	out, err := svc.Breakdown(ctx, "u1", core.KindSubscription, core.Month(2024, 3), "USD")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Cloud", out[0].Name)
	assert.Equal(t, 25.0, out[0].Amount)
	assert.Equal(t, 1, out[1].Charges)
}

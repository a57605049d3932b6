package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

func TestLedgerService_AddTransaction(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(storage.NewMemoryStore(), "eur", nil)

	tests := []struct {
		name    string
		in      core.Transaction
		wantErr error
		check   func(t *testing.T, got core.Transaction)
	}{
		{
			name: "normalises category, currency and amount",
			in:   core.Transaction{UserID: "u1", Item: " Milk ", Amount: 1.005, Category: "groceries", Date: core.NewDate(2024, 3, 1)},
			check: func(t *testing.T, got core.Transaction) {
				assert.Equal(t, "Milk", got.Item)
				assert.Equal(t, "Groceries", got.Category)
				assert.Equal(t, "EUR", got.Currency)
				assert.InDelta(t, 1.01, got.Amount, 1e-9)
				assert.NotEmpty(t, got.ID)
			},
		},
		{
			name: "unknown category becomes Other",
			in:   core.Transaction{UserID: "u1", Item: "Thing", Amount: 3, Currency: "usd", Category: "Gadgets", Date: core.NewDate(2024, 3, 1)},
			check: func(t *testing.T, got core.Transaction) {
				assert.Equal(t, core.CategoryOther, got.Category)
				assert.Equal(t, "USD", got.Currency)
			},
		},
		{
			name:    "non-positive amount",
			in:      core.Transaction{UserID: "u1", Item: "Refund", Amount: -3, Date: core.NewDate(2024, 3, 1)},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "missing date",
			in:      core.Transaction{UserID: "u1", Item: "Coffee", Amount: 3},
			wantErr: core.ErrMissingDate,
		},
		{
			name:    "missing user",
			in:      core.Transaction{Item: "Coffee", Amount: 3, Date: core.NewDate(2024, 3, 1)},
			wantErr: core.ErrEmptyUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AddTransaction(ctx, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestLedgerService_TransactionsByPeriod(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(storage.NewMemoryStore(), "USD", nil)

	for _, d := range []core.Date{core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31), core.NewDate(2025, 1, 1)} {
		_, err := svc.AddTransaction(ctx, core.Transaction{UserID: "u1", Item: "x", Amount: 1, Date: d})
		require.NoError(t, err)
	}

	tests := []struct {
		period core.CalendarPeriod
		want   int
	}{
		{period: core.Month(2024, 3), want: 2},
		{period: core.Year(2024), want: 3},
		{period: core.AllTime(), want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			got, err := svc.Transactions(ctx, "u1", tt.period)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	_, err := svc.Transactions(ctx, " ", core.AllTime())
	assert.ErrorIs(t, err, core.ErrEmptyUser)
}

func TestLedgerService_SetBudget(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(storage.NewMemoryStore(), "DKK", nil)

	first, err := svc.SetBudget(ctx, core.Budget{UserID: "u1", Category: "restaurants", Limit: 400})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryRestaurants, first.Category)
	assert.Equal(t, "DKK", first.Currency)

	second, err := svc.SetBudget(ctx, core.Budget{UserID: "u1", Category: "Restaurants", Limit: 450, Currency: "dkk"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	budgets, err := svc.Budgets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, 450.0, budgets[0].Limit)

	_, err = svc.SetBudget(ctx, core.Budget{UserID: "u1", Category: "Bills", Limit: 0})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

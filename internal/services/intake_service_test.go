package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/ai"
	"spendwise/internal/core"
	"spendwise/internal/storage"
	"spendwise/internal/utils"
)

type fakeAssistant struct {
	receipt ai.Receipt
	parsed  ai.ParsedExpense
	err     error
	search  ai.SearchResult
	seen    []core.Transaction
}

func (f *fakeAssistant) AnalyzeReceipt(context.Context, ai.Media) (ai.Receipt, error) {
	return f.receipt, f.err
}

func (f *fakeAssistant) ParseAudio(context.Context, ai.Media) (ai.ParsedExpense, error) {
	return f.parsed, f.err
}

func (f *fakeAssistant) ParseText(context.Context, string) (ai.ParsedExpense, error) {
	return f.parsed, f.err
}

func (f *fakeAssistant) Insights(_ context.Context, txs []core.Transaction) []ai.Insight {
	f.seen = txs
	return []ai.Insight{{Type: "tip", Message: "Cook more"}}
}

func (f *fakeAssistant) Search(_ context.Context, _ string, txs []core.Transaction) ai.SearchResult {
	f.seen = txs
	return f.search
}

func newIntake(a Assistant, store storage.TransactionStore) *IntakeService {
	return NewIntakeService(a, store, utils.NewMockClock(testNow), nil, "DKK", nil)
}

func TestIntakeService_Receipt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	a := &fakeAssistant{receipt: ai.Receipt{
		Date: core.NewDate(2024, 3, 10),
		Items: []ai.Item{
			{Item: "Milk", Amount: 12.955, Category: "groceries"},
			{Item: "Tip", Amount: 5, Category: "Gratuity"},
		},
	}}
	svc := newIntake(a, store)

	res, err := svc.Receipt(ctx, "u1", ai.Media{MIMEType: "image/jpeg", Data: []byte{1}}, "", "https://example.test/r.jpg")
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	milk := res.Transactions[0]
	assert.Equal(t, core.NewDate(2024, 3, 10), milk.Date)
	assert.Equal(t, 12.96, milk.Amount)
	assert.Equal(t, "DKK", milk.Currency)
	assert.Equal(t, "Groceries", milk.Category)
	assert.Equal(t, "https://example.test/r.jpg", milk.ReceiptURL)
	assert.Equal(t, core.CategoryOther, res.Transactions[1].Category)

	stored, err := store.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestIntakeService_TextDatedToday(t *testing.T) {
	a := &fakeAssistant{parsed: ai.ParsedExpense{Items: []ai.Item{{Item: "Lunch", Amount: 85, Category: "Restaurants"}}}}
	svc := newIntake(a, storage.NewMemoryStore())

	res, err := svc.Text(context.Background(), "u1", "lunch 85", "eur")
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, core.NewDate(2024, 3, 15), res.Transactions[0].Date)
	assert.Equal(t, "EUR", res.Transactions[0].Currency)
}

func TestIntakeService_AudioKeepsTranscription(t *testing.T) {
	a := &fakeAssistant{parsed: ai.ParsedExpense{
		Transcription: "coffee twenty five",
		Items:         []ai.Item{{Item: "Coffee", Amount: 25, Category: "Restaurants"}},
	}}
	svc := newIntake(a, storage.NewMemoryStore())

	res, err := svc.Audio(context.Background(), "u1", ai.Media{MIMEType: "audio/ogg", Data: []byte{1}}, "")
	require.NoError(t, err)
	assert.Equal(t, "coffee twenty five", res.Transcription)
	assert.Len(t, res.Transactions, 1)
}

func TestIntakeService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		a       *fakeAssistant
		wantErr error
	}{
		{"model failure", &fakeAssistant{err: ai.ErrRateLimited}, ai.ErrRateLimited},
		{"nothing parsed", &fakeAssistant{}, ErrNoItems},
		{"only invalid items", &fakeAssistant{parsed: ai.ParsedExpense{Items: []ai.Item{{Item: "", Amount: 3}}}}, ErrNoItems},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newIntake(tt.a, storage.NewMemoryStore())
			_, err := svc.Text(context.Background(), "u1", "something", "")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestIntakeService_SearchResolvesMatches(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tx, err := store.CreateTransaction(ctx, core.Transaction{UserID: "u1", Item: "Taxi", Amount: 120, Currency: "DKK", Category: "Transportation", Date: core.NewDate(2024, 3, 1)})
	require.NoError(t, err)

	a := &fakeAssistant{search: ai.SearchResult{Answer: "One taxi ride", Matches: []string{tx.ID, "unknown"}}}
	svc := newIntake(a, store)

	ans, err := svc.Search(ctx, "u1", "taxi rides?")
	require.NoError(t, err)
	assert.Equal(t, "One taxi ride", ans.Answer)
	require.Len(t, ans.Matches, 1)
	assert.Equal(t, "Taxi", ans.Matches[0].Item)

	insights, err := svc.Insights(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, insights, 1)
	assert.Len(t, a.seen, 1)
}

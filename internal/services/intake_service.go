package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendwise/internal/ai"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
	"spendwise/internal/utils"
)

// Assistant is the model-backed part of intake. *ai.Client implements it.
type Assistant interface {
	AnalyzeReceipt(ctx context.Context, image ai.Media) (ai.Receipt, error)
	ParseAudio(ctx context.Context, audio ai.Media) (ai.ParsedExpense, error)
	ParseText(ctx context.Context, input string) (ai.ParsedExpense, error)
	Insights(ctx context.Context, txs []core.Transaction) []ai.Insight
	Search(ctx context.Context, query string, txs []core.Transaction) ai.SearchResult
}

var ErrNoItems = errors.New("no expense items found")

// IntakeResult is what an intake request stored.
type IntakeResult struct {
	Transcription string
	Transactions  []core.Transaction
}

// SearchAnswer is a search result with the matched transactions resolved.
type SearchAnswer struct {
	Answer  string
	Matches []core.Transaction
}

// IntakeService turns receipts, voice notes and free text into stored
// transactions, and answers questions about them.
type IntakeService struct {
	assistant Assistant
	store     storage.TransactionStore
	clock     utils.Clock
	loc       *time.Location
	currency  string
	logger    *log.Logger
}

func NewIntakeService(assistant Assistant, store storage.TransactionStore, clock utils.Clock, loc *time.Location, defaultCurrency string, logger *log.Logger) *IntakeService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.NewDiscard()
	}
	return &IntakeService{
		assistant: assistant,
		store:     store,
		clock:     clock,
		loc:       loc,
		currency:  core.NormalizeCurrency(defaultCurrency, "USD"),
		logger:    logger.WithComponent(log.ComponentIntake),
	}
}

func (s *IntakeService) today() core.Date {
	return core.DateIn(s.clock.Now(), s.loc)
}

// Receipt stores the receipt's items dated on the receipt date.
func (s *IntakeService) Receipt(ctx context.Context, userID string, image ai.Media, currency, receiptURL string) (IntakeResult, error) {
	receipt, err := s.assistant.AnalyzeReceipt(ctx, image)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("analyze receipt: %w", err)
	}
	txs, err := s.save(ctx, userID, receipt.Items, receipt.Date, currency, receiptURL)
	if err != nil {
		return IntakeResult{}, err
	}
	return IntakeResult{Transactions: txs}, nil
}

// Audio stores the items of a voice note dated today.
func (s *IntakeService) Audio(ctx context.Context, userID string, audio ai.Media, currency string) (IntakeResult, error) {
	parsed, err := s.assistant.ParseAudio(ctx, audio)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("parse audio: %w", err)
	}
	txs, err := s.save(ctx, userID, parsed.Items, s.today(), currency, "")
	if err != nil {
		return IntakeResult{}, err
	}
	return IntakeResult{Transcription: parsed.Transcription, Transactions: txs}, nil
}

// Text stores the items found in free text dated today.
func (s *IntakeService) Text(ctx context.Context, userID, text, currency string) (IntakeResult, error) {
	parsed, err := s.assistant.ParseText(ctx, text)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("parse text: %w", err)
	}
	txs, err := s.save(ctx, userID, parsed.Items, s.today(), currency, "")
	if err != nil {
		return IntakeResult{}, err
	}
	return IntakeResult{Transactions: txs}, nil
}

func (s *IntakeService) save(ctx context.Context, userID string, items []ai.Item, date core.Date, currency, receiptURL string) ([]core.Transaction, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if date.IsZero() {
		date = s.today()
	}
	cur := core.NormalizeCurrency(currency, s.currency)

	out := make([]core.Transaction, 0, len(items))
	for _, it := range items {
		tx := core.Transaction{
			UserID:     userID,
			Item:       it.Item,
			Amount:     core.RoundCents(it.Amount),
			Currency:   cur,
			Category:   core.NormalizeCategory(it.Category),
			Date:       date,
			ReceiptURL: receiptURL,
		}
		if err := tx.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid parsed item", "item", it.Item, log.FieldError, err.Error())
			continue
		}
		saved, err := s.store.CreateTransaction(ctx, tx)
		if err != nil {
			return out, fmt.Errorf("save transaction: %w", err)
		}
		out = append(out, saved)
	}
	if len(out) == 0 {
		return nil, ErrNoItems
	}
	s.logger.InfoContext(ctx, "Intake stored transactions", log.FieldUserID, userID, log.FieldItems, len(out))
	return out, nil
}

// Insights never fails on the model side; only loading transactions can.
func (s *IntakeService) Insights(ctx context.Context, userID string) ([]ai.Insight, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.assistant.Insights(ctx, txs), nil
}

func (s *IntakeService) Search(ctx context.Context, userID, query string) (SearchAnswer, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return SearchAnswer{}, fmt.Errorf("list transactions: %w", err)
	}
	res := s.assistant.Search(ctx, query, txs)

	byID := make(map[string]core.Transaction, len(txs))
	for _, t := range txs {
		byID[t.ID] = t
	}
	answer := SearchAnswer{Answer: res.Answer, Matches: []core.Transaction{}}
	for _, id := range res.Matches {
		if t, ok := byID[id]; ok {
			answer.Matches = append(answer.Matches, t)
		}
	}
	return answer, nil
}

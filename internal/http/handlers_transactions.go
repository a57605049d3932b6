package http

import (
	"net/http"
	"strings"
	"time"

	"spendwise/internal/core"
)

type transactionRequest struct {
	UserID     string      `json:"user_id"`
	Item       string      `json:"item"`
	Amount     amountValue `json:"amount"`
	Currency   string      `json:"currency"`
	Category   string      `json:"category"`
	Date       core.Date   `json:"date"`
	ReceiptURL string      `json:"receipt_url"`
}

type transactionResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Item       string    `json:"item"`
	Amount     float64   `json:"amount"`
	Display    string    `json:"display"`
	Currency   string    `json:"currency"`
	Category   string    `json:"category"`
	Date       core.Date `json:"date"`
	ReceiptURL string    `json:"receipt_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:         t.ID,
		UserID:     t.UserID,
		Item:       t.Item,
		Amount:     t.Amount,
		Display:    core.FormatAmount(t.Amount, t.Currency),
		Currency:   t.Currency,
		Category:   t.Category,
		Date:       t.Date,
		ReceiptURL: t.ReceiptURL,
		CreatedAt:  t.CreatedAt,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toTransactionResponse(t)
	}
	return out
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	period, err := parsePeriod(r.URL.Query().Get("period"), s.today())
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	txs, err := s.ledger.Transactions(r.Context(), user, period)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"period":       period.String(),
		"transactions": toTransactionResponses(txs),
	}).Write(w)
}

// handleCreateTransaction stores a manual expense. A missing date means
// today.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = r.URL.Query().Get("user")
	}
	if req.Date.IsZero() {
		req.Date = s.today()
	}

	saved, err := s.ledger.AddTransaction(r.Context(), core.Transaction{
		UserID:     strings.TrimSpace(req.UserID),
		Item:       req.Item,
		Amount:     float64(req.Amount),
		Currency:   req.Currency,
		Category:   req.Category,
		Date:       req.Date,
		ReceiptURL: strings.TrimSpace(req.ReceiptURL),
	})
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()
	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionResponse(saved)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

package http

import (
	"net/http"
	"strings"

	"spendwise/internal/accounting"
	"spendwise/internal/core"
)

type reportQuery struct {
	user     string
	period   core.CalendarPeriod
	currency string
}

func (s *Server) parseReportQuery(r *http.Request) (reportQuery, error) {
	user, err := userID(r)
	if err != nil {
		return reportQuery{}, err
	}
	q := r.URL.Query()
	period, err := parsePeriod(q.Get("period"), s.today())
	if err != nil {
		return reportQuery{}, err
	}
	currency, err := parseCurrency(q.Get("currency"))
	if err != nil {
		return reportQuery{}, err
	}
	return reportQuery{user: user, period: period, currency: currency}, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseReportQuery(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	key := summaryKey(q.user, q.period, q.currency)
	if cached, ok := s.summaryCache.Get(key); ok {
		NewJSONResponse().Header("X-Cache", "HIT").Body(cached).Write(w)
		return
	}

	sum, err := s.summary.Summary(r.Context(), q.user, q.period, q.currency)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.summaryCache.Set(key, sum)
	NewJSONResponse().Header("X-Cache", "MISS").Body(sum).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseReportQuery(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	items, err := s.summary.Breakdown(r.Context(), q.user, kind, q.period, q.currency)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if items == nil {
		items = []accounting.RecordAmount{}
	}
	NewJSONResponse().Body(map[string]any{
		"period": q.period.String(),
		"kind":   kind,
		"items":  items,
	}).Write(w)
}

func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseReportQuery(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	overview, err := s.summary.BudgetOverview(r.Context(), q.user, q.period, q.currency)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if overview.Categories == nil {
		overview.Categories = []core.BudgetStatus{}
	}
	NewJSONResponse().Body(overview).Write(w)
}

type budgetRequest struct {
	UserID   string      `json:"user_id"`
	Category string      `json:"category"`
	Limit    amountValue `json:"limit"`
	Currency string      `json:"currency"`
}

type budgetResponse struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
	Currency string  `json:"currency"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{ID: b.ID, UserID: b.UserID, Category: b.Category, Limit: b.Limit, Currency: b.Currency}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	budgets, err := s.ledger.Budgets(r.Context(), user)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	out := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = toBudgetResponse(b)
	}
	NewJSONResponse().Body(map[string]any{"budgets": out}).Write(w)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = r.URL.Query().Get("user")
	}

	saved, err := s.ledger.SetBudget(r.Context(), core.Budget{
		UserID:   strings.TrimSpace(req.UserID),
		Category: req.Category,
		Limit:    float64(req.Limit),
		Currency: req.Currency,
	})
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(toBudgetResponse(saved)).Write(w)
}

package http

import (
	"net/http"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

type recordRequest struct {
	UserID    string      `json:"user_id"`
	Kind      string      `json:"kind"`
	Name      string      `json:"name"`
	Amount    amountValue `json:"amount"`
	Currency  string      `json:"currency"`
	Frequency string      `json:"frequency"`
	StartDate *core.Date  `json:"start_date"`
	EndDate   *core.Date  `json:"end_date"`
	// Active defaults to true.
	Active *bool `json:"active"`
}

type recordPatchRequest struct {
	Name         *string      `json:"name"`
	Amount       *amountValue `json:"amount"`
	Currency     *string      `json:"currency"`
	Frequency    *string      `json:"frequency"`
	StartDate    *core.Date   `json:"start_date"`
	EndDate      *core.Date   `json:"end_date"`
	ClearEndDate bool         `json:"clear_end_date"`
	Active       *bool        `json:"active"`
}

type recordResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Kind           string     `json:"kind"`
	Name           string     `json:"name"`
	Amount         float64    `json:"amount"`
	Display        string     `json:"display"`
	Currency       string     `json:"currency"`
	Frequency      string     `json:"frequency"`
	StartDate      *core.Date `json:"start_date"`
	EndDate        *core.Date `json:"end_date"`
	Active         bool       `json:"active"`
	Version        int64      `json:"version"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	NextChargeDate *core.Date `json:"next_charge_date"`
}

func toRecordResponse(v services.RecordView) recordResponse {
	r := v.Record
	return recordResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		Kind:           string(r.Kind),
		Name:           r.Name,
		Amount:         r.Amount,
		Display:        core.FormatAmount(r.Amount, r.Currency),
		Currency:       r.Currency,
		Frequency:      string(r.Frequency),
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Active:         r.Active,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		NextChargeDate: v.NextChargeDate,
	}
}

func (req recordRequest) toRecord() (core.RecurringRecord, error) {
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		return core.RecurringRecord{}, err
	}
	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		return core.RecurringRecord{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return core.RecurringRecord{
		UserID:    strings.TrimSpace(req.UserID),
		Kind:      kind,
		Name:      req.Name,
		Amount:    float64(req.Amount),
		Currency:  req.Currency,
		Frequency: freq,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Active:    active,
	}, nil
}

func (req recordPatchRequest) toPatch() (core.RecordPatch, error) {
	p := core.RecordPatch{
		Name:         req.Name,
		Currency:     req.Currency,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		ClearEndDate: req.ClearEndDate,
		Active:       req.Active,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		p.Name = &name
	}
	if req.Amount != nil {
		amount := float64(*req.Amount)
		p.Amount = &amount
	}
	if req.Frequency != nil {
		f, err := core.ParseFrequency(*req.Frequency)
		if err != nil {
			return core.RecordPatch{}, err
		}
		p.Frequency = &f
	}
	return p, nil
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	views, err := s.records.List(r.Context(), user, kind)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	out := make([]recordResponse, len(views))
	for i, v := range views {
		out[i] = toRecordResponse(v)
	}
	NewJSONResponse().Body(map[string]any{"records": out}).Write(w)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if req.UserID == "" {
		req.UserID = r.URL.Query().Get("user")
	}
	rec, err := req.toRecord()
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	created, err := s.records.Create(r.Context(), rec)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()

	view, err := s.records.Get(r.Context(), created.ID)
	if err != nil {
		view = services.RecordView{Record: created}
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/records/"+created.ID).
		Body(toRecordResponse(view)).
		Write(w)
}

// ownedRecord loads the record and hides it when a user parameter is
// given that does not own it.
func (s *Server) ownedRecord(r *http.Request) (services.RecordView, error) {
	view, err := s.records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return services.RecordView{}, err
	}
	if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" && user != view.Record.UserID {
		return services.RecordView{}, storage.ErrNotFound
	}
	return view, nil
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	view, err := s.ownedRecord(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(toRecordResponse(view)).Write(w)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ownedRecord(r); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	var req recordPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	id := r.PathValue("id")
	if _, err := s.records.Update(r.Context(), id, patch); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()

	view, err := s.records.Get(r.Context(), id)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(toRecordResponse(view)).Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ownedRecord(r); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if err := s.records.Delete(r.Context(), r.PathValue("id")); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

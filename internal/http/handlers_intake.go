package http

import (
	"net/http"
	"strings"

	"spendwise/internal/ai"
	"spendwise/internal/services"
)

type intakeTextRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Currency string `json:"currency"`
}

type intakeResponse struct {
	Transcription string                `json:"transcription,omitempty"`
	Transactions  []transactionResponse `json:"transactions"`
}

func toIntakeResponse(res services.IntakeResult) intakeResponse {
	return intakeResponse{
		Transcription: res.Transcription,
		Transactions:  toTransactionResponses(res.Transactions),
	}
}

func (s *Server) handleIntakeText(w http.ResponseWriter, r *http.Request) {
	var req intakeTextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = r.URL.Query().Get("user")
	}
	if strings.TrimSpace(req.UserID) == "" {
		BadRequestError("user_id is required").Write(w)
		return
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	res, err := s.intake.Text(r.Context(), strings.TrimSpace(req.UserID), req.Text, currency)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()
	NewJSONResponse().Status(http.StatusCreated).Body(toIntakeResponse(res)).Write(w)
}

// handleIntakeReceipt takes the image as the "image" part of a multipart
// form, or as the raw body. user, currency and receipt_url come from the
// form or the query string.
func (s *Server) handleIntakeReceipt(w http.ResponseWriter, r *http.Request) {
	image, err := readMedia(w, r, "image")
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	user, currency, err := mediaParams(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	res, err := s.intake.Receipt(r.Context(), user, image, currency, strings.TrimSpace(r.FormValue("receipt_url")))
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()
	NewJSONResponse().Status(http.StatusCreated).Body(toIntakeResponse(res)).Write(w)
}

func (s *Server) handleIntakeAudio(w http.ResponseWriter, r *http.Request) {
	audio, err := readMedia(w, r, "audio")
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	user, currency, err := mediaParams(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}

	res, err := s.intake.Audio(r.Context(), user, audio, currency)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	s.invalidateSummaries()
	NewJSONResponse().Status(http.StatusCreated).Body(toIntakeResponse(res)).Write(w)
}

func mediaParams(r *http.Request) (string, string, error) {
	user, err := userID(r)
	if err != nil {
		return "", "", err
	}
	currency, err := parseCurrency(r.FormValue("currency"))
	if err != nil {
		return "", "", err
	}
	return user, currency, nil
}

type searchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = r.URL.Query().Get("user")
	}
	if strings.TrimSpace(req.UserID) == "" {
		BadRequestError("user_id is required").Write(w)
		return
	}

	answer, err := s.intake.Search(r.Context(), strings.TrimSpace(req.UserID), req.Query)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"answer":  answer.Answer,
		"matches": toTransactionResponses(answer.Matches),
	}).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	insights, err := s.intake.Insights(r.Context(), user)
	if err != nil {
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if insights == nil {
		insights = []ai.Insight{}
	}
	NewJSONResponse().Body(map[string]any{"insights": insights}).Write(w)
}

package http

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady pings the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.store == nil {
		ServiceUnavailableError("storage not configured").Write(w)
		return
	}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
		ServiceUnavailableError("storage unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"status":    "ready",
		"assistant": s.intake != nil,
	}).Write(w)
}

package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

// Dependencies are the services the API is built on. Intake may be nil,
// in which case the assistant endpoints answer 503.
type Dependencies struct {
	Store   storage.Store
	Records *services.RecordService
	Summary *services.SummaryService
	Ledger  *services.LedgerService
	Intake  *services.IntakeService
	// Today supplies the current date for default periods.
	Today  func() core.Date
	Logger *log.Logger

	RateLimitPerMinute int
	AITimeout          time.Duration
	SummaryCacheTTL    time.Duration
}

type Server struct {
	http.Server

	store   storage.Store
	records *services.RecordService
	summary *services.SummaryService
	ledger  *services.LedgerService
	intake  *services.IntakeService
	today   func() core.Date
	logger  *log.Logger

	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	ips       *security.ClientIPResolver
	aiTimeout time.Duration

	// Summaries per user, period and currency. Any write purges it.
	summaryCache *cache.LRUCache[core.PeriodSummary]

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = log.NewDiscard()
	}
	if deps.Today == nil {
		deps.Today = func() core.Date { return core.DateIn(time.Now(), time.UTC) }
	}
	if deps.AITimeout <= 0 {
		deps.AITimeout = 60 * time.Second
	}
	if deps.SummaryCacheTTL <= 0 {
		deps.SummaryCacheTTL = 5 * time.Minute
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		store:        deps.Store,
		records:      deps.Records,
		summary:      deps.Summary,
		ledger:       deps.Ledger,
		intake:       deps.Intake,
		today:        deps.Today,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		ips:          security.NewClientIPResolver(),
		aiTimeout:    deps.AITimeout,
		summaryCache: cache.NewLRUCache[core.PeriodSummary](500, deps.SummaryCacheTTL),
	}
	s.tracer = trace.NewMiddleware(logger, s.ips.ClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Handler(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      deps.AITimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/breakdown", s.handleBreakdown)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)
	mux.HandleFunc("GET /api/budgets/overview", s.handleBudgetOverview)

	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	mux.HandleFunc("GET /api/records/{id}", s.handleGetRecord)
	mux.HandleFunc("PATCH /api/records/{id}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	limited := s.limiter.Middleware(s.ips.ClientIP, func(w http.ResponseWriter, _ *http.Request) {
		TooManyRequestsError("rate limit exceeded, try again later").Write(w)
	})
	assistant := func(h http.HandlerFunc) http.Handler { return limited(s.withAssistant(h)) }
	mux.Handle("POST /api/intake/text", assistant(s.handleIntakeText))
	mux.Handle("POST /api/intake/receipt", assistant(s.handleIntakeReceipt))
	mux.Handle("POST /api/intake/audio", assistant(s.handleIntakeAudio))
	mux.Handle("POST /api/search", assistant(s.handleSearch))
	mux.Handle("GET /api/insights", assistant(s.handleInsights))
}

// withAssistant answers 503 when no model is configured and bounds the
// request by the assistant timeout.
func (s *Server) withAssistant(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.intake == nil {
			ServiceUnavailableError("the assistant is not configured").Write(w)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.aiTimeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	})
}

// Caches returns the caches that should be swept periodically.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.summaryCache}
}

// TraceMetrics exposes the request counters.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) invalidateSummaries() {
	s.summaryCache.Purge()
}

func summaryKey(userID string, period core.CalendarPeriod, currency string) string {
	return strings.Join([]string{userID, period.String(), currency}, "\x00")
}

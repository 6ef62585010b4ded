package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"budgeting/internal/cache"
	"budgeting/internal/log"
	"budgeting/internal/middleware/ratelimit"
	"budgeting/internal/middleware/security"
	"budgeting/internal/middleware/trace"
)

// Options configures the API server.
type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	// Now is the clock used for default months and dates (default: time.Now).
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger Ledger
	now    func() time.Time
	logger *log.Logger

	tracer      *trace.Middleware
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	idempotency *idempotency
	caches      *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, ledger Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		ledger:      ledger,
		now:         now,
		logger:      logger.WithComponent(log.ComponentHTTP),
		detector:    security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		idempotency: newIdempotency(),
		caches:      cache.NewManager(logger),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.caches.Register(s.idempotency.responses)
	s.caches.StartCleanup(time.Minute)

	api := http.NewServeMux()
	s.routes(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.HandleFunc("GET /metrics", s.handleMetrics)
	root.Handle("/api/", chain(api,
		s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil),
		requireUser,
		s.idempotency.Middleware,
	))

	s.Server = http.Server{
		Addr: addr,
		Handler: chain(root,
			s.tracer.Middleware,
			security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
			s.detector.Middleware,
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/plans", s.handleListPlans)
	mux.HandleFunc("POST /api/plans", s.handleCreatePlan)
	mux.HandleFunc("GET /api/plans/active", s.handleActivePlan)
	mux.HandleFunc("GET /api/plans/{planID}", s.handleGetPlan)
	mux.HandleFunc("PATCH /api/plans/{planID}", s.handleRenamePlan)
	mux.HandleFunc("POST /api/plans/{planID}/activate", s.handleSwitchPlan)
	mux.HandleFunc("PUT /api/plans/{planID}/ratios", s.handleUpdateRatios)
	mux.HandleFunc("POST /api/plans/{planID}/subcategories", s.handleAddSubcategory)
	mux.HandleFunc("DELETE /api/plans/{planID}/subcategories/{main}/{name}", s.handleRemoveSubcategory)

	mux.HandleFunc("GET /api/plans/{planID}/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/plans/{planID}/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/plans/{planID}/categories/{categoryID}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/plans/{planID}/months/{year}/{month}", s.handleMonthSummary)
	mux.HandleFunc("PUT /api/plans/{planID}/months/{year}/{month}/categories/{categoryID}", s.handleAssignAmount)
	mux.HandleFunc("GET /api/plans/{planID}/rollovers", s.handleListRollovers)

	mux.HandleFunc("GET /api/plans/{planID}/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/plans/{planID}/transactions", s.handleAddTransaction)
	mux.HandleFunc("DELETE /api/plans/{planID}/transactions/{transactionID}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/plans/{planID}/suggestions", s.handleApplySuggestion)
	mux.HandleFunc("GET /api/plans/{planID}/payees", s.handleListPayees)

	mux.HandleFunc("GET /api/plans/{planID}/incomes", s.handleListIncome)
	mux.HandleFunc("POST /api/plans/{planID}/incomes", s.handleAddIncome)
	mux.HandleFunc("DELETE /api/plans/{planID}/incomes/{incomeID}", s.handleDeleteIncome)
}

// chain wraps h so that the first middleware runs outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks the ledger database is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.ledger.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("ledger unavailable"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes process counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.rateLimiter.GetMetrics()
	dm := s.detector.GetMetrics()
	cm := s.idempotency.responses.Stats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	for _, m := range []struct {
		name  string
		value int64
	}{
		{"budget_http_requests_total", tm.TotalRequests},
		{"budget_http_requests_in_flight", tm.InFlight},
		{"budget_http_client_errors_total", tm.ClientErrors},
		{"budget_http_server_errors_total", tm.ServerErrors},
		{"budget_http_response_time_avg_microseconds", tm.AverageResponseTime},
		{"budget_ratelimit_rejected_total", rm.Rejected},
		{"budget_ratelimit_clients", rm.ClientCount},
		{"budget_security_blocked_total", dm.BlockedRequests},
		{"budget_idempotency_keys", int64(cm.Size)},
		{"budget_idempotency_replays_total", int64(cm.Hits)},
	} {
		fmt.Fprintf(w, "%s %d\n", m.name, m.value)
	}
}

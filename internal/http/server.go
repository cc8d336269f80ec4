package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"meifacil/internal/cache"
	"meifacil/internal/middleware/ratelimit"
	"meifacil/internal/middleware/security"
	"meifacil/internal/middleware/trace"
	"meifacil/internal/plan"
	"meifacil/internal/services"
	"meifacil/internal/storage"
)

const summaryCacheKey = "dashboard"

// Config carries the request-independent knobs of the API server.
type Config struct {
	Addr             string
	Entitlements     plan.Entitlements
	MeiSettingsID    string
	CompanyProfileID string
}

// Server is the JSON API for the dashboard: the ledger, reports, exports
// and the tax settings.
type Server struct {
	http.Server

	repo         *storage.SQLiteRepository
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	exports      *services.ExportService
	entitlements plan.Entitlements
	settingsID   string
	profileID    string

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// The dashboard summary rescans the whole ledger, so it is cached and
	// invalidated on every write.
	summaryCache *cache.LRUCache[services.DashboardSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
	now          func() time.Time
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, repo *storage.SQLiteRepository, transactions *services.TransactionService, dashboard *services.DashboardService, exports *services.ExportService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		repo:         repo,
		transactions: transactions,
		dashboard:    dashboard,
		exports:      exports,
		entitlements: cfg.Entitlements,
		settingsID:   cfg.MeiSettingsID,
		profileID:    cfg.CompanyProfileID,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		summaryCache: cache.NewLRUCache[services.DashboardSummary](16, 5*time.Minute),
		cacheManager: cache.NewManager(),
		now:          time.Now,
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("POST /api/reports/run", s.handleRunReport)
	mux.HandleFunc("GET /api/report-configs", s.handleListReportConfigs)
	mux.HandleFunc("POST /api/report-configs", s.handleCreateReportConfig)
	mux.HandleFunc("PUT /api/report-configs/{id}", s.handleUpdateReportConfig)
	mux.HandleFunc("DELETE /api/report-configs/{id}", s.handleDeleteReportConfig)

	mux.HandleFunc("GET /api/export/csv", s.handleExportCSV)
	mux.HandleFunc("POST /api/export/sheets", s.handleExportSheets)
	mux.HandleFunc("GET /api/export/jobs/{id}", s.handleExportJobStatus)

	mux.HandleFunc("GET /api/settings/das", s.handleGetDASSettings)
	mux.HandleFunc("PUT /api/settings/das", s.handleSetDASSettings)
	mux.HandleFunc("GET /api/company-profile", s.handleGetCompanyProfile)
	mux.HandleFunc("PUT /api/company-profile", s.handlePutCompanyProfile)

	s.Server = http.Server{
		Addr:    cfg.Addr,
		Handler: s.buildMiddleware(mux),
	}

	return s
}

// buildMiddleware layers tracing, security headers, suspicious-request
// detection and mutating-request rate limiting around the mux.
func (s *Server) buildMiddleware(mux *http.ServeMux) http.Handler {
	var handler http.Handler = mux

	handler = s.limiter.MutatingMiddleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", s.detector.ExtractClientIP(r),
			"method", r.Method,
			"path", r.URL.Path)
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(handler)

	handler = s.withSuspiciousDetection(handler)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler = headers.Middleware(handler)

	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP)
	handler = traceMW.Middleware(handler)

	return handler
}

// withSuspiciousDetection logs requests matching known probe patterns.
// Detection is advisory: requests are never blocked on heuristics alone.
func (s *Server) withSuspiciousDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"client_ip", s.detector.ExtractClientIP(r),
				"method", r.Method,
				"path", r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the server and its background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) invalidateSummary() {
	s.summaryCache.Delete(summaryCacheKey)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

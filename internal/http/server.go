package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"claimlens/internal/cache"
	"claimlens/internal/log"
	"claimlens/internal/middleware/ratelimit"
	"claimlens/internal/middleware/security"
	"claimlens/internal/middleware/trace"
	"claimlens/internal/services"
)

// Options configures a Server. Zero values take defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func(ctx context.Context) error
}

// Server is the JSON API over one query service.
type Server struct {
	http.Server

	svc      *services.QueryService
	defaults SelectionDefaults
	logger   *log.Logger
	ready    func(ctx context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. The selection defaults are read once: the engine never changes.
func NewServer(addr string, svc *services.QueryService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	sel := svc.Selection()
	s := &Server{
		svc: svc,
		defaults: SelectionDefaults{
			Min:    sel.DefaultMin,
			Max:    sel.DefaultMax,
			Payers: sel.Payers,
		},
		logger:   logger,
		ready:    opts.Ready,
		detector: security.NewDetector(logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}, logger),
		caches:   cache.NewManager(logger),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.caches.Register(s.limiter.Cleaner())
	s.caches.StartCleanup(5 * time.Minute)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/selection", s.handleSelection)
	api.HandleFunc("/api/v1/query", s.handleQuery)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded").Write(w)
	})(api)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.Handle("/api/", limited)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not_found", "no such endpoint").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.detector.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      svc.Timeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics collects the counters served on /metrics.
type Metrics struct {
	Requests  trace.Metrics
	RateLimit ratelimit.Metrics
	Security  security.DetectionMetrics
	Queries   services.QueryMetrics
	Uptime    time.Duration
}

// GetMetrics returns the current counters.
func (s *Server) GetMetrics() Metrics {
	return Metrics{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
		Queries:   s.svc.Metrics(),
		Uptime:    time.Since(s.started),
	}
}

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifedash/internal/auth"
	"lifedash/internal/log"
	"lifedash/internal/middleware/ratelimit"
	"lifedash/internal/middleware/security"
	"lifedash/internal/middleware/trace"
	"lifedash/internal/services"
)

// HeaderUserID identifies the caller when dev-mode auth is enabled.
const HeaderUserID = "X-User-ID"

// Services groups the domain services the API exposes.
type Services struct {
	Habits   *services.HabitService
	Calendar *services.CalendarService
	Budget   *services.BudgetService
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Logger *log.Logger
	// Auth verifies bearer tokens. When nil and DevMode is set, the
	// X-User-ID header is trusted instead.
	Auth               *auth.Authenticator
	DevMode            bool
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

type Server struct {
	http.Server
	svc      Services
	ready    Pinger
	auth     *auth.Authenticator
	devMode  bool
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

type ctxKey int

const userIDKey ctxKey = iota

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, ready Pinger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Second
	}

	s := &Server{
		svc:      svc,
		ready:    ready,
		auth:     opts.Auth,
		devMode:  opts.DevMode,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /api/habits", s.api(s.handleListHabits))
	mux.Handle("POST /api/habits", s.api(s.handleCreateHabit))
	mux.Handle("POST /api/habits/{id}/archive", s.api(s.handleArchiveHabit))
	mux.Handle("GET /api/habits/daily", s.api(s.handleDailyView))
	mux.Handle("GET /api/habits/calendar", s.api(s.handleCalendar))
	mux.Handle("PUT /api/habits/{id}/entries/{date}", s.api(s.handleLogEntry))

	mux.Handle("GET /api/budget/summary", s.api(s.handleBudgetSummary))
	mux.Handle("GET /api/recurring", s.api(s.handleListRecurring))
	mux.Handle("POST /api/recurring", s.api(s.handleCreateRecurring))
	mux.Handle("DELETE /api/recurring/{id}", s.api(s.handleDeleteRecurring))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	// trace must sit directly on the mux to see the matched route.
	s.Addr = addr
	s.Handler = headers.Middleware(s.detector.Middleware(s.tracer.Middleware(mux)))
	s.ReadTimeout = opts.ReadTimeout
	s.ReadHeaderTimeout = 5 * time.Second
	s.WriteTimeout = opts.WriteTimeout
	s.IdleTimeout = 60 * time.Second
	return s
}

// api applies rate limiting and authentication to an /api handler.
func (s *Server) api(h http.HandlerFunc) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})
	return limited(s.requireUser(h))
}

func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authenticate(r)
		if err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Authentication failed",
				log.FieldError, err.Error())
			UnauthorizedError("authentication required").Write(w)
			return
		}
		logger := log.FromContext(r.Context()).With(log.FieldUserID, userID)
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, log.LoggerContextKey, logger)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) authenticate(r *http.Request) (string, error) {
	if s.auth != nil {
		token := auth.ExtractToken(r)
		if token == "" {
			return "", auth.ErrMissingToken
		}
		return s.auth.Verify(token)
	}
	if s.devMode {
		if id := sanitizeInput(r.Header.Get(HeaderUserID)); id != "" {
			return id, nil
		}
	}
	return "", auth.ErrMissingToken
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentStorage).WarnContext(r.Context(), "Readiness check failed",
				log.FieldError, err.Error())
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Package http exposes the ledger, settlement, trip state, and weather
// endpoints as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/ledger"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/weather"
)

// StateStore persists named trip state documents. Implemented by
// storage.SQLiteRepository.
type StateStore interface {
	GetState(ctx context.Context, name string) (string, error)
	PutState(ctx context.Context, name, value string) error
}

// WeatherProvider serves current conditions. Implemented by weather.Client.
type WeatherProvider interface {
	Current(ctx context.Context) (weather.Report, error)
}

type Server struct {
	http.Server
	ledger  *ledger.Service
	states  StateStore
	weather WeatherProvider

	rateLimiter  *rateLimiter
	metrics      securityMetrics
	logger       *log.Logger
	structured   *log.StructuredLogger
	shutdownOnce sync.Once
}

// ServerOption configures optional server collaborators.
type ServerOption func(*Server)

// WithStateStore enables the /api/state endpoints.
func WithStateStore(store StateStore) ServerOption {
	return func(s *Server) { s.states = store }
}

// WithWeather enables the /api/weather endpoint.
func WithWeather(provider WeatherProvider) ServerOption {
	return func(s *Server) { s.weather = provider }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledgerSvc *ledger.Service, logger *log.Logger, opts ...ServerOption) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:      ledgerSvc,
		rateLimiter: newRateLimiter(),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}
	s.structured = log.NewStructuredLogger(s.logger)
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/ledger", s.withMiddleware(s.handleLedger))
	mux.HandleFunc("/api/ledger/", s.withMiddleware(s.handleLedgerRow))
	mux.HandleFunc("/api/settlement", s.withMiddleware(s.handleSettlement))
	mux.HandleFunc("/api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("/api/state/", s.withMiddleware(s.handleState))
	mux.HandleFunc("/api/weather", s.withMiddleware(s.handleWeather))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), log.LoggerContextKey,
			s.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, &s.metrics) {
			s.logger.WarnContext(ctx, "suspicious request",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		// Only mutations are rate limited
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, &s.metrics) {
			s.logger.WarnContext(ctx, "rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode,
			time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Serving from a stale snapshot still counts as ready; only a missing
	// ledger service would make the process useless.
	if s.ledger == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

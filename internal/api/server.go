package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aiscribe/scribe/internal/assistant"
	"github.com/aiscribe/scribe/internal/canvas"
	"github.com/aiscribe/scribe/internal/credentials"
	"github.com/aiscribe/scribe/internal/graph"
	"github.com/aiscribe/scribe/internal/metrics"
)

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Deps are the collaborators a Server is wired to. Assistant, Credentials,
// Metrics and SSE may be nil.
type Deps struct {
	Store       *graph.Store
	Canvas      *canvas.Controller
	Assistant   *assistant.Assistant
	Credentials *credentials.Service
	Metrics     *metrics.Collector
	SSE         *SSEBroadcaster

	// AIRate and AIBurst bound the AI endpoints. Zero AIRate disables the
	// limit.
	AIRate  float64
	AIBurst int

	// StaticDir, when set, is served as a single-page app at /.
	StaticDir string

	Now func() time.Time
}

// Server is the HTTP API layer for the whiteboard.
type Server struct {
	store     *graph.Store
	canvas    *canvas.Controller
	assistant *assistant.Assistant
	creds     *credentials.Service
	metrics   *metrics.Collector
	sse       *SSEBroadcaster
	mux       *http.ServeMux
	server    *http.Server
	aiLimiter *rate.Limiter
	staticDir string
	now       func() time.Time
}

// NewServer creates a Server and subscribes its event stream to map
// changes.
func NewServer(d Deps) *Server {
	if d.SSE == nil {
		d.SSE = NewSSEBroadcaster()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &Server{
		store:     d.Store,
		canvas:    d.Canvas,
		assistant: d.Assistant,
		creds:     d.Credentials,
		metrics:   d.Metrics,
		sse:       d.SSE,
		mux:       http.NewServeMux(),
		staticDir: d.StaticDir,
		now:       d.Now,
	}

	// Per-server (not per-IP) limit on AI calls; they are slow and billed.
	if d.AIRate > 0 {
		burst := d.AIBurst
		if burst <= 0 {
			burst = 1
		}
		s.aiLimiter = rate.NewLimiter(rate.Limit(d.AIRate), burst)
	}

	s.store.OnChange(s.sse.MapListener())
	return s
}

// RegisterRoutes wires up every API endpoint.
func (s *Server) RegisterRoutes() {
	// -- Map endpoints ----------------------------------------------------
	s.mux.HandleFunc("GET /api/map", s.handleMap)
	s.mux.HandleFunc("POST /api/map/theme", s.handleStartMap)
	s.mux.HandleFunc("POST /api/map/reset", s.handleResetMap)
	s.mux.HandleFunc("POST /api/map/layout", s.handleAutoLayout)
	s.mux.HandleFunc("POST /api/nodes", s.handleAddNode)
	s.mux.HandleFunc("DELETE /api/nodes/{id}", s.handleDeleteNode)
	s.mux.HandleFunc("PUT /api/nodes/{id}/title", s.handleRenameNode)
	s.mux.HandleFunc("POST /api/nodes/{id}/select", s.handleSelectNode)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)

	// -- Canvas endpoints -------------------------------------------------
	s.mux.HandleFunc("GET /api/canvas/frame", s.handleCanvasFrame)
	s.mux.HandleFunc("POST /api/canvas/events", s.handleCanvasEvent)
	s.mux.HandleFunc("GET /api/canvas/ws", s.handleCanvasWS)

	// -- AI endpoints (rate-limited) --------------------------------------
	s.mux.HandleFunc("POST /api/ai/{action}", s.withRateLimit(s.aiLimiter, s.handleAIRun))
	s.mux.HandleFunc("GET /api/ai/state", s.handleAIState)
	s.mux.HandleFunc("DELETE /api/ai/error", s.handleAIDismiss)

	// -- Credentials ------------------------------------------------------
	s.mux.HandleFunc("GET /api/credentials", s.handleCredentialStatus)
	s.mux.HandleFunc("PUT /api/credentials", s.handleCredentialSet)
	s.mux.HandleFunc("DELETE /api/credentials", s.handleCredentialClear)

	// -- SSE event stream -------------------------------------------------
	s.mux.HandleFunc("GET /api/events", s.handleSSE)

	// -- Health and metrics -----------------------------------------------
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	if s.staticDir != "" {
		s.serveFrontend(s.staticDir)
	}
}

// serveFrontend serves a built web client from dir, falling back to
// index.html for client-side routes.
func (s *Server) serveFrontend(dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		slog.Warn("static dir not found, web client not served", "dir", dir)
		return
	}
	slog.Info("serving web client", "dir", dir)

	distFS := os.DirFS(dir)
	fileServer := http.FileServerFS(distFS)

	s.mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}
		if f, err := fs.Stat(distFS, path); err == nil && !f.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// Handler returns the fully-wrapped http.Handler (middleware chain + mux).
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoveryMiddleware(h)
	h = metricsMiddleware(s.metrics, h)
	h = loggingMiddleware(h)
	h = corsMiddleware(h)
	return h
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "ai-scribe",
		"epoch":   s.store.Epoch(),
		"clients": s.sse.ClientCount(),
		"ai":      s.assistant != nil,
	})
}

// ---------------------------------------------------------------------------
// JSON response helpers
// ---------------------------------------------------------------------------

// writeJSON writes an arbitrary value as JSON with the given HTTP status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a standardised JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeOptional decodes a JSON body into v, treating an empty body as
// valid.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware allows requests from localhost origins (dev servers).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "http://localhost:5173"
		}

		if strings.HasPrefix(origin, "http://localhost:") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures the status code written by downstream handlers.
// It passes flushing, hijacking and deadline control through so the SSE
// stream and the canvas WebSocket work behind the middleware chain.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.statusCode = code
	rr.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher by delegating to the underlying writer.
func (rr *responseRecorder) Flush() {
	if f, ok := rr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker for WebSocket upgrades.
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("api: response writer does not support hijacking")
	}
	rr.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// loggingMiddleware logs method, path, duration and status code.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// metricsMiddleware records request counts and latency by route pattern.
func metricsMiddleware(c *metrics.Collector, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		// The mux stores the matched pattern on the request it was given.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		c.ObserveHTTP(route, rec.statusCode, time.Since(start))
	})
}

// recoveryMiddleware catches panics and returns a 500 response.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				slog.Error("panic recovered",
					"error", err,
					"stack", string(stack),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, `{"error":"internal server error","code":"INTERNAL"}`)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit wraps a handler with a token-bucket rate limiter.
// Returns 429 when the limiter is exhausted. A nil limiter disables the
// check.
func (s *Server) withRateLimit(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "2")
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%g", float64(limiter.Limit())))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			slog.Warn("rate limit exceeded",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			return
		}
		next(w, r)
	}
}

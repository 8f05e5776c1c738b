// Package http exposes the dashboard API: transaction CRUD, derived
// views, the session boundary and a websocket stream that mirrors the
// store's live subscription to the browser.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"flowledger/internal/core"
	"flowledger/internal/log"
	"flowledger/internal/middleware/ratelimit"
	"flowledger/internal/middleware/security"
	"flowledger/internal/middleware/trace"
	"flowledger/internal/session"
	"flowledger/internal/store"
)

// snapshotTimeout bounds how long a request handler waits for the first
// snapshot of an owner's record set.
const snapshotTimeout = 10 * time.Second

// StoreResolver resolves the record store for an owner. The backend
// factory implements it; tests substitute fakes.
type StoreResolver interface {
	ForOwner(ctx context.Context, ownerID string) (store.Store, store.Mode, error)
}

type Server struct {
	http.Server

	resolver StoreResolver
	sessions *session.Manager
	verifier session.Provider // nil when the remote stack is unconfigured

	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader
	logger   *log.Logger

	shutdownOnce sync.Once
}

// Options tunes the server beyond its collaborators.
type Options struct {
	RateLimitPerMinute int
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, resolver StoreResolver, sessions *session.Manager, verifier session.Provider, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		resolver: resolver,
		sessions: sessions,
		verifier: verifier,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: log.New(log.Config{
			Component: log.ComponentHTTP,
			Handler:   slog.Default().Handler(),
		}),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/session", s.handleSessionState)
	mux.HandleFunc("POST /api/session", s.handleSignIn)
	mux.HandleFunc("DELETE /api/session", s.handleSignOut)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/stream", s.handleStream)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(extractClientIP)
	limited := s.limiter.Middleware(extractClientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: headers.Middleware(limited(tracer.Middleware(mux))),
	}
	return s
}

// Shutdown stops the listener and the rate limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// resolveOwner authenticates the request into an owner identity. Without
// a bearer credential, or without a configured verifier, the request
// falls back to the demo identity.
func (s *Server) resolveOwner(r *http.Request) (session.Identity, error) {
	credential := bearerToken(r)
	if credential == "" || s.verifier == nil {
		return session.Demo, nil
	}
	return s.verifier.Verify(r.Context(), credential)
}

// snapshot reads the current record set for an owner: subscribe, take
// the first delivery, cancel.
func (s *Server) snapshot(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	st, _, err := s.resolver.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	sub, err := st.Subscribe(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer sub.Cancel()

	select {
	case snap := <-sub.Events():
		return snap.Records, snap.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func extractClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

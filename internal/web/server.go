// Package web is the variables REST backend.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/dopejs/varman/internal/config"
	"github.com/dopejs/varman/internal/events"
)

// Options configures a Server. Zero values fall back to an in-memory store,
// no event publishing, an in-memory audit log and the default org.
type Options struct {
	Version      string
	Port         int
	DefaultOrgID string
	Logger       *log.Logger
	Store        *VariableStore
	Publisher    events.Publisher
	Audit        *AuditLog
}

// Server serves /api/variables.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	version    string
	port       int
	orgID      string
	store      *VariableStore
	events     events.Publisher
	audit      *AuditLog
	metrics    *metrics
}

// NewServer creates a server bound to 127.0.0.1 on opts.Port.
func NewServer(opts Options) *Server {
	s := &Server{
		logger:  opts.Logger,
		version: opts.Version,
		port:    opts.Port,
		orgID:   opts.DefaultOrgID,
		store:   opts.Store,
		events:  opts.Publisher,
		audit:   opts.Audit,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.port == 0 {
		s.port = config.DefaultListenPort
	}
	if s.orgID == "" {
		s.orgID = config.DefaultOrgID
	}
	if s.store == nil {
		s.store, _ = NewVariableStore("")
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.audit == nil {
		s.audit, _ = NewAuditLog("", 0)
	}
	s.metrics = newMetrics(s.store.Len)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.metrics.instrument("health", s.handleHealth))
	mux.HandleFunc("/api/variables", s.metrics.instrument("variables", s.handleVariables))
	mux.HandleFunc("/api/variables/uid/", s.metrics.instrument("variable", s.handleVariable))
	mux.HandleFunc("/api/audit", s.metrics.instrument("audit", s.handleAudit))
	mux.Handle("/metrics", s.metrics.handler())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           s.securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening. Returns an error if the port is already in use.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use: %w", s.port, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Printf("Variables server listening on %s", ln.Addr())
	return s.httpServer.Serve(ln)
}

// Watch reloads the data file on external changes until ctx is done.
func (s *Server) Watch(ctx context.Context) error {
	return s.store.Watch(ctx, s.logger, func() {
		s.publish(ctx, events.Event{Action: events.ActionReload})
	})
}

// Shutdown gracefully stops the server and closes the publisher.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.events.Close(); cerr != nil {
		s.logger.Printf("close publisher: %v", cerr)
	}
	return err
}

// securityHeaders adds security response headers.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"variables": s.store.Len(),
	})
}

func (s *Server) publish(ctx context.Context, e events.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Printf("publish %s: %v", e.Subject(), err)
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// WaitForReady polls the health endpoint on port until the server is ready or
// ctx is cancelled.
func WaitForReady(ctx context.Context, port int) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/api/health", port)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
}

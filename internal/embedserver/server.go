// Package embedserver serves the embedded Scout application: the page hosts
// embed and the message channel their widgets connect through.
package embedserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/dimagi-rad/scout-widget/internal/authtoken"
	"github.com/dimagi-rad/scout-widget/pkg/embed"
)

// Config holds the embed server configuration.
type Config struct {
	// Listen is the address to bind to (e.g., ":8090").
	Listen string

	// AllowedEmbedders lists host page origins permitted to load and open
	// embed channels. Empty allows any origin; with entries present,
	// requests without a matching Origin header are rejected.
	AllowedEmbedders []string

	// Tokens verifies embed session tokens. Nil disables verification and
	// treats every session as authenticated.
	Tokens *authtoken.Manager

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Server hosts the embedded application endpoint.
type Server struct {
	config     Config
	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     zerolog.Logger

	mu       sync.Mutex
	running  bool
	listener net.Listener
	sessions map[string]*session
}

// New creates a new embed server instance.
func New(cfg Config) *Server {
	s := &Server{
		config:   cfg,
		logger:   cfg.Logger.With().Str("component", "embed-server").Logger(),
		sessions: make(map[string]*session),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.originAllowed,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(embed.PathPrefix, s.handleEmbed)
	mux.HandleFunc(embed.PathPrefix+"/", s.handleEmbed)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving. It returns once the listener is bound; serving
// continues in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("embed server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info().
		Str("addr", listener.Addr().String()).
		Bool("auth", s.config.Tokens != nil).
		Strs("allowed_embedders", s.config.AllowedEmbedders).
		Msg("Embed server started")

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Embed server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server and closes open embed sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("embed server not running")
	}
	s.running = false
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown embed server: %w", err)
	}

	// WebSocket connections are hijacked and outlive Shutdown.
	for _, sess := range sessions {
		sess.close()
	}

	s.logger.Info().Msg("Embed server stopped")
	return nil
}

// Addr returns the bound listener address. Empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SessionCount returns the number of open embed sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// originAllowed enforces the embedder allowlist on upgrade requests.
func (s *Server) originAllowed(r *http.Request) bool {
	if len(s.config.AllowedEmbedders) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.config.AllowedEmbedders {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// handleEmbed serves the embedded application. Upgrade requests open a
// message channel; everything else gets the widget page.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.handleChannel(w, r)
		return
	}
	s.servePage(w, r)
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn().
			Err(err).
			Str("origin", r.Header.Get("Origin")).
			Msg("Embed channel rejected")
		return
	}

	sess, err := newSession(s, conn, r)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to start embed session")
		_ = conn.Close()
		return
	}

	sess.authenticate(r.URL.Query().Get("token"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"active_sessions": s.SessionCount(),
	})
}

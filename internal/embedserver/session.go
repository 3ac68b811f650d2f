package embedserver

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dimagi-rad/scout-widget/pkg/embed"
	"github.com/dimagi-rad/scout-widget/pkg/frame"
	"github.com/dimagi-rad/scout-widget/pkg/wire"
)

// session is one embedded widget instance connected over a message channel.
// It applies host commands to its own state and reports auth transitions
// back through the bridge.
type session struct {
	id     string
	server *Server
	bridge *embed.Bridge
	logger zerolog.Logger

	mu     sync.Mutex
	params embed.Params
	tenant string
	mode   embed.Mode
}

// newSession wraps an upgraded connection, registers the session with the
// server, and starts watching for channel shutdown. The caller still owns
// driving authentication.
func newSession(srv *Server, conn *websocket.Conn, r *http.Request) (*session, error) {
	origin := r.Header.Get("Origin")
	ep := frame.NewServerEndpoint(conn, origin)
	params := embed.ResolveParams(r.URL)

	sess := &session{
		id:     uuid.NewString(),
		server: srv,
		params: params,
		tenant: params.Tenant,
		mode:   params.Mode,
	}
	sess.logger = srv.logger.With().Str("session_id", sess.id).Logger()

	bridge, err := embed.NewBridge(embed.BridgeConfig{
		Endpoint: ep,
		Handler:  sess.handleCommand,
		Logger:   sess.logger,
	})
	if err != nil {
		_ = ep.Close()
		return nil, err
	}
	sess.bridge = bridge

	srv.addSession(sess)
	go func() {
		<-ep.Done()
		srv.dropSession(sess.id)
		sess.logger.Debug().Msg("Embed session closed")
	}()

	sess.logger.Info().
		Str("origin", origin).
		Str("mode", string(params.Mode)).
		Str("tenant", params.Tenant).
		Bool("embedded", params.Embedded).
		Msg("Embed session opened")

	return sess, nil
}

// authenticate resolves the session's initial auth status from the presented
// token. With no token manager configured every session counts as
// authenticated, which makes local development work without issuing tokens.
func (s *session) authenticate(token string) {
	if s.server.config.Tokens == nil {
		s.bridge.SetAuthStatus(embed.AuthStatusAuthenticated)
		return
	}

	claims, err := s.server.config.Tokens.Verify(token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Embed session token rejected")
		s.bridge.SetAuthStatus(embed.AuthStatusUnauthenticated)
		return
	}

	s.mu.Lock()
	if s.tenant == "" {
		s.tenant = claims.Tenant
	}
	mismatch := claims.Tenant != "" && s.tenant != claims.Tenant
	s.mu.Unlock()

	// A token scoped to a different tenant does not authenticate this
	// session.
	if mismatch {
		s.logger.Warn().
			Str("token_tenant", claims.Tenant).
			Msg("Embed session token tenant mismatch")
		s.bridge.SetAuthStatus(embed.AuthStatusUnauthenticated)
		return
	}

	s.bridge.SetAuthStatus(embed.AuthStatusAuthenticated)
}

// handleCommand applies a host command to the session.
func (s *session) handleCommand(env wire.Envelope) {
	switch env.Type {
	case wire.TypeSetTenant:
		tenant, ok := env.PayloadString(wire.FieldTenant)
		if !ok {
			s.logger.Warn().Msg("Tenant switch missing tenant field")
			return
		}
		s.mu.Lock()
		s.tenant = tenant
		s.mu.Unlock()
		s.logger.Info().Str("tenant", tenant).Msg("Tenant switched")

	case wire.TypeSetMode:
		raw, ok := env.PayloadString(wire.FieldMode)
		mode := embed.Mode(raw)
		if !ok || !mode.Valid() {
			s.logger.Warn().Str("mode", raw).Msg("Mode change rejected")
			return
		}
		s.mu.Lock()
		s.mode = mode
		s.mu.Unlock()
		s.logger.Info().Str("mode", raw).Msg("Display mode switched")

	default:
		s.logger.Debug().Str("type", env.Type).Msg("Unhandled command")
	}
}

// Tenant returns the session's current tenant.
func (s *session) Tenant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenant
}

// Mode returns the session's current display mode.
func (s *session) Mode() embed.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *session) close() {
	if err := s.bridge.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close embed session")
	}
}

package embed

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dimagi-rad/scout-widget/pkg/frame"
	"github.com/dimagi-rad/scout-widget/pkg/wire"
)

// AuthStatus describes the embedded session's authentication state as seen
// by the Scout application.
type AuthStatus string

const (
	// AuthStatusUnknown is the initial state, before the session has been
	// resolved.
	AuthStatusUnknown AuthStatus = "unknown"

	// AuthStatusAuthenticated means the session is signed in and the
	// application is interactive.
	AuthStatusAuthenticated AuthStatus = "authenticated"

	// AuthStatusUnauthenticated means the session requires sign-in before
	// the application can become ready.
	AuthStatusUnauthenticated AuthStatus = "unauthenticated"
)

// Handler consumes protocol messages sent by the host page.
type Handler func(env wire.Envelope)

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// Endpoint is the frame boundary toward the host page. Required.
	Endpoint frame.Endpoint

	// Handler receives every protocol message the host sends, including
	// types this package does not know about. Optional.
	Handler Handler

	// Logger for bridge diagnostics. The zero value disables logging.
	Logger zerolog.Logger
}

// Bridge is the embedded application's side of the messaging channel. It
// forwards host commands to the application and reports lifecycle signals
// back, driven by the session's authentication status rather than by render
// timing, so repeated re-renders never duplicate signals.
type Bridge struct {
	endpoint frame.Endpoint
	handler  Handler
	logger   zerolog.Logger

	mu               sync.Mutex
	status           AuthStatus
	readySent        bool
	authRequiredSent bool

	removeListener func()
}

// NewBridge attaches a bridge to the host-facing endpoint and starts
// consuming inbound messages.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.Endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}

	b := &Bridge{
		endpoint: cfg.Endpoint,
		handler:  cfg.Handler,
		logger:   cfg.Logger,
		status:   AuthStatusUnknown,
	}
	b.removeListener = cfg.Endpoint.Listen(b.handleMessage)
	return b, nil
}

// handleMessage filters inbound traffic down to protocol messages. The host
// page's identity was established when the channel was; only message shape
// is checked here, and non-protocol traffic is dropped without logging.
func (b *Bridge) handleMessage(m frame.Message) {
	env, ok := wire.Decode(m.Data)
	if !ok {
		return
	}
	if b.handler != nil {
		b.handler(env)
	}
}

// Status returns the most recently recorded authentication status.
func (b *Bridge) Status() AuthStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// SetAuthStatus records the session's authentication state and notifies the
// host page on the first transition into each resolved state: ready exactly
// once for the first authenticated status, auth-required exactly once for
// the first unauthenticated one. Reporting the same status again sends
// nothing.
func (b *Bridge) SetAuthStatus(status AuthStatus) {
	b.mu.Lock()
	if status == b.status {
		b.mu.Unlock()
		return
	}
	b.status = status

	var send wire.Envelope
	notify := false
	switch status {
	case AuthStatusAuthenticated:
		if !b.readySent {
			b.readySent = true
			send = wire.Ready()
			notify = true
		}
	case AuthStatusUnauthenticated:
		if !b.authRequiredSent {
			b.authRequiredSent = true
			send = wire.AuthRequired()
			notify = true
		}
	}
	b.mu.Unlock()

	if !notify {
		return
	}
	if err := b.post(send); err != nil {
		b.logger.Warn().Err(err).Str("status", string(status)).Msg("failed to notify host of auth status")
	}
}

// Emit sends an application event to the host page. The event name is
// namespaced automatically so it survives the host-side protocol check.
func (b *Bridge) Emit(name string, payload map[string]any) error {
	return b.post(wire.Event(name, payload))
}

func (b *Bridge) post(env wire.Envelope) error {
	data, err := wire.Encode(env)
	if err != nil {
		return err
	}
	// The embedding page's origin is not knowable from inside the frame;
	// scoping of replies is the transport's job.
	return b.endpoint.Post(data, frame.TargetAny)
}

// Close detaches the bridge and closes the underlying endpoint. Closing is
// idempotent.
func (b *Bridge) Close() error {
	b.removeListener()
	return b.endpoint.Close()
}

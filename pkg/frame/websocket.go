package frame

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dimagi-rad/scout-widget/pkg/version"
)

const (
	// DefaultHandshakeTimeout bounds the WebSocket dial.
	DefaultHandshakeTimeout = 15 * time.Second

	// writeWait is the deadline for a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a server-side endpoint waits for a pong before
	// declaring the peer gone.
	pongWait = 60 * time.Second

	// pingPeriod is the server-side keepalive interval. Must be below
	// pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxQueuedPosts caps posts buffered while the dial is still in flight.
	maxQueuedPosts = 64
)

// Dialer opens WebSocket-backed endpoints toward a remote Scout deployment.
// The zero value is usable.
type Dialer struct {
	// Origin is the identity presented in the upgrade request, analogous to
	// the embedding page's origin. Embed servers may enforce an allowlist
	// against it. Empty sends no Origin header.
	Origin string

	// HandshakeTimeout bounds the dial. Defaults to DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration
}

// Open implements Opener. The returned endpoint is usable immediately; the
// dial completes in the background and its outcome is reported through
// onLoad. Posts issued before the dial completes are buffered and flushed in
// order once it does.
func (d *Dialer) Open(ctx context.Context, rawURL string, onLoad func(error)) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid embed URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported embed URL scheme %q", u.Scheme)
	}

	ep := &WSEndpoint{
		remoteOrigin: originOf(u),
		d:            newDispatcher(),
	}
	go ep.dial(ctx, d, u.String(), onLoad)
	return ep, nil
}

// originOf derives the page origin corresponding to a WebSocket URL.
func originOf(u *url.URL) string {
	scheme := "https"
	if u.Scheme == "http" || u.Scheme == "ws" {
		scheme = "http"
	}
	return scheme + "://" + u.Host
}

// WSEndpoint is an Endpoint backed by a WebSocket connection. Client-side
// endpoints are created by Dialer.Open, server-side ones by
// NewServerEndpoint.
type WSEndpoint struct {
	remoteOrigin string
	d            *dispatcher

	mu      sync.Mutex // guards conn and pending, and serializes data writes
	conn    *websocket.Conn
	pending [][]byte
}

// NewServerEndpoint wraps an accepted WebSocket connection as an Endpoint.
// remoteOrigin is the origin the connecting side presented during the
// upgrade. The endpoint owns the connection and runs the keepalive pings
// expected from the accepting side.
func NewServerEndpoint(conn *websocket.Conn, remoteOrigin string) *WSEndpoint {
	e := &WSEndpoint{
		remoteOrigin: remoteOrigin,
		d:            newDispatcher(),
		conn:         conn,
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go e.ping(conn)
	go e.readPump(conn)
	return e
}

func (e *WSEndpoint) dial(ctx context.Context, d *Dialer, wsURL string, onLoad func(error)) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	header := http.Header{"User-Agent": []string{version.UserAgent()}}
	if d.Origin != "" {
		header.Set("Origin", d.Origin)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		e.d.close()
		if onLoad != nil {
			onLoad(fmt.Errorf("failed to open embed channel: %w", err))
		}
		return
	}

	e.mu.Lock()
	if e.d.isClosed() {
		// Closed while the dial was in flight.
		e.mu.Unlock()
		_ = conn.Close()
		if onLoad != nil {
			onLoad(ErrEndpointClosed)
		}
		return
	}
	e.conn = conn
	pending := e.pending
	e.pending = nil
	for _, data := range pending {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	e.mu.Unlock()

	if onLoad != nil {
		onLoad(nil)
	}
	e.readPump(conn)
}

func (e *WSEndpoint) readPump(conn *websocket.Conn) {
	defer e.d.close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		e.d.deliver(Message{Origin: e.remoteOrigin, Data: data})
	}
}

func (e *WSEndpoint) ping(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if e.d.isClosed() {
			return
		}
		e.mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		e.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// Post implements Endpoint.
func (e *WSEndpoint) Post(data []byte, targetOrigin string) error {
	if e.d.isClosed() {
		return ErrEndpointClosed
	}
	if targetOrigin != TargetAny && targetOrigin != e.remoteOrigin {
		return nil
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	e.mu.Lock()
	if e.conn == nil {
		// Dial still in flight. Keep a bounded backlog; anything beyond it
		// is dropped, consistent with sends into a frame that has not
		// finished loading carrying no delivery guarantee.
		if len(e.pending) < maxQueuedPosts {
			e.pending = append(e.pending, buf)
		}
		e.mu.Unlock()
		return nil
	}
	_ = e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := e.conn.WriteMessage(websocket.TextMessage, buf)
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

// Listen implements Endpoint.
func (e *WSEndpoint) Listen(fn Listener) (remove func()) {
	return e.d.listen(fn)
}

// Done returns a channel closed once the endpoint shuts down, whether by an
// explicit Close or by the connection dropping.
func (e *WSEndpoint) Done() <-chan struct{} {
	return e.d.done
}

// Close implements Endpoint.
func (e *WSEndpoint) Close() error {
	e.d.close()

	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return nil
	}

	// Best effort close frame; the read pump exits on the reply or the drop.
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return conn.Close()
}

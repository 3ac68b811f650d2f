// Package frame models the boundary between a host page and an embedded
// Scout application as a pair of message endpoints.
//
// Each endpoint belongs to one side of the boundary and is addressed by an
// origin string (scheme://host[:port]). Posting is fire-and-forget: a send
// scoped to a target origin that does not match the counterpart is dropped,
// and inbound messages arrive tagged with the sender's origin so receivers
// can enforce their own trust checks. Messages that arrive before a listener
// is attached are buffered and delivered in order once one is, so attaching
// late never loses the counterpart's first signals.
package frame

import (
	"context"
	"errors"
)

// TargetAny addresses a post to whatever origin the counterpart has. Inbound
// trust checks never use it; it only relaxes outbound scoping.
const TargetAny = "*"

// ErrEndpointClosed is returned by Post after the endpoint has been closed.
var ErrEndpointClosed = errors.New("endpoint closed")

// Message is one datum delivered across the boundary.
type Message struct {
	// Origin identifies the side that sent the message. Receivers compare it
	// against the origin they trust before acting.
	Origin string

	// Data is the raw message body.
	Data []byte
}

// Listener consumes inbound messages. Listeners on one endpoint are invoked
// sequentially, in message arrival order.
type Listener func(Message)

// Endpoint is one side of a frame boundary.
type Endpoint interface {
	// Post sends data toward the counterpart. The send is dropped without
	// error when targetOrigin is neither TargetAny nor the counterpart's
	// origin. Returns ErrEndpointClosed after Close.
	Post(data []byte, targetOrigin string) error

	// Listen attaches a listener and returns a function that detaches
	// exactly that listener. The remove function is idempotent. Messages
	// that arrived before the first listener are replayed to it in order.
	Listen(fn Listener) (remove func())

	// Close tears the endpoint down and detaches all listeners. Closing is
	// idempotent. Delivery stops promptly; a message already mid-dispatch
	// may still reach listeners, so receivers guard their own terminal
	// states.
	Close() error
}

// Opener establishes the embedded side of a frame boundary for a widget
// instance.
//
// Open returns the host-side endpoint immediately; the connection itself may
// complete asynchronously. When onLoad is non-nil it is invoked exactly once
// with the connection outcome, mirroring a frame's load/error events.
type Opener interface {
	Open(ctx context.Context, url string, onLoad func(error)) (Endpoint, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, url string, onLoad func(error)) (Endpoint, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string, onLoad func(error)) (Endpoint, error) {
	return f(ctx, url, onLoad)
}

// PipeOpener returns an Opener that builds an in-process endpoint pair per
// open call and hands the embedded side to accept along with the computed
// embed URL. It serves same-process embedding and tests, where no network
// separates the host from the Scout application.
func PipeOpener(hostOrigin, embedOrigin string, accept func(url string, remote Endpoint)) Opener {
	return OpenerFunc(func(ctx context.Context, url string, onLoad func(error)) (Endpoint, error) {
		host, embedded := Pipe(hostOrigin, embedOrigin)
		accept(url, embedded)
		if onLoad != nil {
			onLoad(nil)
		}
		return host, nil
	})
}

package frame

// Pipe returns a connected pair of in-process endpoints. Messages posted on
// one side are delivered, in order, to listeners attached on the other. The
// first endpoint is addressed by originA, the second by originB, mirroring
// two browsing contexts on either side of a frame boundary.
func Pipe(originA, originB string) (*PipeEndpoint, *PipeEndpoint) {
	a := &PipeEndpoint{origin: originA, d: newDispatcher()}
	b := &PipeEndpoint{origin: originB, d: newDispatcher()}
	a.peer = b
	b.peer = a
	return a, b
}

// PipeEndpoint is an in-process Endpoint created by Pipe.
type PipeEndpoint struct {
	origin string
	d      *dispatcher
	peer   *PipeEndpoint
}

// Origin returns the origin this endpoint is addressed by.
func (p *PipeEndpoint) Origin() string {
	return p.origin
}

// Post implements Endpoint. The send is dropped when targetOrigin does not
// match the counterpart and when the counterpart is already closed; both
// mirror posting into a frame that is absent or not the addressee.
func (p *PipeEndpoint) Post(data []byte, targetOrigin string) error {
	if p.d.isClosed() {
		return ErrEndpointClosed
	}
	if targetOrigin != TargetAny && targetOrigin != p.peer.origin {
		return nil
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	p.peer.d.deliver(Message{Origin: p.origin, Data: buf})
	return nil
}

// Listen implements Endpoint.
func (p *PipeEndpoint) Listen(fn Listener) (remove func()) {
	return p.d.listen(fn)
}

// Close implements Endpoint. Only this side stops; the counterpart stays
// usable and its subsequent posts are dropped.
func (p *PipeEndpoint) Close() error {
	p.d.close()
	return nil
}

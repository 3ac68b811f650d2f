package widget

import "sync"

// The package-level API mirrors the page-global object that script-tag
// hosts integrate against. Until Install provides a real SDK, a bootstrap
// stub queues every command; Install swaps itself in and replays the queue
// in order, so hosts may issue commands without caring whether the SDK has
// finished loading.

type api interface {
	Init(Options) *Instance
	Destroy()
}

var (
	globalMu sync.Mutex
	global   api = newStub()
)

// Init creates a widget instance through the installed SDK. Before Install,
// the call is queued for replay and the returned handle is an inert
// placeholder; the real instance is created during replay.
func Init(opts Options) *Instance {
	return current().Init(opts)
}

// Destroy tears down all widget instances through the installed SDK. Before
// Install, the call is queued for replay like Init.
func Destroy() {
	current().Destroy()
}

func current() api {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// Install makes sdk the implementation behind the package-level API and
// replays commands queued before installation, in issue order. A panic in
// one replayed command is contained so the remaining queue still runs.
func Install(sdk *SDK) {
	globalMu.Lock()
	prev := global
	global = sdk
	globalMu.Unlock()

	if st, ok := prev.(*stub); ok {
		for _, call := range st.drain() {
			replay(sdk, call)
		}
	}
}

// Installed reports whether a real SDK is behind the package-level API.
func Installed() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	_, isStub := global.(*stub)
	return !isStub
}

// Reset restores the pre-install bootstrap stub. Tests and full host
// teardowns use it.
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = newStub()
}

func replay(sdk *SDK, call queuedCall) {
	defer func() {
		if r := recover(); r != nil {
			sdk.logger.Error().
				Interface("panic", r).
				Str("method", call.method).
				Msg("queued widget call panicked during replay")
		}
	}()

	switch call.method {
	case methodInit:
		sdk.Init(call.opts)
	case methodDestroy:
		sdk.Destroy()
	}
}

const (
	methodInit    = "init"
	methodDestroy = "destroy"
)

type queuedCall struct {
	method string
	opts   Options
}

// stub queues commands issued before the SDK is installed.
type stub struct {
	mu    sync.Mutex
	calls []queuedCall
}

func newStub() *stub { return &stub{} }

func (s *stub) Init(opts Options) *Instance {
	s.mu.Lock()
	s.calls = append(s.calls, queuedCall{method: methodInit, opts: opts})
	s.mu.Unlock()
	return &Instance{id: nextInstanceID(), state: StateDestroyed}
}

func (s *stub) Destroy() {
	s.mu.Lock()
	s.calls = append(s.calls, queuedCall{method: methodDestroy})
	s.mu.Unlock()
}

func (s *stub) drain() []queuedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := s.calls
	s.calls = nil
	return calls
}

package widget

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dimagi-rad/scout-widget/pkg/embed"
	"github.com/dimagi-rad/scout-widget/pkg/frame"
	"github.com/dimagi-rad/scout-widget/pkg/wire"
)

// State describes where an instance is in its lifecycle.
type State string

const (
	// StateConstructing covers the synchronous setup inside Init.
	StateConstructing State = "constructing"

	// StateEmbedded means the frame exists but the embedded application has
	// not reported readiness yet.
	StateEmbedded State = "embedded"

	// StateReady means the embedded application is interactive.
	StateReady State = "ready"

	// StateError means embedding failed. The instance stays registered and
	// still requires Destroy.
	StateError State = "error"

	// StateDestroyed is terminal.
	StateDestroyed State = "destroyed"
)

// ErrNotEmbedded is returned by instance commands when no embedded frame
// backs the instance, either because embedding failed or because the
// instance was destroyed.
var ErrNotEmbedded = errors.New("widget: instance has no embedded frame")

// Instance is one embedded widget placement. Instances are created by Init
// and torn down by Destroy; all methods are safe for concurrent use.
type Instance struct {
	id     int64
	sdk    *SDK
	opts   Options
	logger zerolog.Logger

	mu             sync.Mutex
	state          State
	ready          bool
	url            string
	container      Container
	endpoint       frame.Endpoint
	removeListener func()
}

// ID returns the process-lifetime unique instance identifier.
func (inst *Instance) ID() int64 {
	return inst.id
}

// State returns the current lifecycle state.
func (inst *Instance) State() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

// Ready reports whether the embedded application has signaled readiness.
// The flag is monotonic for the life of the instance.
func (inst *Instance) Ready() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.ready
}

// URL returns the embed URL the instance was created with, empty when
// embedding never started.
func (inst *Instance) URL() string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.url
}

// SetTenant asks the embedded application to switch tenants. Commands are
// fire-and-forget with no readiness precondition; the embedded side applies
// them when it can.
func (inst *Instance) SetTenant(tenant string) error {
	return inst.send(wire.SetTenant(tenant))
}

// SetMode asks the embedded application to change its display mode.
func (inst *Instance) SetMode(mode embed.Mode) error {
	return inst.send(wire.SetMode(string(mode)))
}

func (inst *Instance) send(env wire.Envelope) error {
	inst.mu.Lock()
	ep := inst.endpoint
	inst.mu.Unlock()
	if ep == nil {
		return ErrNotEmbedded
	}

	data, err := wire.Encode(env)
	if err != nil {
		return err
	}
	// Outbound sends are scoped to the embed origin, never the wildcard.
	return ep.Post(data, inst.sdk.origin)
}

// handleMessage is the instance's channel listener. It is bound to exactly
// this instance so teardown can detach it precisely.
func (inst *Instance) handleMessage(m frame.Message) {
	// Trust boundary: only the configured embed origin may drive the
	// instance. Everything else is dropped without logging, so probe
	// traffic learns nothing from the host page.
	if m.Origin != inst.sdk.origin {
		return
	}
	env, ok := wire.Decode(m.Data)
	if !ok {
		return
	}
	inst.dispatch(env)
}

func (inst *Instance) dispatch(env wire.Envelope) {
	inst.mu.Lock()
	if inst.state == StateDestroyed {
		inst.mu.Unlock()
		return
	}

	fireReady := false
	if env.Type == wire.TypeReady && !inst.ready {
		inst.ready = true
		if inst.state == StateEmbedded {
			inst.state = StateReady
		}
		fireReady = true
	}
	onReady := inst.opts.OnReady
	onEvent := inst.opts.OnEvent
	inst.mu.Unlock()

	// Callbacks run outside the lock so they may issue instance commands.
	if fireReady {
		inst.logger.Debug().Msg("widget ready")
		if onReady != nil {
			onReady(inst)
		}
	}
	if onEvent != nil {
		onEvent(inst, env.Type, env.Payload)
	}
}

// onLoad receives the frame's load outcome. Load failures park the instance
// in the error state; it stays registered and callers still own its
// teardown.
func (inst *Instance) onLoad(err error) {
	if err == nil {
		return
	}

	inst.mu.Lock()
	if inst.state == StateDestroyed {
		inst.mu.Unlock()
		return
	}
	inst.state = StateError
	container := inst.container
	inst.mu.Unlock()

	inst.logger.Error().Err(err).Msg("embed frame failed to load")
	if container != nil {
		container.ShowError("Scout is unavailable right now.")
	}
}

// Destroy tears the instance down from any state: the listener detaches
// first so nothing delivered afterwards can affect the instance, then the
// frame closes, the container clears, and the instance leaves the registry.
// Destroy is idempotent.
func (inst *Instance) Destroy() {
	inst.mu.Lock()
	if inst.state == StateDestroyed {
		inst.mu.Unlock()
		return
	}
	inst.state = StateDestroyed
	remove := inst.removeListener
	ep := inst.endpoint
	container := inst.container
	inst.removeListener = nil
	inst.endpoint = nil
	inst.mu.Unlock()

	if remove != nil {
		remove()
	}
	if ep != nil {
		if err := ep.Close(); err != nil {
			inst.logger.Warn().Err(err).Msg("failed to close embed frame")
		}
	}
	if container != nil {
		container.Clear()
	}
	if inst.sdk != nil {
		inst.sdk.reg.remove(inst.id)
	}
	inst.logger.Debug().Msg("widget destroyed")
}

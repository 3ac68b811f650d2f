package widget

import (
	"sort"
	"sync"
	"sync/atomic"
)

// instanceIDs produces process-lifetime unique, monotonically increasing
// instance identifiers. IDs of destroyed instances are never reused, which
// keeps logs and host-side bookkeeping unambiguous.
var instanceIDs atomic.Int64

func nextInstanceID() int64 {
	return instanceIDs.Add(1)
}

// registry tracks the live instances of one SDK.
type registry struct {
	mu        sync.RWMutex
	instances map[int64]*Instance
}

func newRegistry() *registry {
	return &registry{instances: make(map[int64]*Instance)}
}

func (r *registry) add(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.id] = inst
}

func (r *registry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, id)
}

func (r *registry) get(id int64) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// list returns a snapshot ordered by creation, so bulk operations run in a
// deterministic order.
func (r *registry) list() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].id < instances[j].id })
	return instances
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

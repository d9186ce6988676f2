package manager

import (
	"sync"

	"github.com/motive-automation/motive-core/internal/controller"
)

// record is the manager's bookkeeping for one loaded controller. The
// ctrl pointer is immutable after load; state, updateRate and divisor
// are guarded by the owning registry's mutex.
type record struct {
	name       string
	typeName   string
	state      controller.State
	updateRate int // reported Hz; loop rate until configure reads it back
	divisor    int // loop ticks between updates, >= 1
	ctrl       controller.Controller
}

// Record is a point-in-time snapshot of a loaded controller, safe to
// hand to transports and sinks.
type Record struct {
	Name       string           `json:"name"`
	Type       string           `json:"type"`
	State      controller.State `json:"state"`
	UpdateRate int              `json:"update_rate"`
}

// registry holds the loaded controllers in insertion order. Insertion
// order is the order updates run in, so listings and the loop agree on
// what "first" means.
type registry struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string
}

func newRegistry() *registry {
	return &registry{
		records: make(map[string]*record),
	}
}

func (r *registry) add(rec *record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.name]; exists {
		return ErrAlreadyLoaded
	}
	r.records[rec.name] = rec
	r.order = append(r.order, rec.name)
	return nil
}

func (r *registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// get returns the live record. Callers must not touch mutable fields
// without holding r.mu; use state/setState for those.
func (r *registry) get(name string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	return rec, ok
}

func (r *registry) state(name string) (controller.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return 0, false
	}
	return rec.state, true
}

func (r *registry) setState(name string, st controller.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[name]; ok {
		rec.state = st
	}
}

func (r *registry) setRate(name string, rate, divisor int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[name]; ok {
		rec.updateRate = rate
		rec.divisor = divisor
	}
}

// list snapshots every record in insertion order.
func (r *registry) list() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, name := range r.order {
		rec := r.records[name]
		out = append(out, Record{
			Name:       rec.name,
			Type:       rec.typeName,
			State:      rec.state,
			UpdateRate: rec.updateRate,
		})
	}
	return out
}

// active snapshots the controllers currently in the active state, in
// insertion order, for one loop tick. The loop calls Update outside
// the registry lock using this snapshot.
func (r *registry) active() []activeEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []activeEntry
	for _, name := range r.order {
		rec := r.records[name]
		if rec.state == controller.StateActive {
			out = append(out, activeEntry{
				name:    rec.name,
				ctrl:    rec.ctrl,
				divisor: rec.divisor,
			})
		}
	}
	return out
}

type activeEntry struct {
	name    string
	ctrl    controller.Controller
	divisor int
}

package dispatch

import (
	"sync"

	"github.com/cortexa-labs/ragserve/types"
)

// Hooks receives in-flight transitions, typically bound to a metrics gauge.
type Hooks struct {
	OnAcquire func(replicaID string)
	OnRelease func(replicaID string)
}

// Dispatcher tracks per-replica in-flight counts and selects the least
// loaded candidate. Counts persist for the life of the process; replicas
// never seen before start at zero. There is no per-replica ceiling and no
// queueing, the heuristic is best effort.
type Dispatcher struct {
	mu       sync.Mutex
	inFlight map[string]int
	hooks    Hooks
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{inFlight: make(map[string]int)}
}

// SetHooks installs transition callbacks. Not safe to call after Acquire.
func (d *Dispatcher) SetHooks(h Hooks) {
	d.hooks = h
}

// Acquire picks the candidate with the minimum in-flight count, increments
// it, and returns its id. Ties go to the candidate presented first. The
// selection and the increment are one critical section.
func (d *Dispatcher) Acquire(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", types.NewError(types.ErrNoReplicasAvailable, "no candidate replicas")
	}

	d.mu.Lock()
	chosen := candidates[0]
	best := d.inFlight[chosen]
	for _, id := range candidates[1:] {
		if n := d.inFlight[id]; n < best {
			chosen, best = id, n
		}
	}
	d.inFlight[chosen]++
	d.mu.Unlock()

	if d.hooks.OnAcquire != nil {
		d.hooks.OnAcquire(chosen)
	}
	return chosen, nil
}

// Release decrements the replica's in-flight count, floored at zero.
func (d *Dispatcher) Release(replicaID string) {
	d.mu.Lock()
	if d.inFlight[replicaID] > 0 {
		d.inFlight[replicaID]--
	}
	d.mu.Unlock()

	if d.hooks.OnRelease != nil {
		d.hooks.OnRelease(replicaID)
	}
}

// Snapshot returns a copy of the current in-flight counts.
func (d *Dispatcher) Snapshot() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.inFlight))
	for id, n := range d.inFlight {
		out[id] = n
	}
	return out
}

package agent

import (
	"context"
	"sync"

	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
)

// Driver probes one kind of pod backend reachable from this rack.
type Driver interface {
	// Type is the pod type this driver answers for, e.g. "virsh".
	Type() string

	// DiscoverPod probes the backend and reports its resources.
	DiscoverPod(ctx context.Context, params types.PodParameters) (*types.DiscoveredPod, error)
}

// DriverRegistry dispatches discovery requests to the driver matching
// the requested pod type.
type DriverRegistry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewDriverRegistry creates an empty driver registry
func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{drivers: make(map[string]Driver)}
}

// Register adds a driver. A second driver of the same type replaces the first.
func (r *DriverRegistry) Register(d Driver) {
	r.mu.Lock()
	r.drivers[d.Type()] = d
	r.mu.Unlock()
}

// Types returns the registered pod types
func (r *DriverRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.drivers))
	for t := range r.drivers {
		out = append(out, t)
	}
	return out
}

// Discover routes one discovery request to the matching driver.
func (r *DriverRegistry) Discover(ctx context.Context, podType string, params types.PodParameters) (*types.DiscoveredPod, error) {
	r.mu.RLock()
	d, ok := r.drivers[podType]
	r.mu.RUnlock()

	if !ok {
		return nil, &rpc.UnknownPodTypeError{Type: podType}
	}

	return d.DiscoverPod(ctx, params)
}

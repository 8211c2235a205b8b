package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stonegrid/quarry/pkg/discovery"
	"github.com/stonegrid/quarry/pkg/events"
	"github.com/stonegrid/quarry/pkg/log"
	"github.com/stonegrid/quarry/pkg/metrics"
	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	// DefaultHeartbeatTTL is how long a rack may go silent before the
	// sweeper marks it down.
	DefaultHeartbeatTTL = 30 * time.Second

	// DefaultSweepInterval is how often the sweeper checks for silent racks.
	DefaultSweepInterval = 10 * time.Second
)

// Registry tracks the live rack controller fleet: one gRPC connection
// per rack plus its liveness state. The replicated store is the durable
// record; the registry is the working set discovery draws from.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	broker        *events.Broker
	heartbeatTTL  time.Duration
	sweepInterval time.Duration
	logger        zerolog.Logger
	stopCh        chan struct{}
	stopOnce      sync.Once
}

type entry struct {
	info     *types.RackController
	conn     *grpc.ClientConn
	client   *rpc.RackAgentClient
	lastSeen time.Time
}

// Option adjusts registry behaviour.
type Option func(*Registry)

// WithHeartbeatTTL overrides how long a silent rack stays ready.
func WithHeartbeatTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.heartbeatTTL = ttl }
}

// WithSweepInterval overrides how often liveness is re-checked.
func WithSweepInterval(interval time.Duration) Option {
	return func(r *Registry) { r.sweepInterval = interval }
}

// NewRegistry creates a registry publishing liveness transitions to broker.
func NewRegistry(broker *events.Broker, opts ...Option) *Registry {
	r := &Registry{
		entries:       make(map[string]*entry),
		broker:        broker,
		heartbeatTTL:  DefaultHeartbeatTTL,
		sweepInterval: DefaultSweepInterval,
		logger:        log.WithComponent("registry"),
		stopCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start launches the background liveness sweeper.
func (r *Registry) Start() {
	go r.sweep()
}

// Stop halts the sweeper and closes every rack connection.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	defer r.mu.Unlock()

	for ident, e := range r.entries {
		if e.conn != nil {
			_ = e.conn.Close()
		}
		delete(r.entries, ident)
	}
}

// Register adds or refreshes a rack controller connection. Re-registering
// an ident replaces the previous connection, so an agent that restarted
// with a new address takes over cleanly.
func (r *Registry) Register(rack *types.RackController) error {
	conn, err := grpc.NewClient(
		rack.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	)
	if err != nil {
		return fmt.Errorf("failed to create rack connection: %w", err)
	}

	r.mu.Lock()
	if old, ok := r.entries[rack.Ident]; ok && old.conn != nil {
		_ = old.conn.Close()
	}
	rack.Status = types.RackStatusReady
	rack.LastHeartbeat = time.Now()
	r.entries[rack.Ident] = &entry{
		info:     rack,
		conn:     conn,
		client:   rpc.NewRackAgentClient(conn),
		lastSeen: time.Now(),
	}
	r.mu.Unlock()

	r.logger.Info().Str("rack_id", rack.Ident).Str("address", rack.Address).Msg("rack registered")
	r.publish(events.EventRackRegistered, rack.Ident, "rack controller registered")
	r.updateGauges()

	return nil
}

// Heartbeat records a sign of life from a rack. A rack that was down
// comes back ready.
func (r *Registry) Heartbeat(ident string) error {
	r.mu.Lock()
	e, ok := r.entries[ident]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown rack %q", ident)
	}

	e.lastSeen = time.Now()
	e.info.LastHeartbeat = e.lastSeen
	recovered := e.info.Status == types.RackStatusDown
	e.info.Status = types.RackStatusReady
	r.mu.Unlock()

	if recovered {
		r.logger.Info().Str("rack_id", ident).Msg("rack recovered")
		r.publish(events.EventRackRecovered, ident, "rack controller recovered")
		r.updateGauges()
	}

	return nil
}

// Remove drops a rack from the fleet and closes its connection.
func (r *Registry) Remove(ident string) error {
	r.mu.Lock()
	e, ok := r.entries[ident]
	if ok {
		if e.conn != nil {
			_ = e.conn.Close()
		}
		delete(r.entries, ident)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown rack %q", ident)
	}

	r.logger.Info().Str("rack_id", ident).Msg("rack removed")
	r.publish(events.EventRackRemoved, ident, "rack controller removed")
	r.updateGauges()

	return nil
}

// Get returns the tracked record for one rack.
func (r *Registry) Get(ident string) (*types.RackController, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[ident]
	if !ok {
		return nil, false
	}
	return e.info, true
}

// List returns the tracked records for the whole fleet.
func (r *Registry) List() []*types.RackController {
	r.mu.RLock()
	defer r.mu.RUnlock()

	racks := make([]*types.RackController, 0, len(r.entries))
	for _, e := range r.entries {
		racks = append(racks, e.info)
	}
	return racks
}

// Clients returns a discovery client for every ready rack. Racks marked
// down are left out of the round rather than burning its deadline.
func (r *Registry) Clients() []discovery.RackClient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]discovery.RackClient, 0, len(r.entries))
	for ident, e := range r.entries {
		if e.info.Status != types.RackStatusReady {
			continue
		}
		clients = append(clients, &rackClient{ident: ident, client: e.client})
	}
	return clients
}

func (r *Registry) sweep() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.markStale()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) markStale() {
	cutoff := time.Now().Add(-r.heartbeatTTL)

	var wentDown []string
	r.mu.Lock()
	for ident, e := range r.entries {
		if e.info.Status == types.RackStatusReady && e.lastSeen.Before(cutoff) {
			e.info.Status = types.RackStatusDown
			wentDown = append(wentDown, ident)
		}
	}
	r.mu.Unlock()

	for _, ident := range wentDown {
		r.logger.Warn().Str("rack_id", ident).Msg("rack missed heartbeats, marking down")
		r.publish(events.EventRackDown, ident, "rack controller missed heartbeats")
	}
	if len(wentDown) > 0 {
		r.updateGauges()
	}
}

func (r *Registry) publish(eventType events.EventType, rackID, message string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		Type:    eventType,
		RackID:  rackID,
		Message: message,
	})
}

func (r *Registry) updateGauges() {
	r.mu.RLock()
	counts := make(map[types.RackStatus]int)
	for _, e := range r.entries {
		counts[e.info.Status]++
	}
	r.mu.RUnlock()

	for _, status := range []types.RackStatus{types.RackStatusReady, types.RackStatusDown} {
		metrics.RacksTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// rackClient adapts one rack's gRPC client to the discovery fan-out.
type rackClient struct {
	ident  string
	client *rpc.RackAgentClient
}

func (c *rackClient) Ident() string { return c.ident }

func (c *rackClient) DiscoverPod(ctx context.Context, podType string, params types.PodParameters) (*types.DiscoveredPod, error) {
	resp, err := c.client.DiscoverPod(ctx, &rpc.RackDiscoverRequest{
		Type:       podType,
		Parameters: params,
	})
	if err != nil {
		return nil, rpc.FromStatus(err, podType)
	}
	return resp.Pod, nil
}

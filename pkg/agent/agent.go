package agent

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stonegrid/quarry/pkg/log"
	"github.com/stonegrid/quarry/pkg/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// DefaultHeartbeatInterval is how often the agent phones home.
const DefaultHeartbeatInterval = 10 * time.Second

// Config holds rack agent configuration
type Config struct {
	RegionAddr        string
	BindAddr          string
	AdvertiseAddr     string // address the region should dial back; BindAddr if empty
	Ident             string // empty on first run, assigned by the region
	Hostname          string
	Version           string
	Labels            map[string]string
	Token             string
	HeartbeatInterval time.Duration
}

// Agent is a rack controller: it serves the RackAgent service for the
// region to call and keeps itself registered with heartbeats.
type Agent struct {
	cfg     Config
	drivers *DriverRegistry
	logger  zerolog.Logger

	grpcServer *grpc.Server
	regionConn *grpc.ClientConn
	region     *rpc.RegionClient

	mu    sync.RWMutex
	ident string

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewAgent creates a rack agent serving the given drivers
func NewAgent(cfg Config, drivers *DriverRegistry) (*Agent, error) {
	if cfg.RegionAddr == "" {
		return nil, fmt.Errorf("region address is required")
	}
	if cfg.BindAddr == "" {
		return nil, fmt.Errorf("bind address is required")
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Hostname == "" {
		hostname, err := os.Hostname()
		if err == nil {
			cfg.Hostname = hostname
		}
	}

	conn, err := grpc.NewClient(
		cfg.RegionAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create region connection: %w", err)
	}

	return &Agent{
		cfg:        cfg,
		drivers:    drivers,
		logger:     log.WithComponent("agent"),
		grpcServer: grpc.NewServer(),
		regionConn: conn,
		region:     rpc.NewRegionClient(conn),
		ident:      cfg.Ident,
		stopCh:     make(chan struct{}),
	}, nil
}

// Ident returns the agent's rack ident, empty until first registration
func (a *Agent) Ident() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ident
}

// Run registers with the region, serves the RackAgent service and
// heartbeats until Stop is called. It blocks for the server's lifetime.
func (a *Agent) Run() error {
	lis, err := net.Listen("tcp", a.cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	rpc.RegisterRackAgentServer(a.grpcServer, a)

	if err := a.register(); err != nil {
		return err
	}

	go a.heartbeatLoop()

	a.logger.Info().Str("addr", a.cfg.BindAddr).Msg("rack agent listening")
	return a.grpcServer.Serve(lis)
}

// Stop gracefully shuts the agent down
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.grpcServer.GracefulStop()
	_ = a.regionConn.Close()
}

// DiscoverPod handles the region's discovery call by routing it to the
// matching driver. Typed failures map onto status codes the region's
// client reverses.
func (a *Agent) DiscoverPod(ctx context.Context, req *rpc.RackDiscoverRequest) (*rpc.RackDiscoverResponse, error) {
	a.logger.Debug().Str("pod_type", req.Type).Msg("discovery request")

	pod, err := a.drivers.Discover(ctx, req.Type, req.Parameters)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}

	return &rpc.RackDiscoverResponse{Pod: pod}, nil
}

func (a *Agent) register() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	advertise := a.cfg.AdvertiseAddr
	if advertise == "" {
		advertise = a.cfg.BindAddr
	}

	resp, err := a.region.RegisterRack(ctx, &rpc.RegisterRackRequest{
		Ident:    a.Ident(),
		Address:  advertise,
		Hostname: a.cfg.Hostname,
		Version:  a.cfg.Version,
		Labels:   a.cfg.Labels,
		Token:    a.cfg.Token,
	})
	if err != nil {
		return fmt.Errorf("failed to register with region: %w", err)
	}

	a.mu.Lock()
	a.ident = resp.Rack.Ident
	a.mu.Unlock()

	a.logger.Info().Str("rack_id", resp.Rack.Ident).Str("region", a.cfg.RegionAddr).
		Msg("registered with region")

	return nil
}

func (a *Agent) heartbeatLoop() {
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.heartbeat()
		case <-a.stopCh:
			return
		}
	}
}

func (a *Agent) heartbeat() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.region.Heartbeat(ctx, &rpc.HeartbeatRequest{Ident: a.Ident()})
	if err == nil {
		return
	}

	// A region that restarted has forgotten us; register again.
	if status.Code(err) == codes.NotFound {
		a.logger.Warn().Msg("region does not know us, re-registering")
		if rerr := a.register(); rerr != nil {
			a.logger.Error().Err(rerr).Msg("re-registration failed")
		}
		return
	}

	a.logger.Warn().Err(err).Msg("heartbeat failed")
}

// compile-time check that the agent serves the RackAgent contract
var _ rpc.RackAgentServer = (*Agent)(nil)

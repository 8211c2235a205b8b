package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stonegrid/quarry/pkg/discovery"
	"github.com/stonegrid/quarry/pkg/log"
	"github.com/stonegrid/quarry/pkg/manager"
	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// RegionState is the slice of the manager the API needs: the replicated
// rack records plus cluster membership and join tokens.
type RegionState interface {
	CreateRack(*types.RackController) error
	UpdateRack(*types.RackController) error
	DeleteRack(ident string) error
	GetRack(ident string) (*types.RackController, error)
	ListRacks() ([]*types.RackController, error)
	GenerateJoinToken(role string) (*manager.JoinToken, error)
	ValidateJoinToken(token string) (string, error)
	AddVoter(nodeID, address string) error
	IsLeader() bool
	LeaderAddr() string
}

// Fleet is the live-connection side of the rack registry.
type Fleet interface {
	Register(*types.RackController) error
	Heartbeat(ident string) error
	Remove(ident string) error
}

// Discoverer runs one pod discovery round across the fleet.
type Discoverer interface {
	DiscoverPod(ctx context.Context, podType string, params types.PodParameters, timeout time.Duration) (*discovery.Result, error)
}

// Server implements the Region gRPC service
type Server struct {
	state      RegionState
	fleet      Fleet
	discoverer Discoverer
	grpc       *grpc.Server
	logger     zerolog.Logger
}

// NewServer creates a new API server
func NewServer(state RegionState, fleet Fleet, discoverer Discoverer) *Server {
	return &Server{
		state:      state,
		fleet:      fleet,
		discoverer: discoverer,
		grpc:       grpc.NewServer(grpc.UnaryInterceptor(MetricsInterceptor())),
		logger:     log.WithComponent("api"),
	}
}

// Start starts the gRPC server and blocks serving it
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	rpc.RegisterRegionServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, health.NewServer())

	s.logger.Info().Str("addr", addr).Msg("region API listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

// RegisterRack admits a rack controller into the fleet. A blank ident
// means first registration and gets one assigned; a known ident means a
// restarted agent reclaiming its record.
func (s *Server) RegisterRack(ctx context.Context, req *rpc.RegisterRackRequest) (*rpc.RegisterRackResponse, error) {
	role, err := s.state.ValidateJoinToken(req.Token)
	if err != nil {
		return nil, status.Error(codes.PermissionDenied, err.Error())
	}
	if role != "rack" {
		return nil, status.Errorf(codes.PermissionDenied, "token has role %q, want rack", role)
	}

	if req.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "address is required")
	}

	ident := req.Ident
	if ident == "" {
		ident = uuid.New().String()
	}

	rack := &types.RackController{
		Ident:         ident,
		Address:       req.Address,
		Hostname:      req.Hostname,
		Version:       req.Version,
		Labels:        req.Labels,
		Status:        types.RackStatusReady,
		LastHeartbeat: time.Now(),
		RegisteredAt:  time.Now(),
	}

	if existing, err := s.state.GetRack(ident); err == nil {
		rack.RegisteredAt = existing.RegisteredAt
	}

	if err := s.state.UpdateRack(rack); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to record rack: %v", err)
	}
	if err := s.fleet.Register(rack); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to connect rack: %v", err)
	}

	s.logger.Info().Str("rack_id", ident).Str("address", req.Address).Msg("rack registered")

	return &rpc.RegisterRackResponse{Rack: rack}, nil
}

// Heartbeat records a sign of life from a rack agent. An unknown ident
// gets NotFound so the agent knows to re-register.
func (s *Server) Heartbeat(ctx context.Context, req *rpc.HeartbeatRequest) (*rpc.HeartbeatResponse, error) {
	if err := s.fleet.Heartbeat(req.Ident); err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}

	return &rpc.HeartbeatResponse{Status: "ok"}, nil
}

// ListRacks returns the replicated rack records
func (s *Server) ListRacks(ctx context.Context, req *rpc.ListRacksRequest) (*rpc.ListRacksResponse, error) {
	racks, err := s.state.ListRacks()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list racks: %v", err)
	}

	return &rpc.ListRacksResponse{Racks: racks}, nil
}

// RemoveRack drops a rack from both the replicated record and the live fleet
func (s *Server) RemoveRack(ctx context.Context, req *rpc.RemoveRackRequest) (*rpc.RemoveRackResponse, error) {
	if _, err := s.state.GetRack(req.Ident); err != nil {
		return nil, status.Errorf(codes.NotFound, "unknown rack %q", req.Ident)
	}

	if err := s.state.DeleteRack(req.Ident); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to delete rack: %v", err)
	}

	// The rack may never have connected this session
	_ = s.fleet.Remove(req.Ident)

	return &rpc.RemoveRackResponse{Status: "removed"}, nil
}

// GenerateJoinToken mints a join token for a new rack agent or region node
func (s *Server) GenerateJoinToken(ctx context.Context, req *rpc.GenerateJoinTokenRequest) (*rpc.GenerateJoinTokenResponse, error) {
	if req.Role != "rack" && req.Role != "region" {
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", req.Role)
	}

	token, err := s.state.GenerateJoinToken(req.Role)
	if err != nil {
		return nil, status.Errorf(codes.FailedPrecondition, "%v", err)
	}

	return &rpc.GenerateJoinTokenResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// JoinRegion adds another region node to the Raft cluster
func (s *Server) JoinRegion(ctx context.Context, req *rpc.JoinRegionRequest) (*rpc.JoinRegionResponse, error) {
	role, err := s.state.ValidateJoinToken(req.Token)
	if err != nil {
		return nil, status.Error(codes.PermissionDenied, err.Error())
	}
	if role != "region" {
		return nil, status.Errorf(codes.PermissionDenied, "token has role %q, want region", role)
	}

	if !s.state.IsLeader() {
		return nil, status.Errorf(codes.FailedPrecondition,
			"not the leader, current leader: %s", s.state.LeaderAddr())
	}

	if err := s.state.AddVoter(req.NodeID, req.BindAddr); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to add voter: %v", err)
	}

	return &rpc.JoinRegionResponse{Status: "joined"}, nil
}

// DiscoverPod fans one discovery round out across the fleet and returns
// the selected pod along with the per-rack breakdown. When every rack
// failed, the most informative failure becomes the call's error.
func (s *Server) DiscoverPod(ctx context.Context, req *rpc.DiscoverPodRequest) (*rpc.DiscoverPodResponse, error) {
	if req.Type == "" {
		return nil, status.Error(codes.InvalidArgument, "pod type is required")
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second

	result, err := s.discoverer.DiscoverPod(ctx, req.Type, req.Parameters, timeout)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "discovery round failed: %v", err)
	}

	pod, best := discovery.BestResult(result)
	if pod == nil && best != nil {
		return nil, rpc.ToStatus(best)
	}

	failures := make(map[string]string, len(result.Failures))
	for ident, ferr := range result.Failures {
		failures[ident] = ferr.Error()
	}

	return &rpc.DiscoverPodResponse{
		Pod:        pod,
		Discovered: result.Discovered,
		Failures:   failures,
	}, nil
}

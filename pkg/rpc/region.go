package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Region service: the API the region controller exposes to rack agents and
// to the CLI. The service descriptor is written by hand (layout follows
// grpc-go generated stubs) because the payloads are the JSON structs in
// messages.go rather than generated protobuf messages.

const RegionServiceName = "quarry.region.v1.Region"

const (
	regionRegisterRackMethod      = "/" + RegionServiceName + "/RegisterRack"
	regionHeartbeatMethod         = "/" + RegionServiceName + "/Heartbeat"
	regionListRacksMethod         = "/" + RegionServiceName + "/ListRacks"
	regionRemoveRackMethod        = "/" + RegionServiceName + "/RemoveRack"
	regionGenerateJoinTokenMethod = "/" + RegionServiceName + "/GenerateJoinToken"
	regionJoinRegionMethod        = "/" + RegionServiceName + "/JoinRegion"
	regionDiscoverPodMethod       = "/" + RegionServiceName + "/DiscoverPod"
)

// RegionServer is the server-side contract for the Region service.
type RegionServer interface {
	RegisterRack(context.Context, *RegisterRackRequest) (*RegisterRackResponse, error)
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	ListRacks(context.Context, *ListRacksRequest) (*ListRacksResponse, error)
	RemoveRack(context.Context, *RemoveRackRequest) (*RemoveRackResponse, error)
	GenerateJoinToken(context.Context, *GenerateJoinTokenRequest) (*GenerateJoinTokenResponse, error)
	JoinRegion(context.Context, *JoinRegionRequest) (*JoinRegionResponse, error)
	DiscoverPod(context.Context, *DiscoverPodRequest) (*DiscoverPodResponse, error)
}

// RegisterRegionServer registers the Region service implementation on a
// gRPC server.
func RegisterRegionServer(s *grpc.Server, srv RegionServer) {
	s.RegisterService(&regionServiceDesc, srv)
}

var regionServiceDesc = grpc.ServiceDesc{
	ServiceName: RegionServiceName,
	HandlerType: (*RegionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterRack", Handler: regionRegisterRackHandler},
		{MethodName: "Heartbeat", Handler: regionHeartbeatHandler},
		{MethodName: "ListRacks", Handler: regionListRacksHandler},
		{MethodName: "RemoveRack", Handler: regionRemoveRackHandler},
		{MethodName: "GenerateJoinToken", Handler: regionGenerateJoinTokenHandler},
		{MethodName: "JoinRegion", Handler: regionJoinRegionHandler},
		{MethodName: "DiscoverPod", Handler: regionDiscoverPodHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/rpc/region.go",
}

func regionRegisterRackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterRackRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServer).RegisterRack(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: regionRegisterRackMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServer).RegisterRack(ctx, req.(*RegisterRackRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func regionHeartbeatHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServer).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: regionHeartbeatMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServer).Heartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func regionListRacksHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListRacksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServer).ListRacks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: regionListRacksMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServer).ListRacks(ctx, req.(*ListRacksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func regionRemoveRackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RemoveRackRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServer).RemoveRack(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: regionRemoveRackMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServer).RemoveRack(ctx, req.(*RemoveRackRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func regionGenerateJoinTokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GenerateJoinTokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServer).GenerateJoinToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: regionGenerateJoinTokenMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServer).GenerateJoinToken(ctx, req.(*GenerateJoinTokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func regionJoinRegionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(JoinRegionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServer).JoinRegion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: regionJoinRegionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServer).JoinRegion(ctx, req.(*JoinRegionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func regionDiscoverPodHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DiscoverPodRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServer).DiscoverPod(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: regionDiscoverPodMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServer).DiscoverPod(ctx, req.(*DiscoverPodRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegionClient is the client-side handle for the Region service.
type RegionClient struct {
	cc grpc.ClientConnInterface
}

func NewRegionClient(cc grpc.ClientConnInterface) *RegionClient {
	return &RegionClient{cc: cc}
}

func (c *RegionClient) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.cc.Invoke(ctx, method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *RegionClient) RegisterRack(ctx context.Context, in *RegisterRackRequest) (*RegisterRackResponse, error) {
	out := new(RegisterRackResponse)
	if err := c.invoke(ctx, regionRegisterRackMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegionClient) Heartbeat(ctx context.Context, in *HeartbeatRequest) (*HeartbeatResponse, error) {
	out := new(HeartbeatResponse)
	if err := c.invoke(ctx, regionHeartbeatMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegionClient) ListRacks(ctx context.Context, in *ListRacksRequest) (*ListRacksResponse, error) {
	out := new(ListRacksResponse)
	if err := c.invoke(ctx, regionListRacksMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegionClient) RemoveRack(ctx context.Context, in *RemoveRackRequest) (*RemoveRackResponse, error) {
	out := new(RemoveRackResponse)
	if err := c.invoke(ctx, regionRemoveRackMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegionClient) GenerateJoinToken(ctx context.Context, in *GenerateJoinTokenRequest) (*GenerateJoinTokenResponse, error) {
	out := new(GenerateJoinTokenResponse)
	if err := c.invoke(ctx, regionGenerateJoinTokenMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegionClient) JoinRegion(ctx context.Context, in *JoinRegionRequest) (*JoinRegionResponse, error) {
	out := new(JoinRegionResponse)
	if err := c.invoke(ctx, regionJoinRegionMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegionClient) DiscoverPod(ctx context.Context, in *DiscoverPodRequest) (*DiscoverPodResponse, error) {
	out := new(DiscoverPodResponse)
	if err := c.invoke(ctx, regionDiscoverPodMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

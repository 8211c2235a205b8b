package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// RackAgent service: the single-method API every rack controller serves to
// the region.

const RackAgentServiceName = "quarry.rack.v1.RackAgent"

const rackDiscoverPodMethod = "/" + RackAgentServiceName + "/DiscoverPod"

// RackAgentServer is the server-side contract for the RackAgent service.
type RackAgentServer interface {
	DiscoverPod(context.Context, *RackDiscoverRequest) (*RackDiscoverResponse, error)
}

// RegisterRackAgentServer registers the RackAgent service implementation on
// a gRPC server.
func RegisterRackAgentServer(s *grpc.Server, srv RackAgentServer) {
	s.RegisterService(&rackAgentServiceDesc, srv)
}

var rackAgentServiceDesc = grpc.ServiceDesc{
	ServiceName: RackAgentServiceName,
	HandlerType: (*RackAgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DiscoverPod", Handler: rackDiscoverPodHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/rpc/rack.go",
}

func rackDiscoverPodHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RackDiscoverRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RackAgentServer).DiscoverPod(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rackDiscoverPodMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RackAgentServer).DiscoverPod(ctx, req.(*RackDiscoverRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RackAgentClient is the client-side handle the region holds per rack.
type RackAgentClient struct {
	cc grpc.ClientConnInterface
}

func NewRackAgentClient(cc grpc.ClientConnInterface) *RackAgentClient {
	return &RackAgentClient{cc: cc}
}

func (c *RackAgentClient) DiscoverPod(ctx context.Context, in *RackDiscoverRequest) (*RackDiscoverResponse, error) {
	out := new(RackDiscoverResponse)
	if err := c.cc.Invoke(ctx, rackDiscoverPodMethod, in, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

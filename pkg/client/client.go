package client

import (
	"context"
	"fmt"
	"time"

	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// defaultCallTimeout bounds the simple control-plane calls. Discovery
// rounds carry their own timeout and get headroom on top of it.
const defaultCallTimeout = 10 * time.Second

// Client wraps the Region gRPC API for the CLI and other callers.
type Client struct {
	conn   *grpc.ClientConn
	region *rpc.RegionClient
}

// NewClient connects to a region controller at the given address
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to region at %s: %w", addr, err)
	}

	return &Client{
		conn:   conn,
		region: rpc.NewRegionClient(conn),
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// DiscoverPod runs one discovery round across the region's rack fleet.
// A zero timeout lets the region apply its default.
func (c *Client) DiscoverPod(podType string, params types.PodParameters, timeout time.Duration) (*rpc.DiscoverPodResponse, error) {
	// Give the round itself room to finish before the call deadline
	callTimeout := timeout + defaultCallTimeout
	if timeout <= 0 {
		callTimeout = time.Minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	return c.region.DiscoverPod(ctx, &rpc.DiscoverPodRequest{
		Type:           podType,
		Parameters:     params,
		TimeoutSeconds: int(timeout / time.Second),
	})
}

// ListRacks returns all rack controllers known to the region
func (c *Client) ListRacks() ([]*types.RackController, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()

	resp, err := c.region.ListRacks(ctx, &rpc.ListRacksRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Racks, nil
}

// RemoveRack removes a rack controller from the region
func (c *Client) RemoveRack(ident string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()

	_, err := c.region.RemoveRack(ctx, &rpc.RemoveRackRequest{Ident: ident})
	return err
}

// GenerateJoinToken asks the region leader for a join token
func (c *Client) GenerateJoinToken(role string) (*rpc.GenerateJoinTokenResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()

	return c.region.GenerateJoinToken(ctx, &rpc.GenerateJoinTokenRequest{Role: role})
}

// JoinRegion asks the leader to add a new region node as a Raft voter
func (c *Client) JoinRegion(nodeID, bindAddr, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()

	_, err := c.region.JoinRegion(ctx, &rpc.JoinRegionRequest{
		NodeID:   nodeID,
		BindAddr: bindAddr,
		Token:    token,
	})
	return err
}

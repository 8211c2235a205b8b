package rpc

import (
	"time"

	"github.com/stonegrid/quarry/pkg/types"
)

// Request and response payloads for the Region and RackAgent services.
// These travel as JSON under the codec in codec.go.

type RegisterRackRequest struct {
	Ident    string            `json:"ident,omitempty"` // empty on first registration
	Address  string            `json:"address"`
	Hostname string            `json:"hostname,omitempty"`
	Version  string            `json:"version,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Token    string            `json:"token"`
}

type RegisterRackResponse struct {
	Rack *types.RackController `json:"rack"`
}

type HeartbeatRequest struct {
	Ident string `json:"ident"`
}

type HeartbeatResponse struct {
	Status string `json:"status"`
}

type ListRacksRequest struct{}

type ListRacksResponse struct {
	Racks []*types.RackController `json:"racks"`
}

type RemoveRackRequest struct {
	Ident string `json:"ident"`
}

type RemoveRackResponse struct {
	Status string `json:"status"`
}

type GenerateJoinTokenRequest struct {
	Role string `json:"role"` // "rack" or "region"
}

type GenerateJoinTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type JoinRegionRequest struct {
	NodeID   string `json:"node_id"`
	BindAddr string `json:"bind_addr"`
	Token    string `json:"token"`
}

type JoinRegionResponse struct {
	Status string `json:"status"`
}

// DiscoverPodRequest asks the region to run one discovery round across all
// ready rack controllers. Type and Parameters are opaque to the region and
// handed through to every rack verbatim.
type DiscoverPodRequest struct {
	Type           string              `json:"type"`
	Parameters     types.PodParameters `json:"parameters,omitempty"`
	TimeoutSeconds int                 `json:"timeout_seconds,omitempty"` // 0 means the 30s default
}

// DiscoverPodResponse carries the selector's choice plus the full per-rack
// breakdown of the round.
type DiscoverPodResponse struct {
	Pod        *types.DiscoveredPod            `json:"pod,omitempty"`
	Discovered map[string]*types.DiscoveredPod `json:"discovered,omitempty"`
	Failures   map[string]string               `json:"failures,omitempty"`
}

// RackDiscoverRequest is the region-to-rack leg of one discovery invocation.
type RackDiscoverRequest struct {
	Type       string              `json:"type"`
	Parameters types.PodParameters `json:"parameters,omitempty"`
}

type RackDiscoverResponse struct {
	Pod *types.DiscoveredPod `json:"pod"`
}

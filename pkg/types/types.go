package types

import (
	"time"
)

// RackController represents a rack controller known to the region.
// The Ident is the stable key for one controller across discovery rounds.
type RackController struct {
	Ident         string
	Address       string // host:port of the rack agent's RPC listener
	Hostname      string
	Version       string
	Labels        map[string]string
	Status        RackStatus
	LastHeartbeat time.Time
	RegisteredAt  time.Time
}

// RackStatus represents the current state of a rack controller
type RackStatus string

const (
	RackStatusReady   RackStatus = "ready"
	RackStatusDown    RackStatus = "down"
	RackStatusUnknown RackStatus = "unknown"
)

// DiscoveredPod is the immutable result of one successful pod discovery
// against one rack controller. Ownership transfers to the caller.
type DiscoveredPod struct {
	Architectures []string           `json:"architectures"`
	Cores         int                `json:"cores"`
	CPUSpeed      int64              `json:"cpu_speed"`     // MHz
	Memory        int64              `json:"memory"`        // MiB
	LocalStorage  int64              `json:"local_storage"` // MiB
	Hints         DiscoveredPodHints `json:"hints"`
}

// DiscoveredPodHints describes the currently-available headroom on a
// discovered pod, as opposed to its total capacity.
type DiscoveredPodHints struct {
	Cores        int   `json:"cores"`
	CPUSpeed     int64 `json:"cpu_speed"`
	Memory       int64 `json:"memory"`
	LocalStorage int64 `json:"local_storage"`
}

// PodParameters is the opaque per-driver configuration bag handed through to
// every rack controller verbatim. The region never inspects it.
type PodParameters map[string]any

package agent

import (
	"context"

	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
)

// StaticPodConfig declares a pod backend in the agent's config file.
// Capacity is fixed; hints are capacity minus the reserved share.
type StaticPodConfig struct {
	Type          string   `yaml:"type"`
	Architectures []string `yaml:"architectures"`
	Cores         int      `yaml:"cores"`
	CPUSpeed      int64    `yaml:"cpu_speed"`
	Memory        int64    `yaml:"memory"`
	LocalStorage  int64    `yaml:"local_storage"`

	// Discoverable false declares the backend present but not probeable,
	// e.g. a pod managed out of band.
	Discoverable *bool `yaml:"discoverable,omitempty"`

	Reserved struct {
		Cores        int   `yaml:"cores"`
		Memory       int64 `yaml:"memory"`
		LocalStorage int64 `yaml:"local_storage"`
	} `yaml:"reserved"`
}

// StaticDriver answers discovery for a pod declared in config rather
// than probed from live hardware.
type StaticDriver struct {
	cfg StaticPodConfig
}

// NewStaticDriver creates a driver for one declared pod
func NewStaticDriver(cfg StaticPodConfig) *StaticDriver {
	return &StaticDriver{cfg: cfg}
}

// Type returns the declared pod type
func (d *StaticDriver) Type() string { return d.cfg.Type }

// DiscoverPod reports the declared capacity and derived hints
func (d *StaticDriver) DiscoverPod(ctx context.Context, params types.PodParameters) (*types.DiscoveredPod, error) {
	if d.cfg.Discoverable != nil && !*d.cfg.Discoverable {
		return nil, &rpc.NotSupportedError{Op: "discover"}
	}

	return &types.DiscoveredPod{
		Architectures: d.cfg.Architectures,
		Cores:         d.cfg.Cores,
		CPUSpeed:      d.cfg.CPUSpeed,
		Memory:        d.cfg.Memory,
		LocalStorage:  d.cfg.LocalStorage,
		Hints: types.DiscoveredPodHints{
			Cores:        d.cfg.Cores - d.cfg.Reserved.Cores,
			CPUSpeed:     d.cfg.CPUSpeed,
			Memory:       d.cfg.Memory - d.cfg.Reserved.Memory,
			LocalStorage: d.cfg.LocalStorage - d.cfg.Reserved.LocalStorage,
		},
	}, nil
}

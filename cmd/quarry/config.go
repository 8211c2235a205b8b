package main

import (
	"fmt"
	"os"
	"time"

	"github.com/stonegrid/quarry/pkg/agent"
	"gopkg.in/yaml.v3"
)

// AgentConfig is the rack agent's YAML configuration file.
type AgentConfig struct {
	Region            string                  `yaml:"region"`
	BindAddr          string                  `yaml:"bind_addr"`
	AdvertiseAddr     string                  `yaml:"advertise_addr,omitempty"`
	Ident             string                  `yaml:"ident,omitempty"`
	Token             string                  `yaml:"token"`
	Labels            map[string]string       `yaml:"labels,omitempty"`
	HeartbeatInterval int                     `yaml:"heartbeat_interval,omitempty"` // seconds
	Pods              []agent.StaticPodConfig `yaml:"pods"`
}

func loadAgentConfig(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg AgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Region == "" {
		return nil, fmt.Errorf("config is missing the region address")
	}
	if cfg.BindAddr == "" {
		return nil, fmt.Errorf("config is missing the bind address")
	}

	return &cfg, nil
}

func (c *AgentConfig) agentConfig(version string) agent.Config {
	return agent.Config{
		RegionAddr:        c.Region,
		BindAddr:          c.BindAddr,
		AdvertiseAddr:     c.AdvertiseAddr,
		Ident:             c.Ident,
		Version:           version,
		Labels:            c.Labels,
		Token:             c.Token,
		HeartbeatInterval: time.Duration(c.HeartbeatInterval) * time.Second,
	}
}

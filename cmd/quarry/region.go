package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stonegrid/quarry/pkg/api"
	"github.com/stonegrid/quarry/pkg/client"
	"github.com/stonegrid/quarry/pkg/discovery"
	"github.com/stonegrid/quarry/pkg/events"
	"github.com/stonegrid/quarry/pkg/log"
	"github.com/stonegrid/quarry/pkg/manager"
	"github.com/stonegrid/quarry/pkg/metrics"
	"github.com/stonegrid/quarry/pkg/registry"
)

var regionCmd = &cobra.Command{
	Use:   "region",
	Short: "Run and manage region controllers",
}

var regionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new region",
	Long: `Initialize a new region with this node as the first controller.

The node bootstraps a single-member Raft cluster; further region nodes
can join later with 'quarry region join'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		apiAddr, _ := cmd.Flags().GetString("api-addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:   nodeID,
			BindAddr: bindAddr,
			DataDir:  dataDir,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}

		if err := mgr.Bootstrap(); err != nil {
			return fmt.Errorf("failed to bootstrap region: %w", err)
		}

		return runRegion(mgr, apiAddr, metricsAddr)
	},
}

var regionJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join this node to an existing region",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		apiAddr, _ := cmd.Flags().GetString("api-addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		leaderAddr, _ := cmd.Flags().GetString("region")
		token, _ := cmd.Flags().GetString("token")

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:   nodeID,
			BindAddr: bindAddr,
			DataDir:  dataDir,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}

		// Raft transport must be up before the leader dials back
		if err := mgr.Join(); err != nil {
			return fmt.Errorf("failed to prepare raft: %w", err)
		}

		c, err := client.NewClient(leaderAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to region: %w", err)
		}
		if err := c.JoinRegion(nodeID, bindAddr, token); err != nil {
			c.Close()
			return fmt.Errorf("failed to join region: %w", err)
		}
		c.Close()

		fmt.Println("✓ Joined region")
		return runRegion(mgr, apiAddr, metricsAddr)
	},
}

var regionJoinTokenCmd = &cobra.Command{
	Use:   "join-token [rack|region]",
	Short: "Generate a join token for rack agents or region nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := args[0]
		if role != "rack" && role != "region" {
			return fmt.Errorf("role must be 'rack' or 'region'")
		}

		regionAddr, _ := cmd.Flags().GetString("region")

		c, err := client.NewClient(regionAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to region: %w", err)
		}
		defer c.Close()

		resp, err := c.GenerateJoinToken(role)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		fmt.Printf("Join token for role %q (expires %s):\n\n  %s\n",
			role, resp.ExpiresAt.Format("2006-01-02 15:04:05"), resp.Token)
		return nil
	},
}

// logEvents mirrors fleet events into the log until the subscription
// is closed.
func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for event := range sub {
		logger.Info().
			Str("type", string(event.Type)).
			Str("rack_id", event.RackID).
			Msg(event.Message)
	}
}

// runRegion wires the registry, discoverer and servers around an
// initialized manager, then blocks until a signal arrives.
func runRegion(mgr *manager.Manager, apiAddr, metricsAddr string) error {
	metrics.SetVersion(Version)
	metrics.RegisterComponent("raft", true, "")

	reg := registry.NewRegistry(mgr.GetEventBroker())
	reg.Start()
	metrics.RegisterComponent("registry", true, "")

	disc := discovery.NewDiscoverer(reg, discovery.WithBroker(mgr.GetEventBroker()))

	apiServer := api.NewServer(mgr, reg, disc)
	errCh := make(chan error, 1)
	go func() {
		metrics.RegisterComponent("api", true, "")
		if err := apiServer.Start(apiAddr); err != nil {
			metrics.UpdateComponent("api", false, err.Error())
			errCh <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Metrics and health endpoints
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Errorf("metrics server error", err)
		}
	}()

	// Log fleet events as they happen
	go logEvents(mgr.GetEventBroker().Subscribe())

	log.Info("region controller is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		log.Errorf("fatal error", err)
	}

	apiServer.Stop()
	reg.Stop()
	if err := mgr.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown: %w", err)
	}

	return nil
}

func init() {
	regionCmd.AddCommand(regionInitCmd)
	regionCmd.AddCommand(regionJoinCmd)
	regionCmd.AddCommand(regionJoinTokenCmd)

	for _, c := range []*cobra.Command{regionInitCmd, regionJoinCmd} {
		c.Flags().String("node-id", "region-1", "Unique node ID")
		c.Flags().String("bind-addr", "127.0.0.1:7000", "Address for Raft communication")
		c.Flags().String("api-addr", "127.0.0.1:9450", "Address for the gRPC API")
		c.Flags().String("metrics-addr", "127.0.0.1:9451", "Address for metrics and health endpoints")
		c.Flags().String("data-dir", "./quarry-data", "Data directory for region state")
	}

	regionJoinCmd.Flags().String("region", "", "API address of an existing region node")
	regionJoinCmd.Flags().String("token", "", "Join token with the region role")
	_ = regionJoinCmd.MarkFlagRequired("region")
	_ = regionJoinCmd.MarkFlagRequired("token")

	regionJoinTokenCmd.Flags().String("region", "127.0.0.1:9450", "Region API address")
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stonegrid/quarry/pkg/agent"
	"github.com/stonegrid/quarry/pkg/client"
	"github.com/stonegrid/quarry/pkg/log"
)

var rackCmd = &cobra.Command{
	Use:   "rack",
	Short: "Run and manage rack controllers",
}

var rackRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a rack agent",
	Long: `Run a rack agent serving the pod backends declared in its config file.

Example config:

  region: 10.0.0.1:9450
  bind_addr: 0.0.0.0:9460
  token: <join token>
  pods:
    - type: virsh
      architectures: [amd64/generic]
      cores: 32
      memory: 65536
      local_storage: 4398046511104`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := loadAgentConfig(configPath)
		if err != nil {
			return err
		}

		drivers := agent.NewDriverRegistry()
		for _, pod := range cfg.Pods {
			drivers.Register(agent.NewStaticDriver(pod))
		}

		a, err := agent.NewAgent(cfg.agentConfig(Version), drivers)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			if err := a.Run(); err != nil {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("shutting down")
		case err := <-errCh:
			return err
		}

		a.Stop()
		return nil
	},
}

var rackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rack controllers in the region",
	RunE: func(cmd *cobra.Command, args []string) error {
		regionAddr, _ := cmd.Flags().GetString("region")

		c, err := client.NewClient(regionAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to region: %w", err)
		}
		defer c.Close()

		racks, err := c.ListRacks()
		if err != nil {
			return fmt.Errorf("failed to list racks: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "IDENT\tADDRESS\tHOSTNAME\tSTATUS\tLAST HEARTBEAT")
		for _, r := range racks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.Ident, r.Address, r.Hostname, r.Status,
				r.LastHeartbeat.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var rackRemoveCmd = &cobra.Command{
	Use:   "remove IDENT",
	Short: "Remove a rack controller from the region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regionAddr, _ := cmd.Flags().GetString("region")

		c, err := client.NewClient(regionAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to region: %w", err)
		}
		defer c.Close()

		if err := c.RemoveRack(args[0]); err != nil {
			return fmt.Errorf("failed to remove rack: %w", err)
		}

		fmt.Printf("✓ Removed rack %s\n", args[0])
		return nil
	},
}

func init() {
	rackCmd.AddCommand(rackRunCmd)
	rackCmd.AddCommand(rackListCmd)
	rackCmd.AddCommand(rackRemoveCmd)

	rackRunCmd.Flags().StringP("config", "c", "quarry-agent.yaml", "Agent config file")

	rackListCmd.Flags().String("region", "127.0.0.1:9450", "Region API address")
	rackRemoveCmd.Flags().String("region", "127.0.0.1:9450", "Region API address")
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stonegrid/quarry/pkg/client"
	"github.com/stonegrid/quarry/pkg/types"
)

var podCmd = &cobra.Command{
	Use:   "pod",
	Short: "Discover pods across the rack fleet",
}

var podDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Ask every rack controller to probe for a pod",
	Long: `Run one discovery round: the region queries all ready rack
controllers in parallel and returns the first pod any of them found,
along with the per-rack breakdown.

Examples:
  quarry pod discover --type virsh
  quarry pod discover --type virsh --param address=qemu+ssh://host/system --timeout 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		regionAddr, _ := cmd.Flags().GetString("region")
		podType, _ := cmd.Flags().GetString("type")
		rawParams, _ := cmd.Flags().GetStringArray("param")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		params := make(types.PodParameters, len(rawParams))
		for _, kv := range rawParams {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --param %q, want key=value", kv)
			}
			params[key] = value
		}

		c, err := client.NewClient(regionAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to region: %w", err)
		}
		defer c.Close()

		resp, err := c.DiscoverPod(podType, params, timeout)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}

		if resp.Pod == nil {
			fmt.Println("No rack controllers answered.")
			return nil
		}

		fmt.Printf("Discovered %s pod:\n", podType)
		fmt.Printf("  Architectures:  %s\n", strings.Join(resp.Pod.Architectures, ", "))
		fmt.Printf("  Cores:          %d (hint %d)\n", resp.Pod.Cores, resp.Pod.Hints.Cores)
		fmt.Printf("  Memory:         %d MiB (hint %d)\n", resp.Pod.Memory, resp.Pod.Hints.Memory)
		fmt.Printf("  Local storage:  %d bytes (hint %d)\n", resp.Pod.LocalStorage, resp.Pod.Hints.LocalStorage)
		fmt.Printf("\nAnswered: %d rack(s)\n", len(resp.Discovered))

		if len(resp.Failures) > 0 {
			fmt.Printf("Failed: %d rack(s)\n", len(resp.Failures))
			for ident, msg := range resp.Failures {
				fmt.Printf("  %s: %s\n", ident, msg)
			}
		}

		return nil
	},
}

func init() {
	podCmd.AddCommand(podDiscoverCmd)

	podDiscoverCmd.Flags().String("region", "127.0.0.1:9450", "Region API address")
	podDiscoverCmd.Flags().String("type", "", "Pod type to discover (e.g. virsh)")
	podDiscoverCmd.Flags().StringArray("param", nil, "Driver parameter as key=value, repeatable")
	podDiscoverCmd.Flags().Duration("timeout", 0, "Round timeout (0 uses the region default)")
	_ = podDiscoverCmd.MarkFlagRequired("type")
}

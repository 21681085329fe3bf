package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmuck/unrealctl/internal/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List editor instances answering on the multicast group",
	RunE:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}

	ch, err := discovery.Open(s.base)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.SendPing(); err != nil {
		return err
	}

	// Keep listening for the whole window; several editors may answer.
	deadline := time.Now().Add(s.discoveryTimeout)
	seen := map[string]bool{}
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		peer, err := ch.ReceivePong(remaining)
		if errors.Is(err, discovery.ErrDiscoveryTimeout) {
			break
		}
		if err != nil {
			return err
		}
		if seen[peer.NodeID] {
			continue
		}
		seen[peer.NodeID] = true
		fmt.Fprintf(cmd.OutOrStdout(), "%s  project=%s  engine=%s  command=%s:%d\n",
			peer.NodeID, peer.ProjectName, peer.EngineVersion, peer.CommandIP, peer.CommandPort)
	}

	if len(seen) == 0 {
		return discovery.ErrDiscoveryTimeout
	}
	return nil
}

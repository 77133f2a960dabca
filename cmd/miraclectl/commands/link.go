package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Inspect managed Wi-Fi Direct links",
	}

	cmd.AddCommand(linkListCmd())
	cmd.AddCommand(peerListCmd())

	return cmd
}

// --- link list ---

func linkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List managed links and their group status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var links []linkRow
			if err := managerObject().Call("org.miraclecast.Manager.ListLinks", 0).Store(&links); err != nil {
				return fmt.Errorf("list links: %w", err)
			}

			out, err := formatLinks(links, outputFormat)
			if err != nil {
				return fmt.Errorf("format links: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

// --- link peers ---

func peerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers <link-id>",
		Short: "List discovered peers on a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var peers []peerRow
			if err := managerObject().Call("org.miraclecast.Manager.ListPeers", 0, args[0]).Store(&peers); err != nil {
				return fmt.Errorf("list peers: %w", err)
			}

			out, err := formatPeers(peers, outputFormat)
			if err != nil {
				return fmt.Errorf("format peers: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

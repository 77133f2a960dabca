package commands

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/miraclecast/miraclecast/internal/facade"
)

var (
	// bus is the D-Bus connection to the daemon, initialized in
	// PersistentPreRunE. System bus by default; --session switches to the
	// per-user session bus for local development.
	bus *dbus.Conn

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// useSessionBus connects to the D-Bus session bus instead of the system bus.
	useSessionBus bool
)

// rootCmd is the top-level cobra command for miraclectl.
var rootCmd = &cobra.Command{
	Use:   "miraclectl",
	Short: "CLI client for the miracled daemon",
	Long:  "miraclectl communicates with the miracled daemon over D-Bus to inspect Wi-Fi Display links, peers, and groups.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		if useSessionBus {
			bus, err = dbus.ConnectSessionBus()
		} else {
			bus, err = dbus.ConnectSystemBus()
		}
		if err != nil {
			return fmt.Errorf("connect to D-Bus: %w", err)
		}
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&useSessionBus, "session", false,
		"connect to the D-Bus session bus instead of the system bus")

	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(versionCmd())
}

// managerObject returns the daemon's D-Bus manager object.
func managerObject() dbus.BusObject {
	return bus.Object(facade.BusName, facade.ObjectPath)
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

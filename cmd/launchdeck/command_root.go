package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Platform instance and tool launcher",
		Long: `launchdeck lists running platform instances and desktop tools,
brings them to the foreground, closes them, and launches information
bases through short-lived scripts.

Configuration comes from LAUNCHDECK_* environment variables, e.g.
  LAUNCHDECK_TARGETS_FILE          Path to targets.yaml
  LAUNCHDECK_DATABASE_PATH         History database file
  LAUNCHDECK_LAUNCHER_SCRIPT_DIR   Where launch scripts are written
  LAUNCHDECK_HOTKEY_ENABLED        Register the global hotkey (true/false)
  LAUNCHDECK_WEB_PORT              Status API port`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newListCmd())
	root.AddCommand(newTargetsCmd())
	root.AddCommand(newActivateCmd())
	root.AddCommand(newCloseCmd())
	root.AddCommand(newLaunchCmd())
	root.AddCommand(newMaintainCmd())
	root.AddCommand(newRecentCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newForgetCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

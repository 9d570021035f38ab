package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchdeck/launchdeck/internal/app"
	"github.com/launchdeck/launchdeck/internal/launcher"
)

func newLaunchCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "launch <target> [-- extra args...]",
		Short: "Launch a configured target",
		Long: `Launch writes a short-lived script for the target and opens it
detached. The command waits until the script has been cleaned up.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := launcher.Params{ExtraArgs: args[1:]}
			if cmd.Flags().Changed("mode") {
				m, err := launcher.ParseMode(mode)
				if err != nil {
					return err
				}
				params.Mode = &m
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.check(cmd.Context(), func(c *app.Controller) bool { return c.Launch(args[0], params) }); err != nil {
				return err
			}
			fmt.Printf("Launching %s\n", args[0])
			return s.waitForCleanup(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "launch mode: primary, maintenance or auxiliary")
	return cmd
}

func newMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain <target> <operation>",
		Short: "Run a maintenance operation on an information base",
		Long: `Operations:
  update-db            apply the configuration to the database
  repository-update    pull from the repository, then apply
  dump                 dump the configuration to a file
  update-and-dump      apply, then dump`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := launcher.ParseOperation(args[1])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.check(cmd.Context(), func(c *app.Controller) bool { return c.Maintain(args[0], op) }); err != nil {
				return err
			}
			fmt.Printf("Running %s on %s\n", op, args[0])
			return s.waitForCleanup(cmd.Context())
		},
	}
}

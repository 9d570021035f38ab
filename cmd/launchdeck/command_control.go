package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/launchdeck/launchdeck/internal/app"
)

func parsePID(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, errors.Errorf("invalid PID %q", s)
	}
	return pid, nil
}

func newActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <pid>",
		Short: "Restore and focus the window of a running instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return s.check(cmd.Context(), func(c *app.Controller) bool { return c.Activate(pid) })
		},
	}
}

func newCloseCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "close <pid>",
		Short: "Close a running instance, waiting for it to exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.check(cmd.Context(), func(c *app.Controller) bool { return c.Close(pid, force) }); err != nil {
				return err
			}
			fmt.Printf("Process %d closed\n", pid)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "kill the process instead of asking its window to close")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/launchdeck/launchdeck/internal/app"
	"github.com/launchdeck/launchdeck/internal/refresh"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List running instances, tool placeholders and recent targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var view refresh.View
			if err := s.do(cmd.Context(), func(c *app.Controller) { view = c.Refresh() }); err != nil {
				return err
			}
			printView(view)
			return nil
		},
	}
	return cmd
}

func printView(v refresh.View) {
	cursor := ""
	if v.Cursor.Valid() {
		cursor = v.Cursor.Entry.Key()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, g := range v.Groups {
		fmt.Fprintf(w, "%s\n", strings.ToUpper(g.Name))
		if len(g.Entries) == 0 {
			fmt.Fprintf(w, "  -\n")
		}
		for _, e := range g.Entries {
			printEntry(w, e, e.Key() == cursor)
		}
	}
	if len(v.Recent) > 0 {
		fmt.Fprintf(w, "RECENT\n")
		for _, e := range v.Recent {
			printEntry(w, e, e.Key() == cursor)
		}
	}
	w.Flush()
}

func printEntry(w *tabwriter.Writer, e refresh.Entry, selected bool) {
	mark := " "
	if selected {
		mark = ">"
	}
	refresh.Match(e,
		func(lp refresh.LiveProcess) struct{} {
			fmt.Fprintf(w, "%s %d\t%s\t%s\n", mark, lp.Handle.PID, lp.Label, lp.Handle.Executable)
			return struct{}{}
		},
		func(p refresh.LaunchPlaceholder) struct{} {
			fmt.Fprintf(w, "%s -\t%s\t(not running)\n", mark, p.Label)
			return struct{}{}
		},
		func(o refresh.Other) struct{} {
			fmt.Fprintf(w, "%s -\t%s\t\n", mark, o.Label)
			return struct{}{}
		},
	)
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List configured launch targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			targets, err := loadTargets(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP\tNAME\tMODE\tPROCESS\tCONNECTION")
			for _, t := range targets.Bases {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", app.GroupBases, t.Name, orDefault(t.Mode, "primary"), orDefault(t.Process, "-"), orDefault(t.Connection, "-"))
			}
			for _, t := range targets.Tools {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", app.GroupTools, t.Name, orDefault(t.Mode, "primary"), orDefault(t.Process, "-"), orDefault(t.Connection, "-"))
			}
			return w.Flush()
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/launchdeck/launchdeck/internal/reporter"
	"github.com/launchdeck/launchdeck/pkg/utils"
)

func newRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently launched targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			db, repo, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if limit <= 0 {
				limit = cfg.Refresh.RecentLimit
			}
			records, err := repo.Recent(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("Nothing launched yet")
				return nil
			}

			now := time.Now()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tMODE\tRUNS\tLAST RUN")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", rec.TargetName, rec.Mode, rec.RunCount, utils.FormatAgo(rec.LastRunAt, now))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries (default: LAUNCHDECK_REFRESH_RECENT_LIMIT)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Summarize launches and failed operations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			db, repo, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			rep := reporter.New(repo)
			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return err
			}

			if jsonOutput {
				out, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}
			fmt.Print(rep.FormatReportText(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func newForgetCmd() *cobra.Command {
	var all, yes bool

	cmd := &cobra.Command{
		Use:   "forget [target]",
		Short: "Remove a target, or everything, from the recent list",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all takes no target")
			}
			if !all && len(args) != 1 {
				return errors.New("a target name or --all is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			db, repo, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if !all {
				n, err := repo.Forget(args[0])
				if err != nil {
					return err
				}
				if n == 0 {
					return errors.Errorf("%s is not in the recent list", args[0])
				}
				fmt.Printf("Forgot %s\n", args[0])
				return nil
			}

			if !yes {
				fmt.Print("This will clear the whole recent list. Are you sure? (yes/no): ")
				var response string
				fmt.Scanln(&response)
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Println("Operation cancelled")
					return nil
				}
			}

			if err := repo.Clear(); err != nil {
				return err
			}
			fmt.Println("Recent list cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "clear the whole list")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/netfleet-ops/netfleet/pkg/audit"
	"github.com/netfleet-ops/netfleet/pkg/cli"
)

func newAuditCmd() *cobra.Command {
	var (
		host     string
		user     string
		runID    string
		last     string
		limit    int
		failures bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded configuration pushes",
		Long: `List the configuration pushes recorded in ~/.netfleet/audit.log and its
rotated backups, oldest first.

Examples:
  netfleet audit --host leaf1
  netfleet audit --last 24h --failures`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := audit.Filter{
				Host:        host,
				User:        user,
				RunID:       runID,
				Limit:       limit,
				FailureOnly: failures,
			}
			if last != "" {
				d, err := time.ParseDuration(last)
				if err != nil {
					return fmt.Errorf("invalid duration: %s", last)
				}
				filter.Since = time.Now().Add(-d)
			}

			events, err := audit.Query(audit.DefaultPath(), filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}

			if jsonOutput {
				return printJSON(events)
			}
			if len(events) == 0 {
				fmt.Println("No audit events found")
				return nil
			}

			t := cli.NewTable("TIMESTAMP", "USER", "HOST", "SESSION", "STATUS", "ERROR")
			for _, e := range events {
				status := cli.Green("ok")
				if !e.Success {
					status = cli.Red("failed")
				} else if e.DryRun {
					status = cli.Yellow("dry-run")
				}
				t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Host, e.Session, status, e.Error)
			}
			t.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "filter by host")
	cmd.Flags().StringVar(&user, "user", "", "filter by user")
	cmd.Flags().StringVar(&runID, "run", "", "filter by run ID")
	cmd.Flags().StringVar(&last, "last", "", "show events from the last duration (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 100, "show at most this many of the most recent events")
	cmd.Flags().BoolVar(&failures, "failures", false, "show only failed pushes")
	addOutputFlags(cmd)
	return cmd
}

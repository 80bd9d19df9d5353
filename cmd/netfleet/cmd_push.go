package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netfleet-ops/netfleet/pkg/audit"
	"github.com/netfleet-ops/netfleet/pkg/cli"
	"github.com/netfleet-ops/netfleet/pkg/fleet"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

func newPushConfigCmd() *cobra.Command {
	var (
		configFile string
		dryRun     bool
		yes        bool
		showDiff   bool
	)
	cmd := &cobra.Command{
		Use:   "push-config",
		Short: "Push configuration to the selected hosts",
		Long: `Apply a configuration file to every selected EOS host through a
configuration session. Pending sessions left on a device are aborted first.

With --dry-run the session diff is computed and the session aborted, so
nothing is committed. Every push is recorded in ~/.netfleet/audit.log.

Examples:
  netfleet -h 'leaf1*' push-config --configfile ntp.cfg --dry-run --diff
  netfleet -h 'leaf1*' push-config --configfile ntp.cfg --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return fmt.Errorf("reading config file: %w", err)
			}
			if strings.TrimSpace(string(data)) == "" {
				return util.NewValidationError(fmt.Sprintf("config file %s is empty", configFile))
			}

			ctx := cmd.Context()
			hosts, err := selectHosts(ctx)
			if err != nil {
				return err
			}
			if !dryRun && !yes {
				if err := confirm(fmt.Sprintf("Push %s to %d host(s)?", configFile, hosts.Len())); err != nil {
					return err
				}
			}
			d, err := newDispatcher()
			if err != nil {
				return err
			}

			logger, err := audit.NewFileLogger(audit.DefaultPath(), audit.Rotation{
				MaxSize:    10 * 1024 * 1024,
				MaxBackups: 10,
			})
			if err != nil {
				util.Warnf("Could not initialize audit logging: %v", err)
			} else {
				defer logger.Close()
				d.Env.Audit = logger
			}

			task := &fleet.PushConfig{Config: string(data), DryRun: dryRun}
			res := fleet.Dispatch(ctx, d, hosts, task, newReporter().start(task.Kind(), hosts))

			printFailures(res.Failures())
			fmt.Println()
			t := cli.NewTable("HOSTNAME", "SESSION", "ABORTED", "STATUS")
			for _, o := range res.Outcomes {
				if !o.OK() {
					continue
				}
				t.Row(o.Host, o.Value.Session, strings.Join(o.Value.Aborted, ","), pushStatus(o.Value, dryRun))
			}
			t.Flush()

			if showDiff {
				for _, o := range res.Outcomes {
					if o.OK() && o.Value.Changed {
						fmt.Printf("\n%s\n%s\n", cli.Bold(o.Host), o.Value.Diff)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configFile, "configfile", "", "configuration file to push")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the diff without committing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print the session diff of every changed host")
	cmd.MarkFlagRequired("configfile")
	return cmd
}

func pushStatus(r fleet.PushResult, dryRun bool) string {
	switch {
	case !r.Changed:
		return cli.Dim("no change")
	case dryRun:
		return cli.Yellow("would change")
	case r.Committed:
		return cli.Green("committed")
	}
	return cli.Red("not committed")
}

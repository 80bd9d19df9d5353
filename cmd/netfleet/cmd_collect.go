package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netfleet-ops/netfleet/pkg/cli"
	"github.com/netfleet-ops/netfleet/pkg/fleet"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

func newLogsCmd() *cobra.Command {
	var last string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Save device logs to <host>.log",
		Long: `Collect the device log for a recent time window from every selected
host. Log collection allows each device up to 10 minutes by default.

Examples:
  netfleet logs --last "2 hours"
  netfleet -h 'spine*' logs --last "30 minutes" --output-dir /tmp/logs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := util.ParseWindow(last)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			hosts, err := selectHosts(ctx)
			if err != nil {
				return err
			}
			d, err := newDispatcher()
			if err != nil {
				return err
			}
			task := &fleet.CollectLogs{Window: window}
			res := fleet.Dispatch(ctx, d, hosts, task, newReporter().start(task.Kind(), hosts))
			printArtifacts(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&last, "last", "1 hours", `time window "<N> <unit>" (days, hours, minutes, seconds)`)
	return cmd
}

func newConfigsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configs",
		Short: "Save running configurations to <host>.cfg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hosts, err := selectHosts(ctx)
			if err != nil {
				return err
			}
			d, err := newDispatcher()
			if err != nil {
				return err
			}
			task := &fleet.CollectConfig{}
			res := fleet.Dispatch(ctx, d, hosts, task, newReporter().start(task.Kind(), hosts))
			printArtifacts(res)
			return nil
		},
	}
}

func printArtifacts(res *fleet.Result[fleet.Artifact]) {
	printFailures(res.Failures())
	artifacts := fleet.Artifacts(res)
	if len(artifacts) == 0 {
		return
	}
	fmt.Println()
	t := cli.NewTable("FILE", "BYTES")
	for _, a := range artifacts {
		t.Row(a.Path, fmt.Sprint(a.Bytes))
	}
	t.Flush()
}

// restrictHosts keeps only hosts named in names, warning about the rest.
func restrictHosts(hosts *inventory.HostSet, names []string) (*inventory.HostSet, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	kept := hosts.Filter(func(h *inventory.Host) bool { return want[h.Name] })
	for _, n := range names {
		if _, ok := hosts.Get(n); !ok {
			util.Warnf("interface file lists %s, which is not in the selected inventory", n)
		}
	}
	if kept.Len() == 0 {
		return nil, fmt.Errorf("%w: no selected host appears in the interface file", util.ErrEmptyInventory)
	}
	return kept, nil
}

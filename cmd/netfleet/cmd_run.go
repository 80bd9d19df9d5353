package main

import (
	"github.com/spf13/cobra"

	"github.com/netfleet-ops/netfleet/pkg/cmdfile"
	"github.com/netfleet-ops/netfleet/pkg/fleet"
)

func newRunCmd() *cobra.Command {
	var commandsFile, interfacesFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run show commands and save the output to <host>.json",
		Long: `Run the commands of a command-definition file on every selected host.

With --interfaces, every command is run once per interface listed for the
host in the CSV file (columns host,interface), substituting $interface. All
commands must then reference $interface; without --interfaces none may.

Examples:
  netfleet run --commands show.yaml
  netfleet run --commands intf.yaml --interfaces uplinks.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds, err := cmdfile.LoadCommands(commandsFile)
			if err != nil {
				return err
			}

			var task fleet.Task[fleet.Artifact] = &fleet.RunCommands{Commands: cmds}
			var table cmdfile.InterfaceTable
			if interfacesFile == "" {
				if err := cmdfile.RejectInterfaceVar(cmds); err != nil {
					return err
				}
			} else {
				if table, err = cmdfile.LoadInterfaces(interfacesFile); err != nil {
					return err
				}
				if task, err = fleet.NewRunInterfaceCommands(cmds, table); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			hosts, err := selectHosts(ctx)
			if err != nil {
				return err
			}
			if table != nil {
				if hosts, err = restrictHosts(hosts, table.Hosts()); err != nil {
					return err
				}
			}
			d, err := newDispatcher()
			if err != nil {
				return err
			}
			res := fleet.Dispatch(ctx, d, hosts, task, newReporter().start(task.Kind(), hosts))
			printArtifacts(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&commandsFile, "commands", "", "command-definition YAML file")
	cmd.Flags().StringVar(&interfacesFile, "interfaces", "", "host/interface CSV file")
	cmd.MarkFlagRequired("commands")
	return cmd
}

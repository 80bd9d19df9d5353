package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/netfleet-ops/netfleet/pkg/cli"
	"github.com/netfleet-ops/netfleet/pkg/fleet"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

func newMACCmd() *cobra.Command {
	var allPorts bool
	cmd := &cobra.Command{
		Use:   "mac <addr>",
		Short: "Locate a MAC address",
		Long: `Find the VLAN and interface where a MAC address is learned on every
selected host. Only physical Ethernet interfaces are reported unless
--all-ports is given.

Examples:
  netfleet mac aa:bb:cc:dd:ee:ff
  netfleet -h 'leaf*' mac aabb.ccdd.eeff --all-ports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := util.NormalizeMAC(args[0])
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

			p := &fleet.Pipeline{Dispatcher: d, AllPorts: allPorts}
			loc := p.LocateMAC(ctx, hosts, mac, newReporter().start(fleet.KindFindMAC, hosts))

			if jsonOutput {
				return printJSON(loc.Ports)
			}
			printFailures(loc.Failures())
			printMACRows(mac, loc.Ports)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&allPorts, "all-ports", "a", false, "include port-channels and other non-physical interfaces")
	addOutputFlags(cmd)
	return cmd
}

func newIPCmd() *cobra.Command {
	var allPorts bool
	cmd := &cobra.Command{
		Use:   "ip <addr>",
		Short: "Locate an IP address",
		Long: `Resolve an IP address to a MAC address from the neighbor tables of the
selected hosts, then locate that MAC across all of them.

When the IP resolves to several MAC addresses, only the first is located.

Examples:
  netfleet ip 10.0.0.5
  netfleet -R -h '^spine' ip 2001:db8::5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := util.ParseIP(args[0])
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

			r := newReporter()
			p := &fleet.Pipeline{Dispatcher: d, Select: fleet.FirstMAC, AllPorts: allPorts}
			progress := r.start(fleet.KindFindIP, hosts)
			loc := p.LocateIP(ctx, hosts, addr.String(), func(pr fleet.Progress) {
				// the second round announces itself on its first host
				if pr.Kind == fleet.KindFindMAC && pr.Done == 1 {
					progress = r.start(fleet.KindFindMAC, hosts)
				}
				progress(pr)
			})

			if jsonOutput {
				return printJSON(struct {
					IP        string         `json:"ip"`
					MAC       string         `json:"macaddr,omitempty"`
					Neighbors []fleet.IPRow  `json:"neighbors"`
					Ports     []fleet.MACRow `json:"ports"`
				}{addr.String(), loc.MAC, loc.Neighbors, loc.Ports})
			}

			printFailures(loc.Failures())
			if len(loc.Neighbors) == 0 {
				fmt.Printf("\nNo neighbor entry found for %s\n", addr)
				return nil
			}
			fmt.Println()
			t := cli.NewTable("HOSTNAME", "MACADDR", "INTERFACE")
			for _, row := range loc.Neighbors {
				t.Row(row.Hostname, row.MAC, row.Interface)
			}
			t.Flush()
			printMACRows(loc.MAC, loc.Ports)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&allPorts, "all-ports", "a", false, "include port-channels and other non-physical interfaces")
	addOutputFlags(cmd)
	return cmd
}

func printMACRows(mac string, rows []fleet.MACRow) {
	fmt.Println()
	if len(rows) == 0 {
		fmt.Printf("No matches found for %s\n", mac)
		return
	}
	t := cli.NewTable("HOSTNAME", "VLAN", "INTERFACE")
	for _, row := range rows {
		t.Row(row.Hostname, strconv.Itoa(row.VLAN), row.Interface)
	}
	t.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

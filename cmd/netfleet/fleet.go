package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/netfleet-ops/netfleet/pkg/cli"
	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/fleet"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

// cvpInventory selects the CloudVision inventory provider.
const cvpInventory = "cvp"

// inventoryProvider resolves the inventory from: --inventory flag >
// NETFLEET_INVENTORY env > settings > error.
func inventoryProvider() (inventory.Provider, error) {
	src := inventoryPath
	if src == "" {
		src = os.Getenv("NETFLEET_INVENTORY")
	}
	if src == "" {
		src = userSettings.Inventory
	}
	switch src {
	case "":
		return nil, util.NewValidationError("inventory required: use --inventory <file|cvp>, set NETFLEET_INVENTORY, or run 'netfleet settings set inventory <file>'")
	case cvpInventory:
		return inventory.NewCVPProviderFromEnv()
	default:
		return inventory.NewFileProvider(src), nil
	}
}

// selectHosts applies the --hostname pattern and --group filter to the
// inventory. Pattern errors are reported before the inventory is contacted.
func selectHosts(ctx context.Context) (*inventory.HostSet, error) {
	match, err := util.NewMatcher("--hostname", hostPattern, useRegex)
	if err != nil {
		return nil, err
	}
	provider, err := inventoryProvider()
	if err != nil {
		return nil, err
	}
	return inventory.Select(ctx, provider, match, hostGroups...)
}

// credentials resolves the device login from NETFLEET_USER /
// NETFLEET_PASSWORD, falling back to settings and an interactive prompt.
func credentials() (device.Credentials, error) {
	creds := device.Credentials{
		Username: os.Getenv("NETFLEET_USER"),
		Password: os.Getenv("NETFLEET_PASSWORD"),
	}
	if creds.Username == "" {
		creds.Username = userSettings.Username
	}

	fd := int(os.Stdin.Fd())
	interactive := term.IsTerminal(fd)
	if creds.Username == "" {
		if !interactive {
			return creds, fmt.Errorf("%w: NETFLEET_USER is not set", util.ErrMissingCredential)
		}
		fmt.Fprint(os.Stderr, "Username: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return creds, err
		}
		creds.Username = strings.TrimSpace(line)
	}
	if creds.Password == "" {
		if !interactive {
			return creds, fmt.Errorf("%w: NETFLEET_PASSWORD is not set", util.ErrMissingCredential)
		}
		fmt.Fprintf(os.Stderr, "Password for %s: ", creds.Username)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return creds, fmt.Errorf("reading password: %w", err)
		}
		creds.Password = string(pw)
	}
	if creds.Username == "" {
		return creds, fmt.Errorf("%w: empty username", util.ErrMissingCredential)
	}
	return creds, nil
}

// newDispatcher wires settings, flags and credentials into a Dispatcher.
func newDispatcher() (*fleet.Dispatcher, error) {
	creds, err := credentials()
	if err != nil {
		return nil, err
	}
	conn := device.NewSSHConnector(creds)
	conn.KnownHosts = userSettings.KnownHosts

	env := fleet.NewEnv(userSettings, creds.Username)
	env.RunID = uuid.NewString()
	if outputDir != "" {
		env.OutputDir = outputDir
	}

	n := workers
	if n <= 0 {
		n = userSettings.GetWorkers()
	}
	return &fleet.Dispatcher{Connector: conn, Env: env, Workers: n}, nil
}

// reporter adapts console progress to the dispatcher callback.
type reporter struct {
	*cli.Progress
}

func newReporter() *reporter {
	return &reporter{Progress: cli.NewProgress(verbose)}
}

func (r *reporter) start(kind fleet.Kind, hosts *inventory.HostSet) fleet.ProgressFunc {
	r.Start(string(kind), hosts.Names())
	return func(p fleet.Progress) {
		var err error
		if p.Err != nil {
			err = p.Err
		}
		r.Host(p.Host, p.Done, p.Total, err)
		if p.Done == p.Total {
			r.End(p.Total)
		}
	}
}

// confirm asks a yes/no question on the terminal. Declining, or having no
// terminal to ask on, aborts the program.
func confirm(question string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: confirmation required (use --yes)", util.ErrUserAbort)
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return util.ErrUserAbort
}

// printFailures renders the post-round error table.
func printFailures(failures []*fleet.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(cli.Red(fmt.Sprintf("%d host(s) failed:", len(failures))))
	t := cli.NewTable("HOSTNAME", "OPERATION", "ERROR")
	for _, f := range failures {
		t.Row(f.Host, string(f.Kind), f.Reason)
	}
	t.Flush()
}

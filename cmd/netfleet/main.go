// netfleet runs operational tasks against a fleet of network devices.
//
// Every command selects hosts from the inventory, runs one task on all of
// them concurrently and reports per-host results:
//
//	netfleet mac <addr>                         Locate a MAC address
//	netfleet ip <addr>                          Locate an IP address (IP -> MAC -> port)
//	netfleet logs --last "2 hours"              Save device logs to <host>.log
//	netfleet configs                            Save running configs to <host>.cfg
//	netfleet run --commands <file>              Save show command output to <host>.json
//	netfleet push-config --configfile <file>    Push configuration through a session
//
// Hosts are selected with -h <pattern> (glob, or regex with -R) and
// narrowed to inventory groups with -g <group>.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/netfleet-ops/netfleet/pkg/cli"
	"github.com/netfleet-ops/netfleet/pkg/settings"
	"github.com/netfleet-ops/netfleet/pkg/util"
	"github.com/netfleet-ops/netfleet/pkg/version"
)

var (
	hostPattern   string
	hostGroups    []string
	useRegex      bool
	logFile       string
	logLevel      string
	logJSON       bool
	inventoryPath string
	workers       int
	outputDir     string
	verbose       bool
	jsonOutput    bool

	userSettings *settings.Settings
	logCloser    io.Closer
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		if errors.Is(err, util.ErrUserAbort) {
			fmt.Fprintln(os.Stderr, cli.Yellow(err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "netfleet",
	Short:             "Run operational tasks across a fleet of network devices",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `netfleet runs one task concurrently against every device selected from
the inventory and reports per-device results. A failure on one device never
stops the others.

  netfleet -h 'leaf*' mac aa:bb:cc:dd:ee:ff`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		level := logLevel
		if verbose {
			level = "debug"
		}
		if err := util.SetLogLevel(level); err != nil {
			return util.NewValidationError(fmt.Sprintf("--log-level %q: %v", logLevel, err))
		}
		if logFile != "" {
			if logCloser, err = util.SetLogFile(logFile); err != nil {
				return err
			}
		}
		if logJSON {
			util.SetJSONFormat()
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&hostPattern, "hostname", "h", "", "host name pattern (glob, or regex with -R)")
	pf.BoolVarP(&useRegex, "use-regex", "R", false, "treat --hostname as a regular expression")
	pf.StringSliceVarP(&hostGroups, "group", "g", nil, "only hosts in one of these inventory groups")
	pf.StringVar(&logFile, "log", "", "write log output to this file")
	pf.StringVar(&logLevel, "log-level", "warning", "log level (debug, info, warning, error)")
	pf.BoolVar(&logJSON, "log-json", false, "write log records as JSON")
	pf.StringVar(&inventoryPath, "inventory", "", `inventory YAML file, or "cvp" for CloudVision`)
	pf.IntVar(&workers, "workers", 0, "maximum hosts processed concurrently (default 100)")
	pf.StringVar(&outputDir, "output-dir", "", "directory for per-host files (default .)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	// -h selects hosts, so help is --help only
	pf.Bool("help", false, "help for netfleet")

	rootCmd.AddCommand(
		newMACCmd(),
		newIPCmd(),
		newLogsCmd(),
		newConfigsCmd(),
		newRunCmd(),
		newPushConfigCmd(),
		newAuditCmd(),
		newSettingsCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Version == "dev" {
				fmt.Println("netfleet dev build (use 'make build' for version info)")
			} else {
				fmt.Printf("netfleet %s\n", version.Info())
			}
		},
	}
}

// addOutputFlags registers --json on commands that print result rows.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netfleet-ops/netfleet/pkg/cli"
	"github.com/netfleet-ops/netfleet/pkg/settings"
)

// setting binds a user-facing name to a Settings field.
type setting struct {
	name string
	get  func(*settings.Settings) string
	set  func(*settings.Settings, string) error
}

func intSetting(dst func(*settings.Settings) *int) func(*settings.Settings, string) error {
	return func(s *settings.Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid number: %s", v)
		}
		*dst(s) = n
		return nil
	}
}

func intString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

var settingsTable = []setting{
	{"inventory",
		func(s *settings.Settings) string { return s.Inventory },
		func(s *settings.Settings, v string) error { s.Inventory = v; return nil }},
	{"workers",
		func(s *settings.Settings) string { return intString(s.Workers) },
		intSetting(func(s *settings.Settings) *int { return &s.Workers })},
	{"output_dir",
		func(s *settings.Settings) string { return s.OutputDir },
		func(s *settings.Settings, v string) error { s.OutputDir = v; return nil }},
	{"username",
		func(s *settings.Settings) string { return s.Username },
		func(s *settings.Settings, v string) error { s.Username = v; return nil }},
	{"command_timeout_sec",
		func(s *settings.Settings) string { return intString(s.CommandTimeoutSec) },
		intSetting(func(s *settings.Settings) *int { return &s.CommandTimeoutSec })},
	{"log_timeout_sec",
		func(s *settings.Settings) string { return intString(s.LogTimeoutSec) },
		intSetting(func(s *settings.Settings) *int { return &s.LogTimeoutSec })},
	{"physical_prefix",
		func(s *settings.Settings) string { return s.PhysicalPrefix },
		func(s *settings.Settings, v string) error { s.PhysicalPrefix = v; return nil }},
	{"known_hosts",
		func(s *settings.Settings) string { return s.KnownHosts },
		func(s *settings.Settings, v string) error { s.KnownHosts = v; return nil }},
}

func lookupSetting(name string) (setting, error) {
	var names []string
	for _, s := range settingsTable {
		if s.name == name {
			return s, nil
		}
		names = append(names, s.name)
	}
	return setting{}, fmt.Errorf("unknown setting: %s (valid: %s)", name, strings.Join(names, ", "))
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.netfleet/settings.json.

Examples:
  netfleet settings show
  netfleet settings set inventory ~/fleet.yaml
  netfleet settings set workers 50
  netfleet settings clear`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())
				t := cli.NewTable("SETTING", "VALUE")
				for _, s := range settingsTable {
					value := s.get(userSettings)
					if value == "" {
						value = "(not set)"
					}
					t.Row(s.name, value)
				}
				t.Flush()
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <setting> <value>",
			Short: "Set a setting value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := lookupSetting(args[0])
				if err != nil {
					return err
				}
				if err := s.set(userSettings, args[1]); err != nil {
					return err
				}
				if err := userSettings.Save(); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				fmt.Printf("%s set to: %s\n", s.name, args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <setting>",
			Short: "Get a setting value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := lookupSetting(args[0])
				if err != nil {
					return err
				}
				if v := s.get(userSettings); v != "" {
					fmt.Println(v)
				} else {
					fmt.Println("(not set)")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear all settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				userSettings.Clear()
				if err := userSettings.Save(); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				fmt.Println("All settings cleared.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show settings file path",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(settings.DefaultSettingsPath())
			},
		},
	)
	return cmd
}

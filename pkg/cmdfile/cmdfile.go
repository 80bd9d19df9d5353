// Package cmdfile loads the operator-supplied command definitions and the
// host/interface table used by interface-scoped commands.
package cmdfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

// InterfaceVar is the placeholder substituted with an interface name.
const InterfaceVar = "$interface"

// Command is one named command definition. A command file is a YAML list
// of them:
//
//	commands.yaml:
//	  - name: counters
//	    command: show interfaces $interface counters
//	    encoding: json
type Command struct {
	Name     string          `yaml:"name"`
	Command  string          `yaml:"command"`
	Encoding device.Encoding `yaml:"encoding,omitempty"`
}

// HasInterfaceVar reports whether the command template references the
// interface placeholder.
func (c Command) HasInterfaceVar() bool {
	return strings.Contains(c.Command, InterfaceVar) || strings.Contains(c.Command, "${interface}")
}

// Expand returns the command with the interface placeholder replaced.
func (c Command) Expand(iface string) string {
	r := strings.NewReplacer("${interface}", iface, InterfaceVar, iface)
	return r.Replace(c.Command)
}

// LoadCommands reads and validates a command-definition file.
func LoadCommands(path string) ([]Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading command file: %w", err)
	}
	cmds, err := ParseCommands(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// ParseCommands decodes and validates command definitions. Names must be
// unique; encoding defaults to json.
func ParseCommands(data []byte) ([]Command, error) {
	var cmds []Command
	if err := yaml.Unmarshal(data, &cmds); err != nil {
		return nil, fmt.Errorf("parsing command file: %w", err)
	}

	v := &util.ValidationBuilder{}
	v.Add(len(cmds) > 0, "command file defines no commands")
	seen := make(map[string]bool, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		if c.Encoding == "" {
			c.Encoding = device.EncodingJSON
		}
		switch {
		case c.Name == "":
			v.AddErrorf("command #%d has no name", i+1)
		case seen[c.Name]:
			v.AddErrorf("duplicate command name %q", c.Name)
		}
		seen[c.Name] = true
		v.Add(strings.TrimSpace(c.Command) != "", fmt.Sprintf("command %q is empty", c.Name))
		v.Add(c.Encoding.Valid(), fmt.Sprintf("command %q: encoding %q must be json or text", c.Name, c.Encoding))
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	return cmds, nil
}

// RequireInterfaceVar fails when any command template lacks the interface
// placeholder. Interface-scoped runs call it before contacting any device.
func RequireInterfaceVar(cmds []Command) error {
	v := &util.ValidationBuilder{}
	for _, c := range cmds {
		v.Add(c.HasInterfaceVar(), fmt.Sprintf("command %q does not reference %s", c.Name, InterfaceVar))
	}
	return v.Build()
}

// RejectInterfaceVar fails when any command template references the
// interface placeholder. Runs without an interface file call it so a
// template is never sent to a device unexpanded.
func RejectInterfaceVar(cmds []Command) error {
	v := &util.ValidationBuilder{}
	for _, c := range cmds {
		v.Add(!c.HasInterfaceVar(), fmt.Sprintf("command %q references %s but no --interfaces file was given", c.Name, InterfaceVar))
	}
	return v.Build()
}

package fleet

import (
	"context"
	"fmt"

	"github.com/netfleet-ops/netfleet/pkg/cmdfile"
	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
)

// RunCommands runs a list of show commands and saves the outputs, keyed by
// command name, to <host>.json.
type RunCommands struct {
	Commands []cmdfile.Command
}

func (t *RunCommands) Kind() Kind { return KindRunShow }

func (t *RunCommands) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) (Artifact, error) {
	doc, err := runCommands(ctx, env, conn, t.Commands, "")
	if err != nil {
		return Artifact{}, err
	}
	return writeJSONArtifact(env, host.Name, doc)
}

// RunInterfaceCommands runs every command template once per interface
// listed for the host and saves the outputs to <host>.json, keyed by
// interface and then command name.
type RunInterfaceCommands struct {
	Commands   []cmdfile.Command
	Interfaces cmdfile.InterfaceTable
}

// NewRunInterfaceCommands validates that every template references the
// interface placeholder.
func NewRunInterfaceCommands(cmds []cmdfile.Command, interfaces cmdfile.InterfaceTable) (*RunInterfaceCommands, error) {
	if err := cmdfile.RequireInterfaceVar(cmds); err != nil {
		return nil, err
	}
	return &RunInterfaceCommands{Commands: cmds, Interfaces: interfaces}, nil
}

func (t *RunInterfaceCommands) Kind() Kind { return KindRunInterface }

func (t *RunInterfaceCommands) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) (Artifact, error) {
	ifaces := t.Interfaces[host.Name]
	if len(ifaces) == 0 {
		return Artifact{}, fmt.Errorf("no interfaces listed for %s", host.Name)
	}
	doc := make(map[string]map[string]any, len(ifaces))
	for _, iface := range ifaces {
		out, err := runCommands(ctx, env, conn, t.Commands, iface)
		if err != nil {
			return Artifact{}, fmt.Errorf("%s: %w", iface, err)
		}
		doc[iface] = out
	}
	return writeJSONArtifact(env, host.Name, doc)
}

// runCommands runs cmds in order, expanding the interface placeholder when
// iface is set.
func runCommands(ctx context.Context, env *Env, conn device.Conn, cmds []cmdfile.Command, iface string) (map[string]any, error) {
	doc := make(map[string]any, len(cmds))
	for _, c := range cmds {
		line := c.Command
		if iface != "" {
			line = c.Expand(iface)
		}
		out, err := runWithTimeout(ctx, env, conn, c.Encoding, line)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", c.Name, err)
		}
		doc[c.Name] = out.Value()
	}
	return doc, nil
}

func runWithTimeout(ctx context.Context, env *Env, conn device.Conn, enc device.Encoding, cmd string) (device.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, env.commandTimeout())
	defer cancel()
	if enc == "" {
		enc = device.EncodingJSON
	}
	return device.RunOne(ctx, conn, enc, cmd)
}

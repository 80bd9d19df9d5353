// Package device opens connections to network devices and runs CLI
// commands on them. Arista EOS and SONiC devices are reached over SSH;
// SONiC devices additionally expose STATE_DB through an SSH-tunnelled
// redis client.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/netfleet-ops/netfleet/pkg/inventory"
)

// Encoding selects how command output is returned.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingText Encoding = "text"
)

// Valid reports whether e is a known encoding
func (e Encoding) Valid() bool {
	return e == EncodingJSON || e == EncodingText
}

// ErrUnsupported is returned by operations a platform cannot perform.
var ErrUnsupported = errors.New("operation not supported on this platform")

// Output is the result of one command. Data is set for JSON-encoded
// commands, Text for text-encoded ones.
type Output struct {
	Command string
	Text    string
	Data    map[string]any
}

// Value returns the structured output when present, otherwise the text.
func (o Output) Value() any {
	if o.Data != nil {
		return o.Data
	}
	return o.Text
}

// Decode unmarshals the structured output into v.
func (o Output) Decode(v any) error {
	if o.Data == nil {
		return fmt.Errorf("command %q returned no structured output", o.Command)
	}
	data, err := json.Marshal(o.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Conn is a connection to one device. A Conn is owned by a single worker
// and is never shared between goroutines.
type Conn interface {
	// Run executes the commands in order and returns one Output per command.
	// Execution stops at the first failing command.
	Run(ctx context.Context, enc Encoding, cmds ...string) ([]Output, error)

	// Configure stages lines into the named configuration session without
	// committing it.
	Configure(ctx context.Context, session string, lines []string) error

	Close() error
}

// Connector opens connections to hosts.
type Connector interface {
	Connect(ctx context.Context, host *inventory.Host) (Conn, error)
}

// FDBEntry is one MAC forwarding table entry.
type FDBEntry struct {
	VLAN      int
	MAC       string
	Interface string
	Type      string
}

// NeighEntry is one ARP/NDP neighbor entry.
type NeighEntry struct {
	IP        string
	MAC       string
	Interface string
	Family    string
}

// StateReader is implemented by connections that can read forwarding and
// neighbor state directly instead of through CLI commands.
type StateReader interface {
	FDBEntries(ctx context.Context, mac string) ([]FDBEntry, error)
	NeighEntries(ctx context.Context, ip string) ([]NeighEntry, error)
}

// RunOne runs a single command and returns its output.
func RunOne(ctx context.Context, conn Conn, enc Encoding, cmd string) (Output, error) {
	out, err := conn.Run(ctx, enc, cmd)
	if err != nil {
		return Output{}, err
	}
	if len(out) != 1 {
		return Output{}, fmt.Errorf("command %q: expected 1 result, got %d", cmd, len(out))
	}
	return out[0], nil
}

// Package testutil provides fake devices for unit tests and Redis helpers
// for integration tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
)

// FakeDevice scripts the responses of one device. Commands without a
// scripted response fail.
type FakeDevice struct {
	JSON   map[string]map[string]any
	Text   map[string]string
	Errors map[string]error
	// Fallback answers commands with no scripted response.
	Fallback func(enc device.Encoding, cmd string) (device.Output, error)

	// ConnectErr fails Connect; ConfigureErr fails Configure.
	ConnectErr   error
	ConfigureErr error
	// Panic makes every Run panic with this value.
	Panic any
	// Delay is slept before each Run.
	Delay time.Duration

	// FDB and Neigh, when non-nil, make the connection a StateReader.
	FDB   []device.FDBEntry
	Neigh []device.NeighEntry

	mu         sync.Mutex
	commands   []string
	configured map[string][]string
	closed     int
}

// Commands returns the commands run so far, in order.
func (d *FakeDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Configured returns the lines staged into a session.
func (d *FakeDevice) Configured(session string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured[session]
}

// Closed returns how many connections to the device were closed.
func (d *FakeDevice) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// FakeConnector hands out connections to FakeDevices by host name.
type FakeConnector struct {
	Devices map[string]*FakeDevice

	active    atomic.Int32
	maxActive atomic.Int32
	connects  atomic.Int32
}

// NewFakeConnector returns a connector serving devices.
func NewFakeConnector(devices map[string]*FakeDevice) *FakeConnector {
	return &FakeConnector{Devices: devices}
}

// MaxConcurrent returns the highest number of simultaneously open
// connections observed.
func (c *FakeConnector) MaxConcurrent() int { return int(c.maxActive.Load()) }

// Connects returns the number of Connect calls.
func (c *FakeConnector) Connects() int { return int(c.connects.Load()) }

func (c *FakeConnector) Connect(ctx context.Context, host *inventory.Host) (device.Conn, error) {
	c.connects.Add(1)
	d, ok := c.Devices[host.Name]
	if !ok {
		return nil, fmt.Errorf("no route to host %s", host.Name)
	}
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}

	n := c.active.Add(1)
	for {
		m := c.maxActive.Load()
		if n <= m || c.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	conn := &fakeConn{dev: d, owner: c}
	if d.FDB != nil || d.Neigh != nil {
		return &fakeStateConn{fakeConn: conn}, nil
	}
	return conn, nil
}

type fakeConn struct {
	dev    *FakeDevice
	owner  *FakeConnector
	closed bool
}

func (c *fakeConn) Run(ctx context.Context, enc device.Encoding, cmds ...string) ([]device.Output, error) {
	d := c.dev
	if d.Panic != nil {
		panic(d.Panic)
	}
	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var outs []device.Output
	for _, cmd := range cmds {
		d.mu.Lock()
		d.commands = append(d.commands, cmd)
		d.mu.Unlock()

		if err, ok := d.Errors[cmd]; ok {
			return outs, err
		}
		out, err := d.respond(enc, cmd)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (d *FakeDevice) respond(enc device.Encoding, cmd string) (device.Output, error) {
	out := device.Output{Command: cmd}
	if enc == device.EncodingJSON {
		if data, ok := d.JSON[cmd]; ok {
			out.Data = data
			return out, nil
		}
	} else if text, ok := d.Text[cmd]; ok {
		out.Text = text
		return out, nil
	}
	if d.Fallback != nil {
		return d.Fallback(enc, cmd)
	}
	return out, fmt.Errorf("%% Invalid input: %s", cmd)
}

func (c *fakeConn) Configure(ctx context.Context, session string, lines []string) error {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, "configure session "+session)
	if d.ConfigureErr != nil {
		return d.ConfigureErr
	}
	if d.configured == nil {
		d.configured = make(map[string][]string)
	}
	d.configured[session] = append([]string(nil), lines...)
	return nil
}

func (c *fakeConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.owner.active.Add(-1)
	c.dev.mu.Lock()
	c.dev.closed++
	c.dev.mu.Unlock()
	return nil
}

type fakeStateConn struct {
	*fakeConn
}

func (c *fakeStateConn) FDBEntries(ctx context.Context, mac string) ([]device.FDBEntry, error) {
	var out []device.FDBEntry
	for _, e := range c.dev.FDB {
		if e.MAC == mac {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *fakeStateConn) NeighEntries(ctx context.Context, ip string) ([]device.NeighEntry, error) {
	var out []device.NeighEntry
	for _, e := range c.dev.Neigh {
		if e.IP == ip {
			out = append(out, e)
		}
	}
	return out, nil
}

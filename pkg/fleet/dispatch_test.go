package fleet

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/netfleet-ops/netfleet/internal/testutil"
	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
)

// versionTask returns the text of "show version".
type versionTask struct{}

func (versionTask) Kind() Kind { return "version" }

func (versionTask) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) (string, error) {
	out, err := device.RunOne(ctx, conn, device.EncodingText, "show version")
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func hostSet(names ...string) *inventory.HostSet {
	hosts := make([]*inventory.Host, 0, len(names))
	for _, n := range names {
		hosts = append(hosts, &inventory.Host{Name: n})
	}
	return inventory.NewHostSet(hosts)
}

func versionDevice(v string) *testutil.FakeDevice {
	return &testutil.FakeDevice{Text: map[string]string{"show version": v}}
}

func newDispatcher(devices map[string]*testutil.FakeDevice, workers int) (*Dispatcher, *testutil.FakeConnector) {
	conn := testutil.NewFakeConnector(devices)
	return &Dispatcher{Connector: conn, Env: &Env{}, Workers: workers}, conn
}

func TestDispatchOneOutcomePerHost(t *testing.T) {
	devices := map[string]*testutil.FakeDevice{
		"h1": versionDevice("4.30"),
		"h2": {ConnectErr: errors.New("connection refused")},
		"h3": {Errors: map[string]error{"show version": errors.New("% timeout")}},
		"h4": {Panic: "driver bug"},
		"h5": versionDevice("4.31"),
		// h6 is missing from the connector
	}
	d, _ := newDispatcher(devices, 0)
	hosts := hostSet("h1", "h2", "h3", "h4", "h5", "h6")

	var calls []Progress
	res := Dispatch(context.Background(), d, hosts, versionTask{}, func(p Progress) {
		calls = append(calls, p)
	})

	if res.Len() != hosts.Len() {
		t.Fatalf("Len() = %d, want %d", res.Len(), hosts.Len())
	}
	if len(calls) != hosts.Len() {
		t.Fatalf("progress called %d times, want %d", len(calls), hosts.Len())
	}
	for i, p := range calls {
		if p.Done != i+1 || p.Total != hosts.Len() {
			t.Errorf("progress[%d] = %d/%d", i, p.Done, p.Total)
		}
	}

	for _, name := range hosts.Names() {
		if _, ok := res.Get(name); !ok {
			t.Errorf("no outcome for %s", name)
		}
	}

	tests := []struct {
		host  string
		ok    bool
		value string
	}{
		{"h1", true, "4.30"},
		{"h2", false, ""},
		{"h3", false, ""},
		{"h4", false, ""},
		{"h5", true, "4.31"},
		{"h6", false, ""},
	}
	for _, tt := range tests {
		o, _ := res.Get(tt.host)
		if o.OK() != tt.ok {
			t.Errorf("%s: OK() = %v, want %v (err %v)", tt.host, o.OK(), tt.ok, o.Err)
			continue
		}
		if tt.ok && o.Value != tt.value {
			t.Errorf("%s: Value = %q, want %q", tt.host, o.Value, tt.value)
		}
		if !tt.ok && (o.Err.Host != tt.host || o.Err.Kind != "version" || o.Err.Fatal) {
			t.Errorf("%s: Failure = %+v", tt.host, o.Err)
		}
	}
	if got := len(res.Failures()); got != 4 {
		t.Errorf("Failures() = %d, want 4", got)
	}
	if got := res.Succeeded(); got != 2 {
		t.Errorf("Succeeded() = %d, want 2", got)
	}
}

func TestDispatchRecoversPanicAndClosesConn(t *testing.T) {
	dev := &testutil.FakeDevice{Panic: "boom"}
	d, _ := newDispatcher(map[string]*testutil.FakeDevice{"h1": dev}, 1)

	res := Dispatch(context.Background(), d, hostSet("h1"), versionTask{}, nil)

	o, _ := res.Get("h1")
	if o.OK() {
		t.Fatal("expected failure")
	}
	if o.Err.Reason != "panic: boom" {
		t.Errorf("Reason = %q", o.Err.Reason)
	}
	if dev.Closed() != 1 {
		t.Errorf("Closed() = %d, want 1", dev.Closed())
	}
}

func TestDispatchWorkerCap(t *testing.T) {
	devices := make(map[string]*testutil.FakeDevice)
	var names []string
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("leaf%02d", i)
		names = append(names, name)
		dev := versionDevice("4.30")
		dev.Delay = 20 * time.Millisecond
		devices[name] = dev
	}
	d, conn := newDispatcher(devices, 3)

	res := Dispatch(context.Background(), d, hostSet(names...), versionTask{}, nil)

	if res.Succeeded() != len(names) {
		t.Fatalf("Succeeded() = %d, want %d", res.Succeeded(), len(names))
	}
	if got := conn.MaxConcurrent(); got < 1 || got > 3 {
		t.Errorf("MaxConcurrent() = %d, want 1..3", got)
	}
	for name, dev := range devices {
		if dev.Closed() != 1 {
			t.Errorf("%s: Closed() = %d, want 1", name, dev.Closed())
		}
	}
}

func TestDispatchPoolSize(t *testing.T) {
	tests := []struct {
		workers, hosts, want int
	}{
		{0, 5, 5},
		{0, 500, 100},
		{3, 5, 3},
		{10, 2, 2},
	}
	for _, tt := range tests {
		d := &Dispatcher{Workers: tt.workers}
		if got := d.poolSize(tt.hosts); got != tt.want {
			t.Errorf("poolSize(workers=%d, hosts=%d) = %d, want %d", tt.workers, tt.hosts, got, tt.want)
		}
	}
}

func TestDispatchCancelledMarksFatal(t *testing.T) {
	d, conn := newDispatcher(map[string]*testutil.FakeDevice{
		"h1": versionDevice("4.30"),
		"h2": versionDevice("4.30"),
	}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Dispatch(ctx, d, hostSet("h1", "h2"), versionTask{}, nil)

	if res.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", res.Len())
	}
	for _, f := range res.Failures() {
		if !f.Fatal || !errors.Is(f, context.Canceled) {
			t.Errorf("%s: Failure = %+v", f.Host, f)
		}
	}
	if conn.Connects() != 0 {
		t.Errorf("Connects() = %d, want 0", conn.Connects())
	}
}

func TestDispatchEmptyHostSet(t *testing.T) {
	d, _ := newDispatcher(nil, 0)
	calls := 0
	res := Dispatch(context.Background(), d, hostSet(), versionTask{}, func(Progress) { calls++ })
	if res.Len() != 0 || calls != 0 {
		t.Errorf("Len() = %d, calls = %d", res.Len(), calls)
	}
}

func TestDispatchArrivalOrder(t *testing.T) {
	slow := versionDevice("slow")
	slow.Delay = 50 * time.Millisecond
	d, _ := newDispatcher(map[string]*testutil.FakeDevice{
		"a-slow": slow,
		"b-fast": versionDevice("fast"),
	}, 2)

	res := Dispatch(context.Background(), d, hostSet("a-slow", "b-fast"), versionTask{}, nil)

	var order []string
	for _, o := range res.Outcomes {
		order = append(order, o.Host)
	}
	if len(order) != 2 || order[0] != "b-fast" {
		t.Errorf("arrival order = %v, want [b-fast a-slow]", order)
	}
}

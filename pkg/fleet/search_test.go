package fleet

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/netfleet-ops/netfleet/internal/testutil"
)

const (
	testIP  = "10.0.0.5"
	testMAC = "aa:bb:cc:dd:ee:ff"
)

func arpReply(neighbors ...map[string]any) map[string]any {
	list := make([]any, 0, len(neighbors))
	for _, n := range neighbors {
		list = append(list, n)
	}
	return map[string]any{"ipV4Neighbors": list}
}

func macReply(entries ...map[string]any) map[string]any {
	list := make([]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	return map[string]any{"unicastTable": map[string]any{"tableEntries": list}}
}

func macEntry(vlan int, iface string) map[string]any {
	return map[string]any{"vlanId": vlan, "interface": iface, "macAddress": "aabb.ccdd.eeff", "entryType": "dynamic"}
}

func searchDevice(arp, mac map[string]any) *testutil.FakeDevice {
	return &testutil.FakeDevice{JSON: map[string]map[string]any{
		"show ip arp " + testIP:                     arp,
		"show mac address-table address " + testMAC: mac,
	}}
}

// scenarioFleet: only h2 knows the IP, and the MAC is learned on h2 only.
func scenarioFleet() map[string]*testutil.FakeDevice {
	return map[string]*testutil.FakeDevice{
		"h1": searchDevice(arpReply(), macReply()),
		"h2": searchDevice(
			arpReply(map[string]any{"address": testIP, "hwAddress": "aabb.ccdd.eeff", "interface": "Eth1"}),
			macReply(macEntry(10, "Eth1")),
		),
		"h3": searchDevice(arpReply(), macReply()),
	}
}

func TestLocateIP(t *testing.T) {
	d, _ := newDispatcher(scenarioFleet(), 0)
	p := &Pipeline{Dispatcher: d}

	progress := 0
	loc := p.LocateIP(context.Background(), hostSet("h1", "h2", "h3"), testIP, func(Progress) { progress++ })

	wantNeighbors := []IPRow{{Hostname: "h2", MAC: testMAC, Interface: "Eth1"}}
	if !reflect.DeepEqual(loc.Neighbors, wantNeighbors) {
		t.Errorf("Neighbors = %+v, want %+v", loc.Neighbors, wantNeighbors)
	}
	if loc.MAC != testMAC {
		t.Errorf("MAC = %q, want %q", loc.MAC, testMAC)
	}
	wantPorts := []MACRow{{Hostname: "h2", VLAN: 10, Interface: "Eth1"}}
	if !reflect.DeepEqual(loc.Ports, wantPorts) {
		t.Errorf("Ports = %+v, want %+v", loc.Ports, wantPorts)
	}
	if loc.MACResult == nil || loc.MACResult.Len() != 3 {
		t.Errorf("round 2 should cover every host")
	}
	if progress != 6 {
		t.Errorf("progress called %d times, want 6", progress)
	}
	if !loc.Found() || len(loc.Failures()) != 0 {
		t.Errorf("Found() = %v, Failures() = %v", loc.Found(), loc.Failures())
	}
}

func TestLocateIPNoNeighborSkipsSecondRound(t *testing.T) {
	devices := map[string]*testutil.FakeDevice{
		"h1": searchDevice(arpReply(), macReply(macEntry(10, "Eth1"))),
		"h2": {ConnectErr: errors.New("unreachable")},
	}
	d, _ := newDispatcher(devices, 0)
	p := &Pipeline{Dispatcher: d}

	loc := p.LocateIP(context.Background(), hostSet("h1", "h2"), testIP, nil)

	if loc.MAC != "" || loc.Ports != nil || loc.MACResult != nil {
		t.Errorf("second round ran: %+v", loc)
	}
	for _, cmd := range devices["h1"].Commands() {
		if strings.HasPrefix(cmd, "show mac") {
			t.Errorf("unexpected command %q", cmd)
		}
	}
	if len(loc.Failures()) != 1 {
		t.Errorf("Failures() = %d, want 1", len(loc.Failures()))
	}
}

func TestLocateIPSelector(t *testing.T) {
	const other = "11:22:33:44:55:66"
	devices := scenarioFleet()
	devices["h1"] = searchDevice(
		arpReply(map[string]any{"address": testIP, "hwAddress": other, "interface": "Vlan10"}),
		macReply(),
	)
	devices["h1"].JSON["show mac address-table address "+other] = macReply()
	devices["h2"].JSON["show mac address-table address "+other] = macReply()
	devices["h3"].JSON["show mac address-table address "+other] = macReply(macEntry(20, "Ethernet7"))
	d, _ := newDispatcher(devices, 0)

	var seen []IPRow
	p := &Pipeline{Dispatcher: d, Select: func(rows []IPRow) string {
		seen = rows
		return rows[len(rows)-1].MAC
	}}
	loc := p.LocateIP(context.Background(), hostSet("h1", "h2", "h3"), testIP, nil)

	if len(seen) != 2 {
		t.Fatalf("selector saw %d rows, want 2", len(seen))
	}
	if loc.MAC != seen[1].MAC {
		t.Errorf("MAC = %q, want selector choice %q", loc.MAC, seen[1].MAC)
	}
}

func TestLocateMACIdempotent(t *testing.T) {
	d, _ := newDispatcher(scenarioFleet(), 0)
	p := &Pipeline{Dispatcher: d}
	hosts := hostSet("h1", "h2", "h3")

	first := p.LocateMAC(context.Background(), hosts, testMAC, nil)
	second := p.LocateMAC(context.Background(), hosts, testMAC, nil)

	if !reflect.DeepEqual(first.Ports, second.Ports) {
		t.Errorf("results differ: %+v vs %+v", first.Ports, second.Ports)
	}
	if len(first.Ports) != 1 {
		t.Errorf("Ports = %+v", first.Ports)
	}
}

func TestFirstMAC(t *testing.T) {
	rows := []IPRow{{Hostname: "b", MAC: "m1"}, {Hostname: "a", MAC: "m2"}}
	if got := FirstMAC(rows); got != "m1" {
		t.Errorf("FirstMAC() = %q, want m1", got)
	}
}

func TestFlatten(t *testing.T) {
	res := &Result[[]MACMatch]{Outcomes: []*Outcome[[]MACMatch]{
		{Host: "h3", Value: []MACMatch{{VLAN: 10, Interface: "Eth1"}, {VLAN: 20, Interface: "Eth1"}}},
		{Host: "h1", Err: &Failure{Host: "h1", Reason: "timeout"}, Value: []MACMatch{{VLAN: 99, Interface: "Eth9"}}},
		{Host: "h2", Value: nil},
		{Host: "h4", Value: []MACMatch{}},
		{Host: "h0", Value: []MACMatch{{VLAN: 30, Interface: "Eth2"}}},
	}}

	got := MACRows(res)
	want := []MACRow{
		{Hostname: "h3", VLAN: 10, Interface: "Eth1"},
		{Hostname: "h3", VLAN: 20, Interface: "Eth1"},
		{Hostname: "h0", VLAN: 30, Interface: "Eth2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MACRows() = %+v, want %+v", got, want)
	}
}

func TestArtifacts(t *testing.T) {
	res := &Result[Artifact]{Outcomes: []*Outcome[Artifact]{
		{Host: "h1", Value: Artifact{Path: "out/h1.log"}},
		{Host: "h2", Err: &Failure{Host: "h2"}},
	}}
	got := Artifacts(res)
	if len(got) != 1 || got[0].Path != "out/h1.log" {
		t.Errorf("Artifacts() = %+v", got)
	}
}

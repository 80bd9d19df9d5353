//go:build integration

package device_test

import (
	"context"
	"testing"

	"github.com/netfleet-ops/netfleet/internal/testutil"
	"github.com/netfleet-ops/netfleet/pkg/device"
)

func TestStateDBFDBEntries(t *testing.T) {
	testutil.SkipIfNoRedis(t)
	testutil.SeedRedis(t, testutil.StateDB, testutil.SeedPath("statedb.json"))

	db := device.NewStateDB(testutil.RedisClient(t, testutil.StateDB))
	entries, err := db.FDBEntries(context.Background(), "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("FDBEntries: %v", err)
	}
	want := []device.FDBEntry{
		{VLAN: 10, MAC: "aa:bb:cc:dd:ee:ff", Interface: "Ethernet0", Type: "dynamic"},
		{VLAN: 20, MAC: "aa:bb:cc:dd:ee:ff", Interface: "PortChannel1", Type: "dynamic"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestStateDBNeighEntries(t *testing.T) {
	testutil.SkipIfNoRedis(t)
	testutil.SeedRedis(t, testutil.StateDB, testutil.SeedPath("statedb.json"))

	db := device.NewStateDB(testutil.RedisClient(t, testutil.StateDB))

	tests := []struct {
		ip        string
		wantMAC   string
		wantIface string
	}{
		{"10.0.0.5", "aa:bb:cc:dd:ee:ff", "Ethernet0"},
		{"2001:db8::5", "aa:bb:cc:dd:ee:01", "Ethernet8"},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			entries, err := db.NeighEntries(context.Background(), tt.ip)
			if err != nil {
				t.Fatalf("NeighEntries: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			if entries[0].MAC != tt.wantMAC || entries[0].Interface != tt.wantIface {
				t.Errorf("entry = %+v", entries[0])
			}
		})
	}

	none, err := db.NeighEntries(context.Background(), "10.9.9.9")
	if err != nil {
		t.Fatalf("NeighEntries: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unexpected entries: %+v", none)
	}
}

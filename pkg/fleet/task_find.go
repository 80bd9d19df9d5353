package fleet

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

// MACMatch is one forwarding entry for the searched MAC.
type MACMatch struct {
	VLAN      int
	Interface string
}

// IPMatch is one neighbor entry for the searched IP.
type IPMatch struct {
	MAC       string
	Interface string
}

// FindMAC looks a MAC address up in the device forwarding table. Unless
// AllPorts is set, entries on interfaces without the physical prefix
// (port-channels, VXLAN, CPU) are dropped.
type FindMAC struct {
	MAC      string
	AllPorts bool
}

func (t *FindMAC) Kind() Kind { return KindFindMAC }

// eosMACTable is the JSON shape of "show mac address-table".
type eosMACTable struct {
	UnicastTable struct {
		TableEntries []struct {
			VlanID     int    `json:"vlanId"`
			Interface  string `json:"interface"`
			MacAddress string `json:"macAddress"`
			EntryType  string `json:"entryType"`
		} `json:"tableEntries"`
	} `json:"unicastTable"`
}

func (t *FindMAC) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) ([]MACMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, env.commandTimeout())
	defer cancel()

	var entries []device.FDBEntry
	if sr, ok := conn.(device.StateReader); ok {
		var err error
		if entries, err = sr.FDBEntries(ctx, t.MAC); err != nil {
			return nil, err
		}
	} else {
		out, err := device.RunOne(ctx, conn, device.EncodingJSON, "show mac address-table address "+t.MAC)
		if err != nil {
			return nil, err
		}
		var table eosMACTable
		if err := out.Decode(&table); err != nil {
			return nil, fmt.Errorf("decoding mac address-table: %w", err)
		}
		for _, e := range table.UnicastTable.TableEntries {
			entries = append(entries, device.FDBEntry{
				VLAN:      e.VlanID,
				MAC:       e.MacAddress,
				Interface: e.Interface,
				Type:      e.EntryType,
			})
		}
	}

	prefix := env.physicalPrefix()
	var matches []MACMatch
	for _, e := range entries {
		if !t.AllPorts && !strings.HasPrefix(e.Interface, prefix) {
			continue
		}
		matches = append(matches, MACMatch{VLAN: e.VLAN, Interface: e.Interface})
	}
	return matches, nil
}

// FindIP looks an IP address up in the device ARP or IPv6 neighbor table.
type FindIP struct {
	IP string
}

func (t *FindIP) Kind() Kind { return KindFindIP }

type eosNeighbor struct {
	Address   string `json:"address"`
	HwAddress string `json:"hwAddress"`
	Interface string `json:"interface"`
}

// eosNeighbors covers both "show ip arp" and "show ipv6 neighbors".
type eosNeighbors struct {
	IPv4 []eosNeighbor `json:"ipV4Neighbors"`
	IPv6 []eosNeighbor `json:"ipV6Neighbors"`
}

func (t *FindIP) command() (string, error) {
	addr, err := netip.ParseAddr(t.IP)
	if err != nil {
		return "", err
	}
	if addr.Is4() {
		return "show ip arp " + addr.String(), nil
	}
	return "show ipv6 neighbors " + addr.String(), nil
}

func (t *FindIP) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) ([]IPMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, env.commandTimeout())
	defer cancel()

	var entries []device.NeighEntry
	if sr, ok := conn.(device.StateReader); ok {
		var err error
		if entries, err = sr.NeighEntries(ctx, t.IP); err != nil {
			return nil, err
		}
	} else {
		cmd, err := t.command()
		if err != nil {
			return nil, err
		}
		out, err := device.RunOne(ctx, conn, device.EncodingJSON, cmd)
		if err != nil {
			return nil, err
		}
		var table eosNeighbors
		if err := out.Decode(&table); err != nil {
			return nil, fmt.Errorf("decoding neighbor table: %w", err)
		}
		for _, n := range append(table.IPv4, table.IPv6...) {
			entries = append(entries, device.NeighEntry{IP: n.Address, MAC: n.HwAddress, Interface: n.Interface})
		}
	}

	var matches []IPMatch
	for _, e := range entries {
		mac, err := util.NormalizeMAC(e.MAC)
		if err != nil {
			// incomplete entries carry no usable MAC
			util.WithHost(host.Name).Debugf("skipping neighbor %s: %v", e.IP, err)
			continue
		}
		matches = append(matches, IPMatch{MAC: mac, Interface: e.Interface})
	}
	return matches, nil
}

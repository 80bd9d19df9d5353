package fleet

import (
	"context"

	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

// MACSelector picks the MAC address that seeds the second search round.
// It is only called with at least one row.
type MACSelector func(rows []IPRow) string

// FirstMAC selects the MAC of the first row in aggregation order. When an
// IP resolves to several MACs, the others are not searched.
func FirstMAC(rows []IPRow) string {
	return rows[0].MAC
}

// Pipeline chains dispatch rounds to locate endpoints.
type Pipeline struct {
	Dispatcher *Dispatcher
	Select     MACSelector
	AllPorts   bool
}

// Location is the outcome of a search. For an IP search Neighbors holds the
// first round; MAC is empty and Ports nil when that round found nothing.
type Location struct {
	IP        string
	MAC       string
	Neighbors []IPRow
	Ports     []MACRow

	IPResult  *Result[[]IPMatch]
	MACResult *Result[[]MACMatch]
}

// Found reports whether the search produced any location.
func (l *Location) Found() bool { return len(l.Ports) > 0 }

// Failures returns the failed hosts of every round that ran.
func (l *Location) Failures() []*Failure {
	var out []*Failure
	if l.IPResult != nil {
		out = append(out, l.IPResult.Failures()...)
	}
	if l.MACResult != nil {
		out = append(out, l.MACResult.Failures()...)
	}
	return out
}

func (p *Pipeline) selectMAC(rows []IPRow) string {
	if p.Select != nil {
		return p.Select(rows)
	}
	return FirstMAC(rows)
}

// LocateMAC runs find-mac across hosts. mac must already be normalised.
func (p *Pipeline) LocateMAC(ctx context.Context, hosts *inventory.HostSet, mac string, progress ProgressFunc) *Location {
	res := Dispatch(ctx, p.Dispatcher, hosts, &FindMAC{MAC: mac, AllPorts: p.AllPorts}, progress)
	return &Location{MAC: mac, Ports: MACRows(res), MACResult: res}
}

// LocateIP resolves ip to a MAC on any host, then finds that MAC across the
// whole HostSet, since the same MAC may be learned on several devices.
func (p *Pipeline) LocateIP(ctx context.Context, hosts *inventory.HostSet, ip string, progress ProgressFunc) *Location {
	res := Dispatch(ctx, p.Dispatcher, hosts, &FindIP{IP: ip}, progress)
	loc := &Location{IP: ip, Neighbors: IPRows(res), IPResult: res}
	if len(loc.Neighbors) == 0 {
		util.WithOperation(string(KindFindIP)).Infof("no neighbor entry for %s", ip)
		return loc
	}

	loc.MAC = p.selectMAC(loc.Neighbors)
	util.WithOperation(string(KindFindIP)).Infof("%s resolved to %s, searching %d hosts", ip, loc.MAC, hosts.Len())

	mac := p.LocateMAC(ctx, hosts, loc.MAC, progress)
	loc.Ports = mac.Ports
	loc.MACResult = mac.MACResult
	return loc
}

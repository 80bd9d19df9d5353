// Package inventory supplies the set of devices a netfleet command runs
// against.
package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/netfleet-ops/netfleet/pkg/util"
)

// Platform identifiers
const (
	PlatformEOS   = "eos"
	PlatformSONiC = "sonic"
)

// Host is one managed device. Connection parameters are opaque to the
// dispatcher; only the device package interprets them.
type Host struct {
	Name     string   `yaml:"name"`
	Address  string   `yaml:"address,omitempty"`
	Port     int      `yaml:"port,omitempty"`
	Platform string   `yaml:"platform,omitempty"`
	Groups   []string `yaml:"groups,omitempty"`
}

// Addr returns the address to dial, falling back to the host name.
func (h *Host) Addr() string {
	if h.Address != "" {
		return h.Address
	}
	return h.Name
}

// InGroup reports whether the host belongs to the named group.
func (h *Host) InGroup(group string) bool {
	for _, g := range h.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// GetPlatform returns the platform (with fallback)
func (h *Host) GetPlatform() string {
	if h.Platform != "" {
		return h.Platform
	}
	return PlatformEOS
}

// HostSet is the read-only set of hosts selected for one command.
// Hosts are kept sorted by name and are unique by name.
type HostSet struct {
	hosts []*Host
	index map[string]*Host
}

// NewHostSet builds a HostSet. Later duplicates of a name are dropped.
func NewHostSet(hosts []*Host) *HostSet {
	s := &HostSet{index: make(map[string]*Host, len(hosts))}
	for _, h := range hosts {
		if _, dup := s.index[h.Name]; dup {
			continue
		}
		s.index[h.Name] = h
		s.hosts = append(s.hosts, h)
	}
	sort.Slice(s.hosts, func(i, j int) bool { return s.hosts[i].Name < s.hosts[j].Name })
	return s
}

// Len returns the number of hosts
func (s *HostSet) Len() int { return len(s.hosts) }

// Hosts returns the hosts in name order. Callers must not modify the slice.
func (s *HostSet) Hosts() []*Host { return s.hosts }

// Get returns the named host
func (s *HostSet) Get(name string) (*Host, bool) {
	h, ok := s.index[name]
	return h, ok
}

// Names returns the host names in order
func (s *HostSet) Names() []string {
	names := make([]string, len(s.hosts))
	for i, h := range s.hosts {
		names[i] = h.Name
	}
	return names
}

// Filter returns the subset of hosts accepted by keep.
func (s *HostSet) Filter(keep func(*Host) bool) *HostSet {
	var out []*Host
	for _, h := range s.hosts {
		if keep(h) {
			out = append(out, h)
		}
	}
	return NewHostSet(out)
}

// Provider returns the complete device inventory.
type Provider interface {
	Hosts(ctx context.Context) ([]*Host, error)
}

// Select loads the inventory and keeps the hosts accepted by match. When
// groups are given, a host must also belong to at least one of them. It
// returns util.ErrEmptyInventory when nothing is left, so an empty fleet
// never reaches the dispatcher.
func Select(ctx context.Context, p Provider, match util.Matcher, groups ...string) (*HostSet, error) {
	hosts, err := p.Hosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}
	if match == nil {
		match = util.MatchAll
	}

	all := NewHostSet(hosts)
	selected := all.Filter(func(h *Host) bool {
		if !match(h.Name) {
			return false
		}
		if len(groups) == 0 {
			return true
		}
		for _, g := range groups {
			if h.InGroup(g) {
				return true
			}
		}
		return false
	})
	if selected.Len() == 0 {
		return nil, fmt.Errorf("%w (inventory has %d hosts)", util.ErrEmptyInventory, all.Len())
	}
	util.Debugf("selected %d of %d hosts", selected.Len(), all.Len())
	return selected, nil
}

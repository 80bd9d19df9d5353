package inventory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/netfleet-ops/netfleet/pkg/util"
)

// fileInventory is the on-disk inventory format:
//
//	defaults:
//	  platform: eos
//	  port: 22
//	hosts:
//	  - name: leaf1-nyc
//	    address: 10.10.0.11
//	    groups: [leaf]
type fileInventory struct {
	Defaults Host    `yaml:"defaults"`
	Hosts    []*Host `yaml:"hosts"`
}

// FileProvider reads the inventory from a YAML file.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider for the given path
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Hosts implements Provider
func (p *FileProvider) Hosts(ctx context.Context) ([]*Host, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", p.Path, err)
	}
	return parseInventory(data)
}

func parseInventory(data []byte) ([]*Host, error) {
	var inv fileInventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}

	v := &util.ValidationBuilder{}
	for i, h := range inv.Hosts {
		if h == nil || h.Name == "" {
			v.AddErrorf("inventory host #%d has no name", i+1)
			continue
		}
		if h.Platform == "" {
			h.Platform = inv.Defaults.Platform
		}
		if h.Port == 0 {
			h.Port = inv.Defaults.Port
		}
		if len(h.Groups) == 0 {
			h.Groups = inv.Defaults.Groups
		}
		if p := h.GetPlatform(); p != PlatformEOS && p != PlatformSONiC {
			v.AddErrorf("inventory host %s: unknown platform %q", h.Name, p)
		}
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	return inv.Hosts, nil
}

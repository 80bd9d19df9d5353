package cmdfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/netfleet-ops/netfleet/pkg/util"
)

// InterfaceTable maps host name to its interfaces, in file order.
type InterfaceTable map[string][]string

// Hosts returns the host names in the table
func (t InterfaceTable) Hosts() []string {
	hosts := make([]string, 0, len(t))
	for h := range t {
		hosts = append(hosts, h)
	}
	return hosts
}

// LoadInterfaces reads a CSV file with a header row containing at least
// "host" and "interface" columns. Extra columns are ignored.
func LoadInterfaces(path string) (InterfaceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading interface file: %w", err)
	}
	defer f.Close()

	table, err := ParseInterfaces(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseInterfaces decodes the host/interface CSV.
func ParseInterfaces(r io.Reader) (InterfaceTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, util.NewValidationError("interface file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("parsing interface file: %w", err)
	}

	hostCol, ifaceCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "host":
			hostCol = i
		case "interface":
			ifaceCol = i
		}
	}
	v := &util.ValidationBuilder{}
	v.Add(hostCol >= 0, "interface file header has no \"host\" column")
	v.Add(ifaceCol >= 0, "interface file header has no \"interface\" column")
	if err := v.Build(); err != nil {
		return nil, err
	}

	table := make(InterfaceTable)
	seen := make(map[[2]string]bool)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing interface file: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if hostCol >= len(rec) || ifaceCol >= len(rec) {
			v.AddErrorf("line %d: missing host or interface", line)
			continue
		}
		host := strings.TrimSpace(rec[hostCol])
		iface := strings.TrimSpace(rec[ifaceCol])
		if host == "" || iface == "" {
			v.AddErrorf("line %d: missing host or interface", line)
			continue
		}
		if seen[[2]string{host, iface}] {
			continue
		}
		seen[[2]string{host, iface}] = true
		table[host] = append(table[host], iface)
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, util.NewValidationError("interface file has no rows")
	}
	return table, nil
}

package fleet

// MACRow is one location of a MAC address.
type MACRow struct {
	Hostname  string `json:"hostname"`
	VLAN      int    `json:"vlan"`
	Interface string `json:"interface"`
}

// IPRow is one neighbor entry for an IP address.
type IPRow struct {
	Hostname  string `json:"hostname"`
	MAC       string `json:"macaddr"`
	Interface string `json:"interface"`
}

// Flatten emits one row per list element of every successful, non-empty
// outcome. Rows follow host completion order, then list order. No sorting
// or de-duplication is done.
func Flatten[T, R any](res *Result[[]T], row func(host string, item T) R) []R {
	var rows []R
	for _, o := range res.Outcomes {
		if o.Err != nil || len(o.Value) == 0 {
			continue
		}
		for _, item := range o.Value {
			rows = append(rows, row(o.Host, item))
		}
	}
	return rows
}

// MACRows flattens a find-mac round.
func MACRows(res *Result[[]MACMatch]) []MACRow {
	return Flatten(res, func(host string, m MACMatch) MACRow {
		return MACRow{Hostname: host, VLAN: m.VLAN, Interface: m.Interface}
	})
}

// IPRows flattens a find-ip round.
func IPRows(res *Result[[]IPMatch]) []IPRow {
	return Flatten(res, func(host string, m IPMatch) IPRow {
		return IPRow{Hostname: host, MAC: m.MAC, Interface: m.Interface}
	})
}

// Artifacts lists the files written by successful hosts in completion order.
func Artifacts(res *Result[Artifact]) []Artifact {
	var out []Artifact
	for _, o := range res.Outcomes {
		if o.Err == nil && o.Value.Path != "" {
			out = append(out, o.Value)
		}
	}
	return out
}

package util

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a relative time span such as "2 hours", used to bound log
// collection.
type Window struct {
	Count int
	Unit  string // days, hours, minutes or seconds
}

var windowUnits = map[string]string{
	"day": "days", "days": "days",
	"hour": "hours", "hours": "hours",
	"minute": "minutes", "minutes": "minutes",
	"second": "seconds", "seconds": "seconds",
}

// ParseWindow parses "<N> <unit>" where N is 1-9999.
func ParseWindow(s string) (Window, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Window{}, NewValidationError(fmt.Sprintf("time window %q: expected \"<N> <unit>\"", s))
	}

	v := &ValidationBuilder{}
	n, err := strconv.Atoi(fields[0])
	v.Add(err == nil && n >= 1 && n <= 9999, fmt.Sprintf("time window count %q must be 1-9999", fields[0]))
	unit, ok := windowUnits[strings.ToLower(fields[1])]
	v.Add(ok, fmt.Sprintf("time window unit %q must be one of days, hours, minutes, seconds", fields[1]))
	if err := v.Build(); err != nil {
		return Window{}, err
	}
	return Window{Count: n, Unit: unit}, nil
}

func (w Window) String() string {
	return fmt.Sprintf("%d %s", w.Count, w.Unit)
}

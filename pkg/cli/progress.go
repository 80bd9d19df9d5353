package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Progress is an append-only console reporter for fleet rounds. It never
// rewrites earlier lines, so output is safe for pipes and CI logs.
type Progress struct {
	W io.Writer
	// Verbose prints a line for every host; otherwise only failures.
	Verbose bool

	start    time.Time
	dotWidth int
	failed   int
}

// NewProgress creates a Progress writing to stderr.
func NewProgress(verbose bool) *Progress {
	return &Progress{W: os.Stderr, Verbose: verbose}
}

// Start announces a round over hosts.
func (p *Progress) Start(operation string, hosts []string) {
	p.start = time.Now()
	p.failed = 0
	maxName := 0
	for _, h := range hosts {
		maxName = max(maxName, len(h))
	}
	p.dotWidth = maxName + 6
	fmt.Fprintf(p.W, "%s: %d hosts\n", Bold(operation), len(hosts))
}

// Host reports one finished host. err is nil on success.
func (p *Progress) Host(host string, done, total int, err error) {
	if err != nil {
		p.failed++
	}
	if !p.Verbose && err == nil {
		return
	}
	tag := fmt.Sprintf("[%d/%d]", done, total)
	padded := DotPad(host, p.dotWidth)
	if err != nil {
		fmt.Fprintf(p.W, "  %-9s %s %s  %s\n", tag, padded, Red("FAIL"), Dim(firstLine(err.Error())))
		return
	}
	fmt.Fprintf(p.W, "  %-9s %s %s\n", tag, padded, Green("OK"))
}

// End prints the round summary.
func (p *Progress) End(total int) {
	parts := []string{Green(fmt.Sprintf("%d ok", total-p.failed))}
	if p.failed > 0 {
		parts = append(parts, Red(fmt.Sprintf("%d failed", p.failed)))
	}
	fmt.Fprintf(p.W, "%s  (%s)\n", strings.Join(parts, ", "), formatDuration(time.Since(p.start)))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

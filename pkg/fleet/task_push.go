package fleet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/netfleet-ops/netfleet/pkg/audit"
	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

const sessionPrefix = "netfleet-"

// PushConfig applies configuration text through an EOS configuration
// session. Pending sessions left over from earlier runs are aborted first.
// With DryRun the session is diffed and then aborted.
type PushConfig struct {
	Config string
	DryRun bool
}

// PushResult describes what a push did on one host.
type PushResult struct {
	Session   string
	Aborted   []string
	Diff      string
	Changed   bool
	Committed bool
}

func (t *PushConfig) Kind() Kind { return KindPushConfig }

// configLines drops blank lines and the enclosing configure/end.
func configLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		switch strings.TrimSpace(line) {
		case "", "configure", "configure terminal", "end":
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

type eosSessions struct {
	Sessions map[string]struct {
		State string `json:"state"`
	} `json:"sessions"`
}

// pendingSessions lists configuration sessions in the pending state,
// sorted by name.
func pendingSessions(ctx context.Context, env *Env, conn device.Conn) ([]string, error) {
	out, err := runWithTimeout(ctx, env, conn, device.EncodingJSON, "show configuration sessions")
	if err != nil {
		return nil, fmt.Errorf("listing configuration sessions: %w", err)
	}
	var s eosSessions
	if err := out.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding configuration sessions: %w", err)
	}
	var names []string
	for name, sess := range s.Sessions {
		if sess.State == "pending" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func abortSession(ctx context.Context, env *Env, conn device.Conn, name string) error {
	_, err := runWithTimeout(ctx, env, conn, device.EncodingText, "configure session "+name+" abort")
	return err
}

func (t *PushConfig) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) (res PushResult, err error) {
	if host.GetPlatform() != inventory.PlatformEOS {
		return res, fmt.Errorf("push-config on %s: %w", host.GetPlatform(), device.ErrUnsupported)
	}

	start := time.Now()
	event := audit.NewEvent(env.User, host.Name, string(KindPushConfig)).
		WithRun(env.RunID).
		WithDryRun(t.DryRun)
	defer func() {
		event.WithSession(res.Session, res.Aborted).WithDiff(res.Diff).WithDuration(time.Since(start))
		if err != nil {
			event.WithError(err)
		} else {
			event.WithSuccess()
		}
		if lerr := env.auditLogger().Log(event); lerr != nil {
			util.WithHost(host.Name).Warnf("audit log: %v", lerr)
		}
	}()

	pending, err := pendingSessions(ctx, env, conn)
	if err != nil {
		return res, err
	}
	for _, name := range pending {
		if err := abortSession(ctx, env, conn, name); err != nil {
			return res, fmt.Errorf("aborting pending session %s: %w", name, err)
		}
		res.Aborted = append(res.Aborted, name)
		util.WithHost(host.Name).Infof("aborted pending configuration session %s", name)
	}

	res.Session = sessionPrefix + uuid.NewString()[:8]
	cctx, cancel := context.WithTimeout(ctx, env.commandTimeout())
	err = conn.Configure(cctx, res.Session, configLines(t.Config))
	cancel()
	if err != nil {
		if aerr := abortSession(ctx, env, conn, res.Session); aerr != nil {
			util.WithHost(host.Name).Debugf("abort %s: %v", res.Session, aerr)
		}
		return res, fmt.Errorf("staging configuration: %w", err)
	}

	out, err := runWithTimeout(ctx, env, conn, device.EncodingText, "show session-config named "+res.Session+" diffs")
	if err != nil {
		if aerr := abortSession(ctx, env, conn, res.Session); aerr != nil {
			util.WithHost(host.Name).Debugf("abort %s: %v", res.Session, aerr)
		}
		return res, fmt.Errorf("reading session diff: %w", err)
	}
	res.Diff = strings.TrimSpace(out.Text)
	res.Changed = res.Diff != ""

	if t.DryRun || !res.Changed {
		if err := abortSession(ctx, env, conn, res.Session); err != nil {
			return res, fmt.Errorf("aborting session %s: %w", res.Session, err)
		}
		return res, nil
	}

	if _, err := runWithTimeout(ctx, env, conn, device.EncodingText, "configure session "+res.Session+" commit"); err != nil {
		return res, fmt.Errorf("committing session %s: %w", res.Session, err)
	}
	res.Committed = true
	return res, nil
}

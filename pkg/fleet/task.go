// Package fleet runs one device task concurrently against every host of a
// HostSet and turns the per-host outcomes into report rows.
//
// A round never stops early: every host yields exactly one Outcome, and a
// failure on one host is recorded against that host only.
package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/netfleet-ops/netfleet/pkg/audit"
	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/settings"
)

// Kind identifies a device task variant.
type Kind string

const (
	KindFindMAC       Kind = "find-mac"
	KindFindIP        Kind = "find-ip"
	KindCollectLogs   Kind = "collect-logs"
	KindCollectConfig Kind = "collect-config"
	KindRunShow       Kind = "run-show"
	KindRunInterface  Kind = "run-interface"
	KindPushConfig    Kind = "push-config"
)

// Task is the work performed against a single device connection. Execute
// must not retain conn after returning.
type Task[T any] interface {
	Kind() Kind
	Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) (T, error)
}

// Env is the configuration shared by every task of a run. It is passed
// explicitly and never mutated once dispatch starts.
type Env struct {
	OutputDir      string
	CommandTimeout time.Duration
	LogTimeout     time.Duration
	PhysicalPrefix string
	User           string
	RunID          string
	Audit          audit.Logger
}

// NewEnv builds an Env from user settings.
func NewEnv(s *settings.Settings, user string) *Env {
	return &Env{
		OutputDir:      s.GetOutputDir(),
		CommandTimeout: s.GetCommandTimeout(),
		LogTimeout:     s.GetLogTimeout(),
		PhysicalPrefix: s.GetPhysicalPrefix(),
		User:           user,
		Audit:          audit.Discard,
	}
}

func (e *Env) commandTimeout() time.Duration {
	if e.CommandTimeout > 0 {
		return e.CommandTimeout
	}
	return settings.DefaultCommandTimeout
}

func (e *Env) logTimeout() time.Duration {
	if e.LogTimeout > 0 {
		return e.LogTimeout
	}
	return settings.DefaultLogTimeout
}

func (e *Env) physicalPrefix() string {
	if e.PhysicalPrefix != "" {
		return e.PhysicalPrefix
	}
	return settings.DefaultPhysicalPrefix
}

func (e *Env) auditLogger() audit.Logger {
	if e.Audit != nil {
		return e.Audit
	}
	return audit.Discard
}

// Failure is the per-host error outcome of a task.
type Failure struct {
	Host   string
	Kind   Kind
	Reason string
	// Fatal is set when the host failed because the whole run was
	// cancelled rather than because of anything on the host.
	Fatal bool
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s on %s: %s", f.Kind, f.Host, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

func newFailure(ctx context.Context, host string, kind Kind, err error) *Failure {
	return &Failure{
		Host:   host,
		Kind:   kind,
		Reason: err.Error(),
		Fatal:  ctx.Err() != nil,
		Err:    err,
	}
}

// Outcome is the result of one task on one host. Exactly one of Value and
// Err is meaningful.
type Outcome[T any] struct {
	Host     string
	Value    T
	Err      *Failure
	Duration time.Duration
}

// OK reports whether the task succeeded.
func (o *Outcome[T]) OK() bool { return o.Err == nil }

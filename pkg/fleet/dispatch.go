package fleet

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/settings"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

// Dispatcher runs tasks against a HostSet with bounded concurrency.
type Dispatcher struct {
	Connector device.Connector
	Env       *Env
	// Workers caps concurrent hosts; zero means settings.DefaultWorkers.
	Workers int
}

// Progress is delivered once per host, after that host's task finished.
type Progress struct {
	Kind  Kind
	Host  string
	Done  int
	Total int
	Err   *Failure
}

// ProgressFunc receives progress updates. It is called from a single
// goroutine and never concurrently with itself.
type ProgressFunc func(Progress)

// Result is the DispatchResult of one round: one Outcome per host, in
// completion order.
type Result[T any] struct {
	Kind     Kind
	Outcomes []*Outcome[T]
	byHost   map[string]*Outcome[T]
}

// Len returns the number of outcomes.
func (r *Result[T]) Len() int { return len(r.Outcomes) }

// Get returns the outcome recorded for host.
func (r *Result[T]) Get(host string) (*Outcome[T], bool) {
	o, ok := r.byHost[host]
	return o, ok
}

// Failures returns the failed outcomes in completion order.
func (r *Result[T]) Failures() []*Failure {
	var out []*Failure
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}

// Succeeded returns the number of hosts whose task succeeded.
func (r *Result[T]) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

func (d *Dispatcher) poolSize(hosts int) int {
	workers := d.Workers
	if workers <= 0 {
		workers = settings.DefaultWorkers
	}
	return max(1, min(hosts, workers))
}

func (d *Dispatcher) env() *Env {
	if d.Env != nil {
		return d.Env
	}
	return &Env{}
}

// Dispatch runs task against every host and returns once all hosts have
// finished. The returned Result always holds exactly hosts.Len() outcomes.
func Dispatch[T any](ctx context.Context, d *Dispatcher, hosts *inventory.HostSet, task Task[T], progress ProgressFunc) *Result[T] {
	total := hosts.Len()
	res := &Result[T]{
		Kind:     task.Kind(),
		Outcomes: make([]*Outcome[T], 0, total),
		byHost:   make(map[string]*Outcome[T], total),
	}
	if total == 0 {
		return res
	}

	done := make(chan *Outcome[T], total)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range done {
			res.Outcomes = append(res.Outcomes, o)
			res.byHost[o.Host] = o
			if progress != nil {
				progress(Progress{
					Kind:  res.Kind,
					Host:  o.Host,
					Done:  len(res.Outcomes),
					Total: total,
					Err:   o.Err,
				})
			}
		}
	}()

	util.WithOperation(string(task.Kind())).Debugf("dispatching to %d hosts with %d workers", total, d.poolSize(total))

	g := new(errgroup.Group)
	g.SetLimit(d.poolSize(total))
	for _, host := range hosts.Hosts() {
		g.Go(func() error {
			done <- runOne(ctx, d, host, task)
			return nil
		})
	}
	g.Wait()
	close(done)
	<-collected

	return res
}

// runOne owns the connection for host from open to close.
func runOne[T any](ctx context.Context, d *Dispatcher, host *inventory.Host, task Task[T]) (out *Outcome[T]) {
	start := time.Now()
	out = &Outcome[T]{Host: host.Name}
	log := util.WithHost(host.Name).WithField("operation", task.Kind())

	defer func() {
		if r := recover(); r != nil {
			log.WithField("stack", string(debug.Stack())).Debug("task panicked")
			var zero T
			out.Value = zero
			out.Err = newFailure(ctx, host.Name, task.Kind(), fmt.Errorf("panic: %v", r))
		}
		out.Duration = time.Since(start)
		if out.Err != nil {
			log.Warnf("%s", out.Err.Reason)
		} else {
			log.WithField("duration", out.Duration).Debug("task completed")
		}
	}()

	value, err := execute(ctx, d, host, task)
	if err != nil {
		out.Err = newFailure(ctx, host.Name, task.Kind(), err)
		return out
	}
	out.Value = value
	return out
}

func execute[T any](ctx context.Context, d *Dispatcher, host *inventory.Host, task Task[T]) (value T, err error) {
	if err := ctx.Err(); err != nil {
		return value, err
	}
	if d.Connector == nil {
		return value, fmt.Errorf("no connector configured")
	}
	conn, err := d.Connector.Connect(ctx, host)
	if err != nil {
		return value, fmt.Errorf("connect %s: %w", host.Addr(), err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			util.WithHost(host.Name).Debugf("close: %v", cerr)
		}
	}()
	return task.Execute(ctx, d.env(), host, conn)
}

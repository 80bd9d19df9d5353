package audit

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("alice", "leaf1", "push-config")

	if event.User != "alice" {
		t.Errorf("User = %q, want %q", event.User, "alice")
	}
	if event.Host != "leaf1" {
		t.Errorf("Host = %q, want %q", event.Host, "leaf1")
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if other := NewEvent("alice", "leaf1", "push-config"); other.ID == event.ID {
		t.Errorf("two events share ID %q", event.ID)
	}
}

func TestEventChaining(t *testing.T) {
	event := NewEvent("alice", "leaf1", "push-config").
		WithRun("run-1").
		WithSession("netfleet-abc", []string{"stale"}).
		WithDiff("+ hostname leaf1").
		WithSuccess().
		WithDuration(time.Second).
		WithDryRun(true)

	if event.RunID != "run-1" || event.Session != "netfleet-abc" {
		t.Errorf("RunID/Session = %q/%q", event.RunID, event.Session)
	}
	if len(event.Aborted) != 1 || event.Aborted[0] != "stale" {
		t.Errorf("Aborted = %v", event.Aborted)
	}
	if event.Diff != "+ hostname leaf1" {
		t.Errorf("Diff = %q", event.Diff)
	}
	if !event.Success || !event.DryRun || event.Duration != time.Second {
		t.Errorf("event = %+v", event)
	}

	failed := NewEvent("bob", "leaf2", "push-config").WithError(errors.New("boom"))
	if failed.Success || failed.Error != "boom" {
		t.Errorf("failed event = %+v", failed)
	}
}

func logEvents(t *testing.T, l *FileLogger, events ...*Event) {
	t.Helper()
	for _, e := range events {
		if err := l.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
}

func TestQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "audit.log")
	logger, err := NewFileLogger(path, Rotation{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	old := NewEvent("carol", "spine1", "push-config").WithSuccess()
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	logEvents(t, logger,
		old,
		NewEvent("alice", "leaf1", "push-config").WithRun("r1").WithSuccess(),
		NewEvent("alice", "leaf2", "push-config").WithRun("r1").WithError(errors.New("x")),
		NewEvent("bob", "leaf1", "push-config").WithRun("r2").WithSuccess(),
	)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"spine1", "leaf1", "leaf2", "leaf1"}},
		{"by host", Filter{Host: "leaf1"}, []string{"leaf1", "leaf1"}},
		{"by user", Filter{User: "bob"}, []string{"leaf1"}},
		{"by run", Filter{RunID: "r1"}, []string{"leaf1", "leaf2"}},
		{"failures", Filter{FailureOnly: true}, []string{"leaf2"}},
		{"since", Filter{Since: time.Now().Add(-time.Hour)}, []string{"leaf1", "leaf2", "leaf1"}},
		{"limit keeps newest", Filter{Limit: 2}, []string{"leaf2", "leaf1"}},
		{"future", Filter{Since: time.Now().Add(time.Hour)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(path, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			var hosts []string
			for _, e := range got {
				hosts = append(hosts, e.Host)
			}
			if !reflect.DeepEqual(hosts, tt.want) {
				t.Errorf("hosts = %v, want %v", hosts, tt.want)
			}
		})
	}
}

func TestQueryMissingLog(t *testing.T) {
	got, err := Query(filepath.Join(t.TempDir(), "audit.log"), Filter{})
	if err != nil || len(got) != 0 {
		t.Errorf("Query = %v, %v", got, err)
	}
}

func TestQuerySkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := os.WriteFile(path, []byte("not json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	logger, err := NewFileLogger(path, Rotation{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()
	logEvents(t, logger, NewEvent("alice", "leaf1", "push-config"))

	got, err := Query(path, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events, want 1", len(got))
	}
}

func TestFileLoggerRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewFileLogger(path, Rotation{MaxSize: 10, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	for _, host := range []string{"leaf1", "leaf2", "leaf3", "leaf4"} {
		logEvents(t, logger, NewEvent("alice", host, "push-config"))
		// backup names have microsecond resolution
		time.Sleep(time.Millisecond)
	}

	if got := backups(path); len(got) != 2 {
		t.Errorf("backups = %v, want 2", got)
	}
	events, err := Query(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	var hosts []string
	for _, e := range events {
		hosts = append(hosts, e.Host)
	}
	if want := []string{"leaf2", "leaf3", "leaf4"}; !reflect.DeepEqual(hosts, want) {
		t.Errorf("hosts = %v, want %v (oldest backup pruned)", hosts, want)
	}
}

func TestDiscard(t *testing.T) {
	if err := Discard.Log(NewEvent("a", "b", "c")); err != nil {
		t.Errorf("Discard.Log = %v", err)
	}
}

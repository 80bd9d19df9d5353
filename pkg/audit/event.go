// Package audit records configuration pushes to a JSON-lines log.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is one configuration push against one host
type Event struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Host      string        `json:"host"`
	Operation string        `json:"operation"`
	Session   string        `json:"session,omitempty"`
	Aborted   []string      `json:"aborted_sessions,omitempty"`
	Diff      string        `json:"diff,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	DryRun    bool          `json:"dry_run"`
	Duration  time.Duration `json:"duration"`
}

// NewEvent creates a new audit event
func NewEvent(user, host, operation string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		User:      user,
		Host:      host,
		Operation: operation,
	}
}

// WithRun tags the event with the dispatch round it belongs to
func (e *Event) WithRun(runID string) *Event {
	e.RunID = runID
	return e
}

// WithSession sets the configuration session and the stale sessions
// aborted before it was opened
func (e *Event) WithSession(session string, aborted []string) *Event {
	e.Session = session
	e.Aborted = aborted
	return e
}

// WithDiff sets the configuration diff
func (e *Event) WithDiff(diff string) *Event {
	e.Diff = diff
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithDryRun marks the push as a dry run
func (e *Event) WithDryRun(dryRun bool) *Event {
	e.DryRun = dryRun
	return e
}

package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/netfleet-ops/netfleet/pkg/util"
)

// Logger records audit events.
type Logger interface {
	Log(event *Event) error
}

// Discard is a Logger that drops every event.
var Discard Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Log(*Event) error { return nil }

// DefaultPath returns ~/.netfleet/audit.log.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".netfleet", "audit.log")
	}
	return filepath.Join(home, ".netfleet", "audit.log")
}

// backupSuffix orders rotated files chronologically by name.
const backupSuffix = "20060102-150405.000000"

// Rotation bounds the size of the audit log. A zero MaxSize disables
// rotation; a zero MaxBackups keeps every rotated file.
type Rotation struct {
	MaxSize    int64
	MaxBackups int
}

// FileLogger appends events to a JSON-lines file, one event per line.
// It is safe for use by concurrent dispatch workers.
type FileLogger struct {
	path     string
	rotation Rotation

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewFileLogger opens path for appending, creating its directory.
func NewFileLogger(path string, rotation Rotation) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	l := &FileLogger{path: path, rotation: rotation}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	l.file, l.size = f, info.Size()
	return nil
}

// Log implements Logger. The file is rotated first when the line would
// take a non-empty log past MaxSize.
func (l *FileLogger) Log(event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rotation.MaxSize > 0 && l.size > 0 && l.size+int64(len(line)) > l.rotation.MaxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotating audit log: %w", err)
		}
	}
	n, err := l.file.Write(line)
	l.size += int64(n)
	return err
}

// Close closes the log file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+"."+time.Now().Format(backupSuffix)); err != nil {
		return err
	}
	if err := l.open(); err != nil {
		return err
	}

	if l.rotation.MaxBackups <= 0 {
		return nil
	}
	old := backups(l.path)
	for len(old) > l.rotation.MaxBackups {
		if err := os.Remove(old[0]); err != nil {
			util.Warnf("audit: removing %s: %v", old[0], err)
		}
		old = old[1:]
	}
	return nil
}

// backups returns the rotated files of path, oldest first.
func backups(path string) []string {
	matches, _ := filepath.Glob(path + ".*")
	sort.Strings(matches)
	return matches
}

// Filter selects audit events. Zero fields match everything.
type Filter struct {
	Host        string
	User        string
	RunID       string
	Since       time.Time
	FailureOnly bool
	// Limit keeps only the most recent events.
	Limit int
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *Event) bool {
	switch {
	case f.Host != "" && e.Host != f.Host,
		f.User != "" && e.User != f.User,
		f.RunID != "" && e.RunID != f.RunID,
		!f.Since.IsZero() && e.Timestamp.Before(f.Since),
		f.FailureOnly && e.Success:
		return false
	}
	return true
}

// Query reads the audit log at path, rotated files included, and returns
// the matching events oldest first. A missing log yields no events.
// Malformed lines are skipped with a warning.
func Query(path string, filter Filter) ([]*Event, error) {
	var events []*Event
	for _, name := range append(backups(path), path) {
		found, err := readEvents(name, filter)
		if err != nil {
			return nil, err
		}
		events = append(events, found...)
	}
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

func readEvents(name string, filter Filter) ([]*Event, error) {
	f, err := os.Open(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []*Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			util.Warnf("audit: %s:%d: skipping malformed entry: %v", filepath.Base(name), line, err)
			continue
		}
		if filter.Match(&e) {
			events = append(events, &e)
		}
	}
	return events, scanner.Err()
}

package actionLog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const linePrefix = "> "

// Entry is one human-readable action log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Line      string    `json:"line"`
}

// ActionLog is an in-memory, append-only record of what the engine did, in the form shown
// to the operator. All data is lost when the process exits.
//
// Thread-safe; returned entries are copies.
type ActionLog struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

// NewActionLog creates a log that keeps at most limit entries, oldest dropped first.
// A limit <= 0 keeps everything.
func NewActionLog(limit int, logger *zap.Logger) *ActionLog {
	return &ActionLog{
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// Append records a line, prefixing it with "> " if it is not already.
func (a *ActionLog) Append(line string) {
	if !strings.HasPrefix(line, linePrefix) {
		line = linePrefix + line
	}

	a.mu.Lock()
	a.entries = append(a.entries, Entry{Timestamp: a.now(), Line: line})
	if a.limit > 0 && len(a.entries) > a.limit {
		a.entries = append([]Entry(nil), a.entries[len(a.entries)-a.limit:]...)
	}
	a.mu.Unlock()

	a.logger.Sugar().Infow("Action", "line", line)
}

func (a *ActionLog) Appendf(format string, args ...interface{}) {
	a.Append(fmt.Sprintf(format, args...))
}

// AppendError records err as an "[error] ..." line.
func (a *ActionLog) AppendError(err error) {
	if err == nil {
		return
	}
	a.Append("[error] " + err.Error())
}

func (a *ActionLog) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a *ActionLog) Lines() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Line)
	}
	return out
}

func (a *ActionLog) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
)

// Sink receives entries for out-of-band persistence. Implementations must
// not block; the log never waits on a sink.
type Sink interface {
	EnqueueAudit(models.AuditEntry)
}

// Log is the process-wide append-only audit trail. Entries are free-text
// lines describing access decisions and state changes; they are never
// mutated or removed except by Clear.
type Log struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	sink    Sink
}

// NewLog builds an empty audit log. sink may be nil.
func NewLog(sink Sink) *Log {
	return &Log{sink: sink}
}

// Append records a message with the current timestamp and returns the
// stored entry.
func (l *Log) Append(message string) models.AuditEntry {
	entry := models.AuditEntry{
		ID:         uuid.New(),
		Message:    message,
		OccurredAt: time.Now(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if l.sink != nil {
		l.sink.EnqueueAudit(entry)
	}
	return entry
}

// Entries returns an independent copy of the trail, oldest first.
func (l *Log) Entries() []models.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lines returns the trail rendered as display-ready strings, oldest first.
func (l *Log) Lines() []string {
	entries := l.Entries()
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.String())
	}
	return lines
}

// Size reports the number of recorded entries.
func (l *Log) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear wipes the trail.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

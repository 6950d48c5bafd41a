package audit

import (
	"strings"
	"sync"
	"testing"

	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
)

type captureSink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (c *captureSink) EnqueueAudit(entry models.AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func TestAppendRecordsOrderedEntries(t *testing.T) {
	log := NewLog(nil)

	log.Append("first")
	log.Append("second")

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "first" || entries[1].Message != "second" {
		t.Fatalf("entries out of order: %v", entries)
	}
	if entries[0].ID == entries[1].ID {
		t.Fatal("entries must carry distinct ids")
	}
	if log.Size() != 2 {
		t.Fatalf("expected size 2, got %d", log.Size())
	}
}

func TestEntriesReturnsIndependentCopy(t *testing.T) {
	log := NewLog(nil)
	log.Append("only")

	snapshot := log.Entries()
	snapshot[0].Message = "tampered"

	if log.Entries()[0].Message != "only" {
		t.Fatal("mutating the snapshot must not affect the log")
	}
}

func TestLinesAreDisplayReady(t *testing.T) {
	log := NewLog(nil)
	log.Append("user created: bob")

	lines := log.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], " - user created: bob") {
		t.Fatalf("unexpected line format %q", lines[0])
	}
}

func TestSinkReceivesEveryEntry(t *testing.T) {
	sink := &captureSink{}
	log := NewLog(sink)

	log.Append("a")
	log.Append("b")

	if len(sink.entries) != 2 {
		t.Fatalf("expected sink to see 2 entries, got %d", len(sink.entries))
	}
}

func TestClearWipesTheTrail(t *testing.T) {
	log := NewLog(nil)
	log.Append("gone")
	log.Clear()

	if log.Size() != 0 {
		t.Fatalf("expected empty log after clear, got %d", log.Size())
	}
}

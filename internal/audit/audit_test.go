package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmitBeforeStartIsDropped(t *testing.T) {
	l := New()
	if l.EmitSimple(EventSessionJoin, 0, "s1", nil) {
		t.Fatal("Emit should fail before Start")
	}
}

func TestEmitAndStatsCountTotals(t *testing.T) {
	l := New()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := l.Start(path); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer l.Stop()

	for i := 0; i < 5; i++ {
		l.EmitSimple(EventDamage, uint64(i), "agent-1", DamagePayload{AttackerID: 1, VictimID: 2, Damage: 25})
	}

	total, _, _ := l.Stats()
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
}

func TestStopFlushesPendingEventsToDisk(t *testing.T) {
	l := New()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := l.Start(path); err != nil {
		t.Fatalf("Start: %v", err)
	}

	l.EmitSimple(EventMatchStart, 0, "", nil)
	l.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected at least one flushed event on disk")
	}
}

func TestEmptyFilePathKeepsLogInMemoryOnly(t *testing.T) {
	l := New()
	if err := l.Start(""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer l.Stop()

	if !l.EmitSimple(EventSessionJoin, 0, "s1", nil) {
		t.Fatal("Emit should still succeed with no file configured")
	}
	time.Sleep(10 * time.Millisecond)
}

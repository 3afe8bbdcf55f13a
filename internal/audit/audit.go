// Package audit is a bounded, rate-limited event log for match history:
// joins, leaves, damage, kills, mode consensus, and match start/end.
// Records land in a circular buffer behind global and per-source
// token-bucket limits and are flushed to JSONL in batches by an async
// writer, so a hot combat tick never blocks on disk.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	bufferSize           = 1024
	maxEventsPerSec      = 10000
	maxEventsPerSource   = 100
	batchFlushSize       = 64
	batchFlushInterval   = 100 * time.Millisecond
	sourceLimiterCleanup = 5 * time.Minute
)

// EventType classifies one audit record.
type EventType uint8

const (
	EventUnknown EventType = iota
	EventTick
	EventSessionJoin
	EventSessionLeave
	EventDamage
	EventKill
	EventModeSelected
	EventMatchStart
	EventMatchEnd
)

func (t EventType) String() string {
	switch t {
	case EventTick:
		return "tick"
	case EventSessionJoin:
		return "session_join"
	case EventSessionLeave:
		return "session_leave"
	case EventDamage:
		return "damage"
	case EventKill:
		return "kill"
	case EventModeSelected:
		return "mode_selected"
	case EventMatchStart:
		return "match_start"
	case EventMatchEnd:
		return "match_end"
	default:
		return "unknown"
	}
}

const schemaVersion uint8 = 1

// Event is one audit-log record; Payload is pre-marshaled JSON for its type.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
	TickNum   uint64    `json:"tickNum"`
	SourceID  string    `json:"sourceId"`
	Payload   []byte    `json:"payload"`
}

// TickPayload marks a tick boundary for replay bookkeeping.
type TickPayload struct {
	AgentCount int `json:"agentCount"`
}

// DamagePayload records one bullet-vs-agent hit.
type DamagePayload struct {
	AttackerID uint16  `json:"attackerId"`
	VictimID   uint16  `json:"victimId"`
	Damage     float64 `json:"damage"`
	VictimHP   float64 `json:"victimHp"`
}

// KillPayload records an agent's death.
type KillPayload struct {
	VictimID uint16 `json:"victimId"`
	Team     uint8  `json:"team"`
}

// SessionPayload records a connect/disconnect.
type SessionPayload struct {
	RemoteAddr string `json:"remoteAddr"`
}

// ModePayload records a mode-consensus transition.
type ModePayload struct {
	Mode uint8 `json:"mode"`
}

// MatchEndPayload records how a match ended.
type MatchEndPayload struct {
	Winner  uint8 `json:"winner"`
	Natural bool  `json:"natural"`
}

func encodePayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent stamps the current time and encodes payload.
func NewEvent(t EventType, tickNum uint64, sourceID string, payload interface{}) Event {
	return Event{
		Version:   schemaVersion,
		Type:      t,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		SourceID:  sourceID,
		Payload:   encodePayload(payload),
	}
}

type sourceLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Log is a bounded, rate-limited, asynchronously-flushed event log.
type Log struct {
	buffer    [bufferSize]Event
	writeHead uint64 // atomic
	readHead  uint64 // atomic

	globalLimiter  *rate.Limiter
	sourceLimiters sync.Map // map[string]*sourceLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// New constructs an idle log; call Start to begin writing.
func New() *Log {
	return &Log{
		globalLimiter: rate.NewLimiter(maxEventsPerSec, maxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the writer/cleanup goroutines.
// An empty filePath keeps the log in memory only (Emit still succeeds, but
// nothing is persisted).
func (l *Log) Start(filePath string) error {
	if l.running.Load() {
		return nil
	}

	l.filePath = filePath
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		l.file = f
	}

	l.running.Store(true)
	l.writerWg.Add(2)
	go l.writerLoop()
	go l.cleanupLoop()
	return nil
}

// Stop flushes and closes the log.
func (l *Log) Stop() {
	l.stopOnce.Do(func() {
		l.running.Store(false)
		close(l.stopChan)
		l.writerWg.Wait()

		l.fileMu.Lock()
		if l.file != nil {
			l.file.Close()
		}
		l.fileMu.Unlock()
	})
}

// Emit records an event, subject to global and per-source rate limiting and
// the ring buffer's backpressure (oldest entries drop under sustained
// overload). Returns false if the event was dropped.
func (l *Log) Emit(e Event) bool {
	if !l.running.Load() {
		return false
	}
	if !l.globalLimiter.Allow() {
		atomic.AddUint64(&l.droppedCount, 1)
		return false
	}
	if e.SourceID != "" {
		if !l.sourceLimiter(e.SourceID).Allow() {
			atomic.AddUint64(&l.droppedCount, 1)
			return false
		}
	}

	head := atomic.AddUint64(&l.writeHead, 1)
	tail := atomic.LoadUint64(&l.readHead)
	if head-tail >= bufferSize {
		atomic.AddUint64(&l.readHead, 1)
		atomic.AddUint64(&l.droppedCount, 1)
	}

	e.Sequence = head
	l.buffer[(head-1)%bufferSize] = e
	atomic.AddUint64(&l.totalCount, 1)
	return true
}

// EmitSimple builds and records an event in one call.
func (l *Log) EmitSimple(t EventType, tickNum uint64, sourceID string, payload interface{}) bool {
	return l.Emit(NewEvent(t, tickNum, sourceID, payload))
}

func (l *Log) sourceLimiter(sourceID string) *rate.Limiter {
	if entry, ok := l.sourceLimiters.Load(sourceID); ok {
		e := entry.(*sourceLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}
	entry := &sourceLimiterEntry{
		limiter:  rate.NewLimiter(maxEventsPerSource, maxEventsPerSource/10),
		lastUsed: time.Now(),
	}
	actual, _ := l.sourceLimiters.LoadOrStore(sourceID, entry)
	return actual.(*sourceLimiterEntry).limiter
}

func (l *Log) writerLoop() {
	defer l.writerWg.Done()
	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)
	for {
		select {
		case <-l.stopChan:
			batch = l.collectBatch(batch[:0])
			if len(batch) > 0 {
				l.flushBatch(batch)
			}
			return
		case <-ticker.C:
			batch = l.collectBatch(batch[:0])
			if len(batch) > 0 {
				l.flushBatch(batch)
			}
		}
	}
}

func (l *Log) cleanupLoop() {
	defer l.writerWg.Done()
	ticker := time.NewTicker(sourceLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-sourceLimiterCleanup)
			l.sourceLimiters.Range(func(key, value interface{}) bool {
				if value.(*sourceLimiterEntry).lastUsed.Before(cutoff) {
					l.sourceLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (l *Log) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&l.writeHead)
	tail := atomic.LoadUint64(&l.readHead)
	for i := tail; i < head && len(batch) < batchFlushSize; i++ {
		batch = append(batch, l.buffer[i%bufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&l.readHead, uint64(len(batch)))
	}
	return batch
}

func (l *Log) flushBatch(batch []Event) {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	if l.file == nil {
		return
	}
	for _, e := range batch {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		l.file.Write(data)
		l.file.Write([]byte("\n"))
	}
}

// Stats reports counters useful for DoS monitoring.
func (l *Log) Stats() (total, dropped, pending uint64) {
	head := atomic.LoadUint64(&l.writeHead)
	tail := atomic.LoadUint64(&l.readHead)
	return atomic.LoadUint64(&l.totalCount), atomic.LoadUint64(&l.droppedCount), head - tail
}

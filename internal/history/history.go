// Package history keeps a bounded in-memory log of recent gateway
// exchanges. It exists for quick inspection over the API; it is not a
// persistence layer and is lost on restart.
package history

import (
	"sync"
	"time"

	"github.com/modelgate/gateway/internal/normalize"
)

// Entry records one completed chat exchange.
type Entry struct {
	Timestamp     string              `json:"timestamp"`
	CorrelationID string              `json:"correlationId,omitempty"`
	Provider      string              `json:"provider"`
	Model         string              `json:"model"`
	Prompt        string              `json:"prompt"`
	Response      *normalize.Response `json:"response,omitempty"`
	Error         string              `json:"error,omitempty"`
	CostUSD       float64             `json:"costUsd"`
}

// Log is a fixed-capacity ring of entries, newest first.
type Log struct {
	mu         sync.Mutex
	maxEntries int
	entries    []Entry
}

const defaultMaxEntries = 10

func NewLog(maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Log{maxEntries: maxEntries}
}

// Record appends an entry, evicting the oldest when the log is full. A
// missing timestamp is stamped at insertion.
func (l *Log) Record(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
}

// Entries returns a snapshot of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	for i, entry := range l.entries {
		out[len(l.entries)-1-i] = entry
	}
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

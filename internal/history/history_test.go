package history

import (
	"fmt"
	"sync"
	"testing"
)

func TestLogNewestFirst(t *testing.T) {
	t.Parallel()

	log := NewLog(5)
	for i := 0; i < 3; i++ {
		log.Record(Entry{Provider: "openai", Prompt: fmt.Sprintf("prompt-%d", i)})
	}

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("len=%d, want 3", len(entries))
	}
	if entries[0].Prompt != "prompt-2" || entries[2].Prompt != "prompt-0" {
		t.Fatalf("entries not newest first: %v", entries)
	}
}

func TestLogEvictsOldest(t *testing.T) {
	t.Parallel()

	log := NewLog(2)
	for i := 0; i < 5; i++ {
		log.Record(Entry{Prompt: fmt.Sprintf("prompt-%d", i)})
	}

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("len=%d, want 2", len(entries))
	}
	if entries[0].Prompt != "prompt-4" || entries[1].Prompt != "prompt-3" {
		t.Fatalf("wrong survivors after eviction: %v", entries)
	}
}

func TestLogStampsMissingTimestamp(t *testing.T) {
	t.Parallel()

	log := NewLog(0)
	log.Record(Entry{Prompt: "hello"})
	log.Record(Entry{Prompt: "dated", Timestamp: "2026-08-20T10:00:00Z"})

	entries := log.Entries()
	if entries[1].Timestamp == "" {
		t.Fatal("missing timestamp was not stamped")
	}
	if entries[0].Timestamp != "2026-08-20T10:00:00Z" {
		t.Fatalf("provided timestamp overwritten: %q", entries[0].Timestamp)
	}
}

func TestLogDefaultCapacity(t *testing.T) {
	t.Parallel()

	log := NewLog(0)
	for i := 0; i < 25; i++ {
		log.Record(Entry{Prompt: fmt.Sprintf("prompt-%d", i)})
	}
	if log.Len() != defaultMaxEntries {
		t.Fatalf("len=%d, want %d", log.Len(), defaultMaxEntries)
	}
}

func TestLogConcurrentRecord(t *testing.T) {
	t.Parallel()

	log := NewLog(10)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Record(Entry{Prompt: fmt.Sprintf("prompt-%d", i)})
		}(i)
	}
	wg.Wait()

	if log.Len() != 10 {
		t.Fatalf("len=%d, want 10", log.Len())
	}
}

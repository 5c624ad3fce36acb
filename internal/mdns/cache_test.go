package mdns

import (
	"testing"
	"time"
)

func TestCacheAddAndGet(t *testing.T) {
	c := NewCache(10)
	now := time.Now()
	c.Add(Record{Name: "denpa.local", Type: TypeA, TTL: 120, A: [4]byte{1, 2, 3, 4}}, now)

	got := c.Get("denpa.local", TypeA)
	if len(got) != 1 || got[0].A != [4]byte{1, 2, 3, 4} {
		t.Fatalf("got %+v", got)
	}
}

func TestCacheGoodbyeRemovesEntry(t *testing.T) {
	c := NewCache(10)
	now := time.Now()
	c.Add(Record{Name: "denpa.local", Type: TypeA, TTL: 120, A: [4]byte{1, 2, 3, 4}}, now)
	c.Add(Record{Name: "denpa.local", Type: TypeA, TTL: 0, A: [4]byte{1, 2, 3, 4}}, now)

	if got := c.Get("denpa.local", TypeA); len(got) != 0 {
		t.Fatalf("expected goodbye to remove entry, got %+v", got)
	}
}

func TestCacheEvictsOldestBeyondCapacity(t *testing.T) {
	c := NewCache(2)
	now := time.Now()
	c.Add(Record{Name: "a.local", Type: TypeA, TTL: 120, A: [4]byte{1, 1, 1, 1}}, now)
	c.Add(Record{Name: "b.local", Type: TypeA, TTL: 120, A: [4]byte{2, 2, 2, 2}}, now)
	c.Add(Record{Name: "c.local", Type: TypeA, TTL: 120, A: [4]byte{3, 3, 3, 3}}, now)

	if c.Len() != 2 {
		t.Fatalf("expected capacity-bounded cache to hold 2 entries, got %d", c.Len())
	}
	if got := c.Get("a.local", TypeA); len(got) != 0 {
		t.Fatalf("expected oldest entry evicted, got %+v", got)
	}
}

func TestCacheExpiredEntriesAreEvicted(t *testing.T) {
	c := NewCache(10)
	now := time.Now()
	c.Add(Record{Name: "denpa.local", Type: TypeA, TTL: 1, A: [4]byte{1, 2, 3, 4}}, now)

	expired := c.Expired(now.Add(2 * time.Second))
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired entry, got %d", len(expired))
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, remaining %d", c.Len())
	}
}

func TestCacheDueForRequeryFiresEachPointOnce(t *testing.T) {
	c := NewCache(10)
	now := time.Now()
	c.Add(Record{Name: "denpa.local", Type: TypeA, TTL: 100, A: [4]byte{1, 2, 3, 4}}, now)

	due := c.DueForRequery(now.Add(85 * time.Second))
	if len(due) != 1 {
		t.Fatalf("expected penultimate requery to fire once, got %d", len(due))
	}
	due = c.DueForRequery(now.Add(85 * time.Second))
	if len(due) != 0 {
		t.Fatalf("expected no duplicate requery for the same point, got %d", len(due))
	}
}

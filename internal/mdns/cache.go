package mdns

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry is a received record plus the bookkeeping needed to drive
// RFC 6762 §5.2's opportunistic-refresh schedule (requery at 80/90/95% of
// TTL, expire and deliver a goodbye at 100%).
type cacheEntry struct {
	rec        Record
	receivedAt time.Time
	requeried  [3]bool // penultimate (80%), final (90%), last-chance (95%)
}

func (e *cacheEntry) expiresAt() time.Time {
	return e.receivedAt.Add(time.Duration(e.rec.TTL) * time.Second)
}

func (e *cacheEntry) refreshPoints() [3]time.Time {
	ttl := time.Duration(e.rec.TTL) * time.Second
	return [3]time.Time{
		e.receivedAt.Add(ttl * 80 / 100),
		e.receivedAt.Add(ttl * 90 / 100),
		e.receivedAt.Add(ttl * 95 / 100),
	}
}

// Cache is a bounded LRU of records learned from the network, keyed by
// (name, type, rdata) so distinct records under the same name/type coexist.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// NewCache returns an empty cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	return &Cache{capacity: capacity, ll: list.New(), items: make(map[string]*list.Element)}
}

func cacheKey(r Record) string {
	return string(rune(r.Type)) + "|" + r.Name + "|" + rdataKey(r)
}

func rdataKey(r Record) string {
	switch r.Type {
	case TypeA:
		return string(r.A[:])
	case TypePTR:
		return r.PTR
	case TypeCNAME:
		return r.CNAME
	case TypeSRV:
		return r.SRV.Target
	case TypeTXT:
		return joinTXT(r.TXT)
	default:
		return ""
	}
}

// Add inserts or refreshes a record. A TTL of 0 is a goodbye: the matching
// entry (if any) is removed immediately instead of cached.
func (c *Cache) Add(r Record, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(r)
	if r.TTL == 0 {
		if el, ok := c.items[key]; ok {
			c.ll.Remove(el)
			delete(c.items, key)
		}
		return
	}

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).rec = r
		el.Value.(*cacheEntry).receivedAt = now
		el.Value.(*cacheEntry).requeried = [3]bool{}
		return
	}

	entry := &cacheEntry{rec: r, receivedAt: now}
	el := c.ll.PushFront(entry)
	c.items[key] = el

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, cacheKey(oldest.Value.(*cacheEntry).rec))
	}
}

// Get returns every cached record matching the name and type. It applies no
// known-answer TTL check: it just returns raw matches, leaving the TTL
// comparison to the caller (who has the incoming question's claimed
// TTL, not something the cache itself knows about).
func (c *Cache) Get(nameQ string, t RRType) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Record
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*cacheEntry)
		if e.rec.Name != nameQ {
			continue
		}
		if t != TypeANY && e.rec.Type != t && e.rec.Type != TypeCNAME {
			continue
		}
		out = append(out, e.rec)
	}
	return out
}

// Expired returns, and evicts, every entry whose TTL has fully elapsed as of
// now. Callers use this to deliver goodbye notifications to subscribers.
func (c *Cache) Expired(now time.Time) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []Record
	for el := c.ll.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*cacheEntry)
		if !now.Before(e.expiresAt()) {
			expired = append(expired, e.rec)
			c.ll.Remove(el)
			delete(c.items, cacheKey(e.rec))
		}
		el = next
	}
	return expired
}

// DueForRequery returns records that have crossed a refresh point
// (80/90/95% of TTL) that hasn't been acted on yet, marking it acted-on as
// it reports each one.
func (c *Cache) DueForRequery(now time.Time) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []Record
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*cacheEntry)
		points := e.refreshPoints()
		for i, p := range points {
			if !e.requeried[i] && !now.Before(p) {
				e.requeried[i] = true
				due = append(due, e.rec)
			}
		}
	}
	return due
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

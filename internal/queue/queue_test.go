package queue

import "testing"

func TestAddAndCount(t *testing.T) {
	q := New()
	if q.Count() != 0 {
		t.Fatalf("expected empty queue")
	}
	id1 := q.Add(Item{FileID: 1})
	id2 := q.Add(Item{FileID: 2})
	if id1 == 0 || id2 == 0 || id1 == id2 {
		t.Fatalf("expected distinct nonzero item ids, got %d %d", id1, id2)
	}
	if q.Count() != 2 {
		t.Fatalf("expected 2 items, got %d", q.Count())
	}
}

func TestGetByIndexOrdersMatchInsertion(t *testing.T) {
	q := New()
	ids := []uint32{q.Add(Item{FileID: 1}), q.Add(Item{FileID: 2}), q.Add(Item{FileID: 3})}
	for i, id := range ids {
		got, ok := q.GetByIndex(i, false)
		if !ok || got.ItemID != id {
			t.Fatalf("index %d: got %+v ok=%v, want item id %d", i, got, ok, id)
		}
	}
	if _, ok := q.GetByIndex(3, false); ok {
		t.Fatalf("expected out-of-range index to miss")
	}
}

func TestAddAfterInsertsBetween(t *testing.T) {
	q := New()
	a := q.Add(Item{FileID: 1})
	c := q.Add(Item{FileID: 3})
	b, ok := q.AddAfter(Item{FileID: 2}, a)
	if !ok {
		t.Fatalf("expected AddAfter to succeed")
	}

	first, _ := q.GetByIndex(0, false)
	second, _ := q.GetByIndex(1, false)
	third, _ := q.GetByIndex(2, false)
	if first.ItemID != a || second.ItemID != b || third.ItemID != c {
		t.Fatalf("expected order a,b,c got %d,%d,%d", first.ItemID, second.ItemID, third.ItemID)
	}

	if _, ok := q.AddAfter(Item{FileID: 4}, 9999); ok {
		t.Fatalf("expected AddAfter to fail for an unknown item id")
	}
}

func TestRemoveByItemID(t *testing.T) {
	q := New()
	a := q.Add(Item{FileID: 1})
	b := q.Add(Item{FileID: 2})

	if !q.RemoveByItemID(a) {
		t.Fatalf("expected removal to succeed")
	}
	if q.Count() != 1 {
		t.Fatalf("expected 1 item left, got %d", q.Count())
	}
	got, ok := q.GetByIndex(0, false)
	if !ok || got.ItemID != b {
		t.Fatalf("expected remaining item %d, got %+v", b, got)
	}
	if q.RemoveByItemID(0) {
		t.Fatalf("removing the head should be a no-op")
	}
}

func TestNextWithRepeatModes(t *testing.T) {
	q := New()
	a := q.Add(Item{FileID: 1})
	b := q.Add(Item{FileID: 2})

	first, ok := q.Next(0, false, RepeatOff, false)
	if !ok || first.ItemID != a {
		t.Fatalf("expected first item from start, got %+v ok=%v", first, ok)
	}
	second, ok := q.Next(a, false, RepeatOff, false)
	if !ok || second.ItemID != b {
		t.Fatalf("expected second item, got %+v ok=%v", second, ok)
	}
	if _, ok := q.Next(b, false, RepeatOff, false); ok {
		t.Fatalf("expected end of queue under RepeatOff")
	}

	wrapped, ok := q.Next(b, false, RepeatAll, false)
	if !ok || wrapped.ItemID != a {
		t.Fatalf("expected wrap to first item under RepeatAll, got %+v ok=%v", wrapped, ok)
	}

	same, ok := q.Next(a, false, RepeatSong, false)
	if !ok || same.ItemID != a {
		t.Fatalf("expected RepeatSong to return the same item, got %+v ok=%v", same, ok)
	}
}

func TestPrev(t *testing.T) {
	q := New()
	a := q.Add(Item{FileID: 1})
	b := q.Add(Item{FileID: 2})

	got, ok := q.Prev(b, false, RepeatOff)
	if !ok || got.ItemID != a {
		t.Fatalf("expected prev of b to be a, got %+v ok=%v", got, ok)
	}
	if _, ok := q.Prev(a, false, RepeatOff); ok {
		t.Fatalf("expected start of queue under RepeatOff")
	}
}

func TestMoveByPos(t *testing.T) {
	q := New()
	a := q.Add(Item{FileID: 1})
	b := q.Add(Item{FileID: 2})
	c := q.Add(Item{FileID: 3})

	// Positions are relative to anchor a: from_pos=2 is c, to_offset=0
	// places it immediately after a, giving order a, c, b.
	if !q.MoveByPos(a, 2, 0, false) {
		t.Fatalf("expected move to succeed")
	}
	first, _ := q.GetByIndex(0, false)
	second, _ := q.GetByIndex(1, false)
	third, _ := q.GetByIndex(2, false)
	if first.ItemID != a || second.ItemID != c || third.ItemID != b {
		t.Fatalf("expected order a,c,b got %d,%d,%d", first.ItemID, second.ItemID, third.ItemID)
	}
}

func TestShuffleCoversEveryItemExactlyOnce(t *testing.T) {
	q := New()
	ids := make(map[uint32]bool)
	for i := 0; i < 20; i++ {
		ids[q.Add(Item{FileID: int64(i)})] = true
	}
	q.Shuffle(0)

	seen := make(map[uint32]bool)
	cur, ok := q.Next(0, true, RepeatOff, false)
	for ok {
		if seen[cur.ItemID] {
			t.Fatalf("item %d visited twice in shuffle order", cur.ItemID)
		}
		seen[cur.ItemID] = true
		cur, ok = q.Next(cur.ItemID, true, RepeatOff, false)
	}
	if len(seen) != len(ids) {
		t.Fatalf("shuffle order visited %d items, want %d", len(seen), len(ids))
	}
	for id := range ids {
		if !seen[id] {
			t.Fatalf("item %d missing from shuffle order", id)
		}
	}
}

func TestShuffleAfterItemKeepsPrefixInPlace(t *testing.T) {
	q := New()
	a := q.Add(Item{FileID: 1})
	for i := 0; i < 10; i++ {
		q.Add(Item{FileID: int64(i + 2)})
	}
	q.Shuffle(a)

	first, ok := q.Next(0, true, RepeatOff, false)
	if !ok || first.ItemID != a {
		t.Fatalf("expected shuffled-after item to keep the prefix item first, got %+v ok=%v", first, ok)
	}
}

func TestClear(t *testing.T) {
	q := New()
	q.Add(Item{FileID: 1})
	q.Add(Item{FileID: 2})
	q.Clear()
	if q.Count() != 0 {
		t.Fatalf("expected empty queue after Clear, got %d", q.Count())
	}
	if _, ok := q.GetByIndex(0, false); ok {
		t.Fatalf("expected no items after Clear")
	}
}

func TestItemIDsNeverReused(t *testing.T) {
	q := New()
	a := q.Add(Item{FileID: 1})
	q.RemoveByItemID(a)
	b := q.Add(Item{FileID: 2})
	if b == a {
		t.Fatalf("expected item id to not be reused after removal")
	}
}

func TestVersionIncrementsOnMutation(t *testing.T) {
	q := New()
	v0 := q.Version()
	id := q.Add(Item{FileID: 1})
	if q.Version() == v0 {
		t.Fatalf("expected version to change after Add")
	}
	v1 := q.Version()
	q.RemoveByItemID(id)
	if q.Version() == v1 {
		t.Fatalf("expected version to change after RemoveByItemID")
	}
}

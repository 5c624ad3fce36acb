package mdns

import "testing"

func TestIncrementSuffixFirstCollision(t *testing.T) {
	got := incrementSuffix("Library.local")
	if got != "Library 2.local" {
		t.Fatalf("got %q", got)
	}
}

func TestIncrementSuffixSubsequentCollision(t *testing.T) {
	got := incrementSuffix("Library 2.local")
	if got != "Library 3.local" {
		t.Fatalf("got %q", got)
	}
}

func TestIncrementSuffixNoTrailingName(t *testing.T) {
	got := incrementSuffix("Library")
	if got != "Library 2" {
		t.Fatalf("got %q", got)
	}
}

func TestConflictsDetectsDifferentRData(t *testing.T) {
	lr := &localRecord{rec: Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{1, 1, 1, 1}}}
	other := Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{2, 2, 2, 2}}
	if !lr.conflicts(other) {
		t.Fatalf("expected a conflict for differing A records")
	}
}

func TestConflictsIgnoresIdenticalRData(t *testing.T) {
	lr := &localRecord{rec: Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{1, 1, 1, 1}}}
	other := Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{1, 1, 1, 1}}
	if lr.conflicts(other) {
		t.Fatalf("expected no conflict for identical rdata")
	}
}

func TestConflictsIgnoresUnrelatedNames(t *testing.T) {
	lr := &localRecord{rec: Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{1, 1, 1, 1}}}
	other := Record{Name: "other.local", Type: TypeA, Class: ClassIN, A: [4]byte{2, 2, 2, 2}}
	if lr.conflicts(other) {
		t.Fatalf("expected no conflict for a different name")
	}
}

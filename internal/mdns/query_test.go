package mdns

import "testing"

func activeRecord(rec Record) *localRecord {
	return &localRecord{rec: rec, state: StateActive}
}

func TestMatchQuestionByTypeAndName(t *testing.T) {
	records := []*localRecord{
		activeRecord(Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{1, 2, 3, 4}}),
		activeRecord(Record{Name: "other.local", Type: TypeA, Class: ClassIN, A: [4]byte{5, 6, 7, 8}}),
	}
	got := matchQuestion(records, Question{Name: "denpa.local", Type: TypeA, Class: ClassIN})
	if len(got) != 1 || got[0].Name != "denpa.local" {
		t.Fatalf("got %+v", got)
	}
}

func TestMatchQuestionTypeANYMatchesEverything(t *testing.T) {
	records := []*localRecord{
		activeRecord(Record{Name: "denpa.local", Type: TypeA, Class: ClassIN}),
		activeRecord(Record{Name: "denpa.local", Type: TypeTXT, Class: ClassIN}),
	}
	got := matchQuestion(records, Question{Name: "denpa.local", Type: TypeANY, Class: ClassIN})
	if len(got) != 2 {
		t.Fatalf("expected both records for qtype ANY, got %d", len(got))
	}
}

func TestMatchQuestionSkipsUnverifiedRecords(t *testing.T) {
	records := []*localRecord{
		{rec: Record{Name: "denpa.local", Type: TypeA, Class: ClassIN}, state: StateUnique},
	}
	got := matchQuestion(records, Question{Name: "denpa.local", Type: TypeA, Class: ClassIN})
	if len(got) != 0 {
		t.Fatalf("expected probing record to be withheld from answers, got %+v", got)
	}
}

func TestKnownAnswerSuppressedWhenFreshEnough(t *testing.T) {
	rec := Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, TTL: 120, A: [4]byte{1, 2, 3, 4}}
	known := []Record{{Name: "denpa.local", Type: TypeA, Class: ClassIN, TTL: 100, A: [4]byte{1, 2, 3, 4}}}
	if !knownAnswerSuppressed(known, rec) {
		t.Fatalf("expected suppression: known TTL*2 >= rec.TTL")
	}
}

func TestKnownAnswerNotSuppressedWhenStale(t *testing.T) {
	rec := Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, TTL: 120, A: [4]byte{1, 2, 3, 4}}
	known := []Record{{Name: "denpa.local", Type: TypeA, Class: ClassIN, TTL: 10, A: [4]byte{1, 2, 3, 4}}}
	if knownAnswerSuppressed(known, rec) {
		t.Fatalf("expected no suppression: known TTL too low")
	}
}

func TestKnownAnswerNotSuppressedWhenRDataDiffers(t *testing.T) {
	rec := Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, TTL: 120, A: [4]byte{1, 2, 3, 4}}
	known := []Record{{Name: "denpa.local", Type: TypeA, Class: ClassIN, TTL: 120, A: [4]byte{9, 9, 9, 9}}}
	if knownAnswerSuppressed(known, rec) {
		t.Fatalf("expected no suppression: rdata differs")
	}
}

func TestAdditionalsForSRVFollowsTarget(t *testing.T) {
	records := []*localRecord{
		activeRecord(Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{1, 2, 3, 4}}),
	}
	srv := Record{Name: "Library._daap._tcp.local", Type: TypeSRV, Class: ClassIN,
		SRV: SRVData{Port: 3689, Target: "denpa.local"}}

	got := additionalsFor(records, srv)
	if len(got) != 1 || got[0].Type != TypeA {
		t.Fatalf("got %+v", got)
	}
}

func TestAdditionalsForNonSRVIsEmpty(t *testing.T) {
	records := []*localRecord{activeRecord(Record{Name: "denpa.local", Type: TypeA, Class: ClassIN})}
	got := additionalsFor(records, Record{Name: "denpa.local", Type: TypeA, Class: ClassIN})
	if len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestDedupeRecordsRemovesDuplicates(t *testing.T) {
	a := Record{Name: "denpa.local", Type: TypeA, Class: ClassIN, A: [4]byte{1, 2, 3, 4}}
	got := dedupeRecords([]Record{a, a})
	if len(got) != 1 {
		t.Fatalf("expected duplicates collapsed, got %d", len(got))
	}
}

func TestWantsUnicastDetectsQUBit(t *testing.T) {
	qu := Question{Name: "denpa.local", Type: TypeA, Class: ClassIN | 0x8000}
	if !wantsUnicast([]Question{qu}) {
		t.Fatalf("expected QU bit to request a unicast response")
	}
	normal := Question{Name: "denpa.local", Type: TypeA, Class: ClassIN}
	if wantsUnicast([]Question{normal}) {
		t.Fatalf("expected no unicast request without the QU bit")
	}
}

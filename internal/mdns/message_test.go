package mdns

import "testing"

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	answers := []Record{
		{Name: "denpa.local", Type: TypeA, Class: ClassIN | CacheFlushBit, TTL: 120, A: [4]byte{192, 168, 1, 10}},
		{Name: "_daap._tcp.local", Type: TypePTR, Class: ClassIN, TTL: 4500, PTR: "Library._daap._tcp.local"},
	}
	additionals := []Record{
		{Name: "Library._daap._tcp.local", Type: TypeSRV, Class: ClassIN | CacheFlushBit, TTL: 120,
			SRV: SRVData{Priority: 0, Weight: 0, Port: 3689, Target: "denpa.local"}},
		{Name: "Library._daap._tcp.local", Type: TypeTXT, Class: ClassIN | CacheFlushBit, TTL: 120,
			TXT: []string{"txtvers=1", "Database ID=1"}},
	}

	wire := EncodeResponse(42, answers, additionals)
	msg, err := ParseMessage(wire)
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Response {
		t.Fatalf("expected response flag set")
	}
	if len(msg.Answers) != 2 || len(msg.Additionals) != 2 {
		t.Fatalf("got %d answers, %d additionals", len(msg.Answers), len(msg.Additionals))
	}
	if msg.Answers[0].A != answers[0].A {
		t.Fatalf("A record round-trip mismatch: got %v want %v", msg.Answers[0].A, answers[0].A)
	}
	if msg.Answers[1].PTR != answers[1].PTR {
		t.Fatalf("PTR round-trip mismatch: got %q want %q", msg.Answers[1].PTR, answers[1].PTR)
	}
	if msg.Additionals[0].SRV != additionals[0].SRV {
		t.Fatalf("SRV round-trip mismatch: got %+v want %+v", msg.Additionals[0].SRV, additionals[0].SRV)
	}
	if len(msg.Additionals[1].TXT) != 2 || msg.Additionals[1].TXT[0] != "txtvers=1" {
		t.Fatalf("TXT round-trip mismatch: got %v", msg.Additionals[1].TXT)
	}
}

func TestEncodeProbeCarriesAuthority(t *testing.T) {
	q := Question{Name: "denpa.local", Type: TypeA, Class: ClassIN}
	authority := []Record{{Name: "denpa.local", Type: TypeA, Class: ClassIN, TTL: 120, A: [4]byte{10, 0, 0, 1}}}

	wire := EncodeProbe(7, []Question{q}, authority)
	msg, err := ParseMessage(wire)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Response {
		t.Fatalf("expected a query, not a response")
	}
	if len(msg.Questions) != 1 || msg.Questions[0].Name != "denpa.local" {
		t.Fatalf("got questions %+v", msg.Questions)
	}
	if len(msg.Authorities) != 1 || msg.Authorities[0].A != authority[0].A {
		t.Fatalf("got authorities %+v", msg.Authorities)
	}
}

func TestNameCompressionSharesRepeatedSuffix(t *testing.T) {
	// Two records with identical CNAME target names should compress: the
	// second occurrence of "denpa.local" becomes a 2-byte pointer.
	answers := []Record{
		{Name: "a.denpa.local", Type: TypeCNAME, Class: ClassIN, TTL: 120, CNAME: "denpa.local"},
		{Name: "b.denpa.local", Type: TypeCNAME, Class: ClassIN, TTL: 120, CNAME: "denpa.local"},
	}
	wire := EncodeResponse(1, answers, nil)

	uncompressedLen := 0
	for _, a := range answers {
		n, _ := nameLen(a.Name)
		c, _ := nameLen(a.CNAME)
		uncompressedLen += n + c
	}
	// Uncompressed, each record also carries 10 bytes of type, class, TTL
	// and rdlength.
	if len(wire) >= uncompressedLen+headerLen+2*10 {
		t.Fatalf("expected compression to shrink the message, got %d bytes", len(wire))
	}

	msg, err := ParseMessage(wire)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Answers[0].CNAME != "denpa.local" || msg.Answers[1].CNAME != "denpa.local" {
		t.Fatalf("got %+v", msg.Answers)
	}
}

func nameLen(n string) (int, error) {
	b := make([]byte, 0)
	for _, part := range splitDots(n) {
		b = append(b, byte(len(part)))
		b = append(b, part...)
	}
	return len(b) + 1, nil
}

func splitDots(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

package dmap

import "testing"

// TestRegistryComplete asserts every tag has both a type and a description,
// the Go equivalent of §9's "compile-time check ensures every tag has both a
// type and a description" — Go has no user-level compile-time assertions
// over map literals, so this invariant is enforced as a unit test instead.
func TestRegistryComplete(t *testing.T) {
	for tag, info := range registry {
		if len(tag) != 4 {
			t.Errorf("tag %q is not 4 bytes", tag)
		}
		if info.Desc == "" {
			t.Errorf("tag %q has no description", tag)
		}
		switch info.Type {
		case TypeByte, TypeUByte, TypeShort, TypeInt, TypeLong, TypeString, TypeDate, TypeVersion, TypeContainer:
		default:
			t.Errorf("tag %q has unknown type %d", tag, info.Type)
		}
	}
}

// TestFieldRegistryTagsAreRegistered ensures every tag a projection Field
// emits is itself a registered DMAP tag, so the content-codes dump and the
// field projection table never drift apart.
func TestFieldRegistryTagsAreRegistered(t *testing.T) {
	for f, m := range fieldRegistry {
		if m.MetaName == "" {
			t.Errorf("field %d has no meta name", f)
		}
		for _, tag := range m.Tags {
			if _, ok := registry[tag]; !ok {
				t.Errorf("field %q emits unregistered tag %q", m.MetaName, tag)
			}
		}
	}
}

func TestCodecWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.AddContainer("mlit", func(w *Writer) {
		w.AddInt("miid", 7)
		w.AddString("minm", "Song Title")
	})

	r := NewReader(w.Bytes())
	el, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if el.Tag != "mlit" || el.Type != TypeContainer {
		t.Fatalf("got %+v", el)
	}

	inner := NewReader(el.Payload)
	e1, _, _ := inner.Next()
	if e1.Tag != "miid" || len(e1.Payload) != 4 {
		t.Fatalf("e1 = %+v", e1)
	}
	e2, _, _ := inner.Next()
	if e2.Tag != "minm" || string(e2.Payload) != "Song Title" {
		t.Fatalf("e2 = %+v", e2)
	}
	if _, ok, _ := inner.Next(); ok {
		t.Fatalf("expected exhaustion")
	}
}

func TestParseProjectionDefaultsAndUnknown(t *testing.T) {
	b := ParseProjection([]string{"dmap.itemid", "dmap.itemname", "bogus.field"})
	if !b.Has(FieldItemID) || !b.Has(FieldItemName) {
		t.Fatalf("expected itemid+itemname set, got %b", b)
	}
	if b.Has(FieldSongArtist) {
		t.Fatalf("unexpected field set")
	}
}

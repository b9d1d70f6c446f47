package codec

import (
	"errors"
	"testing"
)

func TestRoundTripAllKinds(t *testing.T) {
	c, err := New("test-salt")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	for _, kind := range kinds {
		for _, id := range []int64{0, 1, 42, 999999} {
			s, err := c.Encode(kind, id)
			if err != nil {
				t.Fatalf("encode %s %d: %v", kind, id, err)
			}
			if len(s) < 8 {
				t.Fatalf("encode %s %d: code %q shorter than min length", kind, id, s)
			}
			got, err := c.Decode(kind, s)
			if err != nil {
				t.Fatalf("decode %s %q: %v", kind, s, err)
			}
			if got != id {
				t.Fatalf("round trip %s: got %d, want %d", kind, got, id)
			}
		}
	}
}

func TestDecodeWrongKind(t *testing.T) {
	c, err := New("test-salt")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	s, err := c.Encode(KindProject, 7)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err = c.Decode(KindEvent, s)
	if !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	c, err := New("test-salt")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	for _, s := range []string{"", "!!!", "abc def", "häx"} {
		_, err := c.Decode(KindProject, s)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("decode %q: expected ErrMalformed, got %v", s, err)
		}
	}
}

func TestDifferentSaltsDoNotCollide(t *testing.T) {
	a, err := New("salt-a")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	b, err := New("salt-b")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	s, err := a.Encode(KindTag, 123)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, err := b.Decode(KindTag, s); err == nil && got == 123 {
		t.Fatalf("codec with different salt decoded %q to the same id", s)
	}
}

func TestDecodeSet(t *testing.T) {
	c, err := New("test-salt")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	want := []int64{1, 2, 3}
	ss := make([]string, 0, len(want))
	for _, id := range want {
		s, err := c.Encode(KindReminder, id)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		ss = append(ss, s)
	}

	got, err := c.DecodeSet(KindReminder, ss)
	if err != nil {
		t.Fatalf("decode set: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("decode set: got %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decode set[%d]: got %d, want %d", i, got[i], want[i])
		}
	}

	if _, err := c.DecodeSet(KindReminder, []string{ss[0], "???"}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

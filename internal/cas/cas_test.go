package cas

import (
	"bytes"
	"strings"
	"testing"
)

func TestSumB3Deterministic(t *testing.T) {
	data := []byte("four bar loop")
	if SumB3(data) != SumB3(data) {
		t.Fatal("SumB3 not deterministic")
	}
	if SumB3(data) == SumB3([]byte("different")) {
		t.Fatal("distinct content hashed identically")
	}
}

func TestParseHashRoundTrip(t *testing.T) {
	hash := SumB3([]byte("content"))
	parsed, err := ParseHash(hash.String())
	if err != nil {
		t.Fatalf("ParseHash failed: %v", err)
	}
	if parsed != hash {
		t.Fatalf("round trip mismatch: %s != %s", parsed, hash)
	}

	if _, err := ParseHash("abc"); err == nil {
		t.Fatal("expected error for short hash")
	}
	if _, err := ParseHash(strings.Repeat("z", 64)); err == nil {
		t.Fatal("expected error for non-hex hash")
	}
}

func TestMemoryCAS(t *testing.T) {
	store := NewMemoryCAS()
	data := []byte("kick pattern")
	hash := SumB3(data)

	if err := store.Put(hash, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("Get returned different content")
	}

	if err := store.Put(hash, []byte("tampered")); err == nil {
		t.Fatal("expected hash mismatch error")
	}

	has, err := store.Has(SumB3([]byte("absent")))
	if err != nil || has {
		t.Fatalf("Has(absent) = %v, %v", has, err)
	}
}

func TestFileCASRoundTrip(t *testing.T) {
	store, err := NewFileCAS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCAS failed: %v", err)
	}

	data := []byte("a MIDI blob with enough repetition to compress compress compress")
	hash := SumB3(data)

	if err := store.Put(hash, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// Content-addressed: rewriting must be a no-op, not an error.
	if err := store.Put(hash, data); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("Get returned different content after decompression")
	}

	has, err := store.Has(hash)
	if err != nil || !has {
		t.Fatalf("Has = %v, %v", has, err)
	}
	if _, err := store.Get(SumB3([]byte("absent"))); err == nil {
		t.Fatal("expected error for absent hash")
	}
}

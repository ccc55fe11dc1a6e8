package dedupe

import "testing"

func TestSetInsertNovelty(t *testing.T) {
	s := NewSet(2)
	if !s.Insert("a") {
		t.Fatal("expected a to be novel")
	}
	if s.Insert("a") {
		t.Fatal("expected a to be a duplicate on second insert")
	}
}

func TestSetEvictsOldest(t *testing.T) {
	s := NewSet(2)
	s.Insert("a")
	s.Insert("b")
	s.Insert("c") // evicts "a"

	if s.Contains("a") {
		t.Fatal("expected a to be evicted")
	}
	if !s.Contains("b") || !s.Contains("c") {
		t.Fatal("expected b and c to remain")
	}
	if s.Len() != 2 {
		t.Fatalf("expected len 2, got %d", s.Len())
	}
}

func TestBackoffTripAndExpire(t *testing.T) {
	var b Backoff
	if active, _ := b.Active(); active {
		t.Fatal("expected no back-off initially")
	}
	b.Trip(-1) // already expired
	if active, _ := b.Active(); active {
		t.Fatal("expected back-off set in the past to be inactive")
	}
}

package hft

import "testing"

func TestSPSCRingPushPop(t *testing.T) {
	r := NewSPSCRing[int](4)
	if r.Cap() != 4 {
		t.Fatalf("expected capacity 4, got %d", r.Cap())
	}
	for i := 0; i < 4; i++ {
		if !r.TryPush(i) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	if r.TryPush(99) {
		t.Fatal("push into full ring should fail")
	}
	for i := 0; i < 4; i++ {
		v, ok := r.TryPop()
		if !ok || v != i {
			t.Fatalf("expected (%d, true), got (%v, %v)", i, v, ok)
		}
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("pop from empty ring should fail")
	}
}

func TestSPSCRingRoundsUpToPowerOfTwo(t *testing.T) {
	r := NewSPSCRing[int](5)
	if r.Cap() != 8 {
		t.Fatalf("expected rounded capacity 8, got %d", r.Cap())
	}
}

func TestPoolAllocateDeallocate(t *testing.T) {
	p := NewPool[struct{ X int }](2)
	a := p.Allocate()
	b := p.Allocate()
	if a == nil || b == nil {
		t.Fatal("expected two allocations to succeed")
	}
	if p.Allocate() != nil {
		t.Fatal("pool should be exhausted")
	}
	p.Deallocate(a)
	if p.InUse() != 1 {
		t.Fatalf("expected 1 in use after one dealloc, got %d", p.InUse())
	}
	c := p.Allocate()
	if c == nil {
		t.Fatal("expected reuse of freed slot")
	}
}

func TestFlatMapPutGet(t *testing.T) {
	m := NewFlatMap[int](8)
	if !m.Put("a", 1) || !m.Put("b", 2) {
		t.Fatal("expected inserts to succeed")
	}
	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("expected (1,true), got (%v,%v)", v, ok)
	}
	if !m.Contains("b") {
		t.Fatal("expected b to be present")
	}
	if m.Contains("missing") {
		t.Fatal("missing key should not be present")
	}
	m.Put("a", 10)
	if v, _ := m.Get("a"); v != 10 {
		t.Fatalf("expected overwrite to 10, got %d", v)
	}
	if m.Len() != 2 {
		t.Fatalf("expected len 2, got %d", m.Len())
	}
}

func TestFlatMapFull(t *testing.T) {
	m := NewFlatMap[int](2)
	if !m.Put("a", 1) || !m.Put("b", 2) {
		t.Fatal("expected two inserts to succeed")
	}
	if m.Put("c", 3) {
		t.Fatal("expected third insert into full map to fail")
	}
}

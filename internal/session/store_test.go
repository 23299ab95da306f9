package session

import (
	"sync"
	"testing"
	"time"
)

type draft struct {
	Size  string
	Price int
}

func TestStore_GetMissingReturnsZero(t *testing.T) {
	s := New[draft](time.Hour)
	d, ok := s.Get(1)
	if ok || d != (draft{}) {
		t.Fatalf("expected zero value and ok=false, got %+v %v", d, ok)
	}
}

func TestStore_UpdateCreatesAndMutates(t *testing.T) {
	s := New[draft](time.Hour)
	got := s.Update(7, func(d *draft) { d.Size = "M" })
	if got.Size != "M" {
		t.Fatalf("Update result = %+v", got)
	}
	s.Update(7, func(d *draft) { d.Price = 1150 })
	d, ok := s.Get(7)
	if !ok || d.Size != "M" || d.Price != 1150 {
		t.Fatalf("partial updates not merged: %+v", d)
	}
	if other, ok := s.Get(8); ok || other.Size != "" {
		t.Fatalf("entries must be isolated per id")
	}
}

func TestStore_Clear(t *testing.T) {
	s := New[draft](0)
	s.Set(1, draft{Size: "L"})
	s.Clear(1)
	if _, ok := s.Get(1); ok {
		t.Fatalf("entry should be gone after Clear")
	}
}

func TestStore_ExpiresIdleEntries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := New[draft](time.Minute)
	s.now = func() time.Time { return now }

	s.Set(1, draft{Size: "S"})
	now = now.Add(30 * time.Second)
	if _, ok := s.Get(1); !ok {
		t.Fatalf("entry should still be live")
	}
	// Get refreshed lastSeen, so another 59s keeps it alive.
	now = now.Add(59 * time.Second)
	if _, ok := s.Get(1); !ok {
		t.Fatalf("access should extend lifetime")
	}
	now = now.Add(time.Minute)
	if _, ok := s.Get(1); ok {
		t.Fatalf("entry should have expired")
	}
	// Update after expiry starts from a fresh zero value.
	d := s.Update(1, func(d *draft) { d.Price = 1 })
	if d.Size != "" || d.Price != 1 {
		t.Fatalf("expired entry leaked into new value: %+v", d)
	}
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Unix(0, 0)
	s := New[draft](0)
	s.now = func() time.Time { return now }
	s.Set(1, draft{Size: "XL"})
	now = now.Add(1000 * time.Hour)
	if d, ok := s.Get(1); !ok || d.Size != "XL" {
		t.Fatalf("zero ttl entry lost: %+v %v", d, ok)
	}
}

func TestStore_SweepEvictsOthers(t *testing.T) {
	now := time.Unix(0, 0)
	s := New[draft](time.Minute)
	s.now = func() time.Time { return now }
	s.sweepAt = 2

	s.Set(1, draft{})
	s.Set(2, draft{})
	now = now.Add(2 * time.Minute)
	s.Get(3)
	s.Get(3)
	if n := s.Len(); n != 0 {
		t.Fatalf("sweep should evict idle entries, have %d", n)
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := New[draft](time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(1, func(d *draft) { d.Price++ })
		}()
	}
	wg.Wait()
	if d, _ := s.Get(1); d.Price != 50 {
		t.Fatalf("lost updates: %d", d.Price)
	}
}

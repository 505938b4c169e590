package store

import (
	"testing"
	"time"
)

func TestIDSourceIsMonotonic(t *testing.T) {
	ids := NewIDSource()
	now := time.Now()
	prev := ""
	for i := 0; i < 100; i++ {
		id := ids.New(now)
		if len(id) != 26 {
			t.Fatalf("Expected a 26 character ULID, got %q", id)
		}
		if id <= prev {
			t.Fatalf("IDs not increasing: %q after %q", id, prev)
		}
		prev = id
	}
	if later := ids.New(now.Add(time.Second)); later <= prev {
		t.Errorf("Expected a later timestamp to sort after %q, got %q", prev, later)
	}
}

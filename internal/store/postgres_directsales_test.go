package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestLockOrder_IsStable(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	c := uuid.MustParse("f0000000-0000-0000-0000-000000000000")
	requested := map[uuid.UUID]int{c: 1, a: 2, b: 3}

	for i := 0; i < 20; i++ {
		got := lockOrder(requested)
		if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
			t.Fatalf("expected ids in byte order, got %v", got)
		}
	}
	if got := lockOrder(nil); len(got) != 0 {
		t.Fatalf("expected no ids, got %v", got)
	}
}

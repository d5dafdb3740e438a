// Copyright (c) the snow authors
// Licensed under the MIT license

package capacitycache

import (
	"testing"

	"github.com/hollowtext/snow/internal/wscode"
)

func TestMatchesUncached(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatal(err)
	}

	lines := []string{"", "a short line", "a considerably longer line of cover text than the others"}
	for _, line := range lines {
		wantLo, wantHi := wscode.LineCapacity(line, 80)
		gotLo, gotHi := c.LineCapacity(line, 80)
		if gotLo != wantLo || gotHi != wantHi {
			t.Fatalf("line %q: got (%d,%d) want (%d,%d)", line, gotLo, gotHi, wantLo, wantHi)
		}
	}
}

func TestRepeatedLookupIdempotent(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatal(err)
	}

	lo1, hi1 := c.LineCapacity("repeated line", 80)
	lo2, hi2 := c.LineCapacity("repeated line", 80)
	if lo1 != lo2 || hi1 != hi2 {
		t.Fatalf("cached lookup changed result: (%d,%d) vs (%d,%d)", lo1, hi1, lo2, hi2)
	}
}

func TestAggregateCapacityMatchesS6(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatal(err)
	}

	lines := []string{"", "", ""}
	lo, hi := c.Capacity(lines, 80)
	want := uint64(3*((80/8)*3) - 1)
	if lo != want || hi != want {
		t.Fatalf("got (%d,%d), want %d", lo, hi, want)
	}
}

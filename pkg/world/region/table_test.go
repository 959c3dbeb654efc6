package region

import (
	"slices"
	"testing"
)

func TestTableMerge(t *testing.T) {
	tb := NewTable()
	for range 4 {
		tb.Add()
	}
	if !tb.Merge(2, 1) {
		t.Fatal("Merge(2, 1) reported no change")
	}
	if !tb.Merge(4, 2) {
		t.Fatal("Merge(4, 2) reported no change")
	}
	if tb.Merge(4, 1) {
		t.Error("merging already-equal regions should be a no-op")
	}
	if tb.Merge(Wall, 3) {
		t.Error("merging Wall should be a no-op")
	}

	for _, l := range []int{1, 2, 4} {
		if got := tb.Resolve(l); got != 1 {
			t.Errorf("Resolve(%d) = %d, want 1", l, got)
		}
	}
	if got := tb.Regions(); !slices.Equal(got, []int{1, 3}) {
		t.Errorf("Regions() = %v, want [1 3]", got)
	}
}

func TestTableSnapshotIsCopy(t *testing.T) {
	tb := NewTable()
	tb.Add()
	tb.Add()
	snap := tb.Snapshot()
	tb.Merge(2, 1)
	if snap[2] != 2 {
		t.Error("snapshot changed after merge")
	}
}

package region

// Wall is the label of closed or unlabelled tiles. Region labels start at 1.
const Wall = 0

// Table is the region-id equivalence table: entry i is the id label i
// currently resolves to. It is a union-find kept flat: lookups are a single
// index and merges rewrite every matching entry, which is cheap at chunk scale.
type Table struct {
	ids []int
}

// NewTable returns a table holding only the Wall entry.
func NewTable() *Table {
	return &Table{ids: []int{Wall}}
}

// Add appends a fresh label resolving to itself and returns it.
func (t *Table) Add() int {
	id := len(t.ids)
	t.ids = append(t.ids, id)
	return id
}

// Len returns the number of labels including Wall.
func (t *Table) Len() int { return len(t.ids) }

// Resolve returns the id label currently resolves to.
func (t *Table) Resolve(label int) int { return t.ids[label] }

// Merge makes every label resolving to from resolve to into instead.
// Both arguments are resolved first; merging a region into itself is a no-op.
// It reports whether anything changed.
func (t *Table) Merge(from, into int) bool {
	from, into = t.ids[from], t.ids[into]
	if from == into || from == Wall || into == Wall {
		return false
	}
	for i, id := range t.ids {
		if id == from {
			t.ids[i] = into
		}
	}
	return true
}

// Regions returns the distinct resolved ids in order of their lowest label.
func (t *Table) Regions() []int {
	seen := make(map[int]struct{}, len(t.ids))
	var out []int
	for _, id := range t.ids[1:] {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Snapshot returns a copy of the raw entries, index 0 included.
func (t *Table) Snapshot() []int {
	out := make([]int, len(t.ids))
	copy(out, t.ids)
	return out
}

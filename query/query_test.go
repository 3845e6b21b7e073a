package query

import "testing"

func TestItemContains(t *testing.T) {
	cases := []struct {
		name string
		it   Item
		in   []byte
		want bool
	}{
		{"key match", NewKey([]byte("b")), []byte("b"), true},
		{"key mismatch", NewKey([]byte("b")), []byte("c"), false},
		{"range half-open excludes upper", Item{Kind: Range, Lower: []byte("a"), Upper: []byte("c")}, []byte("c"), false},
		{"range half-open includes lower", Item{Kind: Range, Lower: []byte("a"), Upper: []byte("c")}, []byte("a"), true},
		{"range inclusive includes upper", Item{Kind: RangeInclusive, Lower: []byte("a"), Upper: []byte("c")}, []byte("c"), true},
		{"range after excludes lower", Item{Kind: RangeAfter, Lower: []byte("a")}, []byte("a"), false},
		{"range full contains anything", Item{Kind: RangeFull}, []byte("\xff"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.it.Contains(c.in); got != c.want {
				t.Errorf("Contains(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestIntersectDisjointRanges(t *testing.T) {
	a := Item{Kind: Range, Lower: []byte("a"), Upper: []byte("c")}
	b := Item{Kind: Range, Lower: []byte("d"), Upper: []byte("f")}
	split := Intersect(a, b)
	if split.InBoth != nil {
		t.Fatalf("expected no overlap, got %+v", split.InBoth)
	}
	if split.OursLeft == nil || split.TheirsRight == nil {
		t.Fatalf("expected OursLeft and TheirsRight to be set, got %+v", split)
	}
}

func TestIntersectOverlappingRanges(t *testing.T) {
	a := Item{Kind: RangeInclusive, Lower: []byte("a"), Upper: []byte("e")}
	b := Item{Kind: RangeInclusive, Lower: []byte("c"), Upper: []byte("g")}
	split := Intersect(a, b)
	if split.InBoth == nil {
		t.Fatalf("expected overlap")
	}
	if !split.InBoth.Contains([]byte("d")) {
		t.Fatalf("expected overlap to contain 'd'")
	}
	if split.InBoth.Contains([]byte("b")) {
		t.Fatalf("overlap should not contain 'b'")
	}
	if split.OursLeft == nil || !split.OursLeft.Contains([]byte("a")) {
		t.Fatalf("expected OursLeft to contain 'a'")
	}
	if split.TheirsRight == nil || !split.TheirsRight.Contains([]byte("g")) {
		t.Fatalf("expected TheirsRight to contain 'g'")
	}
}

func TestInsertItemMergesOverlap(t *testing.T) {
	q := New()
	q.InsertItem(Item{Kind: Range, Lower: []byte("a"), Upper: []byte("c")})
	q.InsertItem(Item{Kind: Range, Lower: []byte("b"), Upper: []byte("e")})
	if len(q.Items) != 1 {
		t.Fatalf("expected merged overlapping ranges into one item, got %d", len(q.Items))
	}
	if !q.Items[0].Contains([]byte("d")) {
		t.Fatalf("expected merged range to cover 'd'")
	}
}

func TestInsertItemKeepsDisjoint(t *testing.T) {
	q := New()
	q.InsertItem(NewKey([]byte("a")))
	q.InsertItem(NewKey([]byte("z")))
	if len(q.Items) != 2 {
		t.Fatalf("expected two disjoint items, got %d", len(q.Items))
	}
}

func TestTerminalKeysWalksDefaultSubquery(t *testing.T) {
	inner := New()
	inner.InsertItem(NewKey([]byte("x")))
	outer := New()
	outer.InsertItem(NewKey([]byte("a")))
	outer.DefaultSubqueryBranch = SubqueryBranch{Subquery: inner}

	pq := &PathQuery{Path: [][]byte{[]byte("root")}, Query: SizedQuery{Query: outer}}
	keys := pq.TerminalKeys(10)
	if len(keys) != 1 {
		t.Fatalf("expected 1 terminal key, got %d", len(keys))
	}
	if string(keys[0].Key) != "x" {
		t.Fatalf("expected terminal key 'x', got %q", keys[0].Key)
	}
	if len(keys[0].Path) != 2 || string(keys[0].Path[1]) != "a" {
		t.Fatalf("expected path to include 'a', got %v", keys[0].Path)
	}
}

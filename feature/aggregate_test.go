package feature

import "testing"

func TestCombineSummedAccumulates(t *testing.T) {
	total := FromType(Summed(4))
	total = Combine(total, Aggregate{Tag: TagSummed, Sum: 10})
	total = Combine(total, Aggregate{Tag: TagSummed, Sum: -3})
	if total.Sum != 11 {
		t.Fatalf("expected sum 11, got %d", total.Sum)
	}
}

func TestCombineNilChildContributesNothing(t *testing.T) {
	total := FromType(Counted(1))
	total = Combine(total, Aggregate{})
	if total.Count != 1 {
		t.Fatalf("expected count 1 unaffected by zero-value child, got %d", total.Count)
	}
}

func TestCombineCountedSummed(t *testing.T) {
	total := FromType(CountedSummed(1, 5))
	total = Combine(total, Aggregate{Tag: TagCountedSummed, Count: 2, Sum: 8})
	if total.Count != 3 || total.Sum != 13 {
		t.Fatalf("expected count=3 sum=13, got count=%d sum=%d", total.Count, total.Sum)
	}
}

func TestAggregateEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Aggregate{
		{Tag: TagBasic},
		{Tag: TagSummed, Sum: -42},
		{Tag: TagBigSummed, BigSumLo: 1, BigSumHi: 2},
		{Tag: TagCounted, Count: 7},
		{Tag: TagCountedSummed, Count: 3, Sum: -9},
		{Tag: TagProvableCounted, Count: 100},
	}
	for _, a := range cases {
		buf := a.Encode()
		got, rest, err := DecodeAggregate(buf)
		if err != nil {
			t.Fatalf("decode tag %d: %v", a.Tag, err)
		}
		if len(rest) != 0 {
			t.Fatalf("decode tag %d: leftover bytes %v", a.Tag, rest)
		}
		if got != a {
			t.Fatalf("round trip mismatch for tag %d: got %+v, want %+v", a.Tag, got, a)
		}
	}
}

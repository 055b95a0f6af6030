package chunk

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelForEachRunsEveryIndex(t *testing.T) {
	p := Parallel{Limit: 1}
	var count int32
	err := p.ForEach(10, func(i int) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}

func TestParallelForEachPropagatesError(t *testing.T) {
	p := Parallel{}
	boom := errors.New("boom")
	err := p.ForEach(5, func(i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ForEach error = %v, want %v", err, boom)
	}
}

func TestParallelForPartitionsContiguousRanges(t *testing.T) {
	p := Parallel{Limit: 1}
	seen := make([]bool, 10)
	var mu atomicBoolSlice
	mu.s = seen
	err := p.For(10, 3, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			mu.set(i)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	for i, v := range seen {
		if !v {
			t.Errorf("index %d never visited", i)
		}
	}
}

type atomicBoolSlice struct{ s []bool }

func (a *atomicBoolSlice) set(i int) { a.s[i] = true }

func TestParallelSortStableKeepsEqualElementOrder(t *testing.T) {
	p := Parallel{}
	type item struct{ key, orig int }
	items := []item{{1, 0}, {0, 1}, {1, 2}, {0, 3}}
	p.SortStable(len(items),
		func(i, j int) bool { return items[i].key < items[j].key },
		func(i, j int) { items[i], items[j] = items[j], items[i] })

	want := []item{{0, 1}, {0, 3}, {1, 0}, {1, 2}}
	for i, w := range want {
		if items[i] != w {
			t.Errorf("items[%d] = %+v, want %+v", i, items[i], w)
		}
	}
}

func TestScanProducesExclusivePrefixSums(t *testing.T) {
	vals := []int{1, 2, 3, 4}
	prefixes := make([]int, len(vals))
	Scan(len(vals), 0,
		func(i int) int { return vals[i] },
		func(a, b int) int { return a + b },
		func(i, prefix int) { prefixes[i] = prefix })

	want := []int{0, 1, 3, 6}
	for i, w := range want {
		if prefixes[i] != w {
			t.Errorf("prefixes[%d] = %d, want %d", i, prefixes[i], w)
		}
	}
}

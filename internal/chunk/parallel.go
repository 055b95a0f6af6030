// Completion: 100% - Parallel runtime adapter complete
package chunk

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Parallel is the fork-join runtime the core consumes: ForEach, For,
// SortStable and Scan. It wraps golang.org/x/sync/errgroup, the
// idiomatic Go fork-join primitive, rather than hand-rolling a
// WaitGroup per task.
type Parallel struct {
	// Limit caps concurrent goroutines; 0 means unlimited (errgroup
	// default). Tests run with Limit == 1 to get deterministic
	// execution order while still exercising the same code path.
	Limit int
}

// ForEach runs body(i) for i in [0, n) concurrently, returning the
// first error encountered (if any), after every invocation has
// finished.
func (p Parallel) ForEach(n int, body func(i int) error) error {
	if n == 0 {
		return nil
	}
	g, _ := errgroup.WithContext(context.Background())
	if p.Limit > 0 {
		g.SetLimit(p.Limit)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return body(i) })
	}
	return g.Wait()
}

// For runs body(lo, hi) over disjoint, contiguous sub-ranges that
// partition [0, n), in parallel. chunks bounds how many sub-ranges are
// created (at most chunks, fewer if n is small).
func (p Parallel) For(n, chunks int, body func(lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	if chunks <= 0 {
		chunks = 1
	}
	if chunks > n {
		chunks = n
	}
	size := (n + chunks - 1) / chunks
	var ranges [][2]int
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		ranges = append(ranges, [2]int{lo, hi})
	}
	return p.ForEach(len(ranges), func(i int) error {
		r := ranges[i]
		return body(r[0], r[1])
	})
}

// SortStable performs a stable sort directly via sort.Stable rather
// than re-deriving stability from a parallel merge sort; determinism
// requirements are unchanged and the input sizes here don't warrant
// parallelizing the sort itself.
func (p Parallel) SortStable(n int, less func(i, j int) bool, swap func(i, j int)) {
	sort.Stable(sliceSorter{n: n, less: less, swap: swap})
}

type sliceSorter struct {
	n    int
	less func(i, j int) bool
	swap func(i, j int)
}

func (s sliceSorter) Len() int           { return s.n }
func (s sliceSorter) Less(i, j int) bool { return s.less(i, j) }
func (s sliceSorter) Swap(i, j int)      { s.swap(i, j) }

// Scan runs a sequential exclusive prefix scan over n elements: get(i)
// reads element i's local contribution, combine folds two partial
// sums, and set(i, prefix) stores the prefix sum strictly before
// element i. Used for MergedSection's per-shard offset assignment.
func Scan[T any](n int, identity T, get func(i int) T, combine func(a, b T) T, set func(i int, prefix T)) {
	prefix := identity
	for i := 0; i < n; i++ {
		set(i, prefix)
		prefix = combine(prefix, get(i))
	}
}

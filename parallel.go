package splinepy

import "sync"

// parallelFor runs fn(i) for every i in [0, n), distributing the indices
// over up to nthreads goroutines. nthreads <= 1 runs on the calling
// goroutine. fn must not mutate shared state; all batch operations in this
// package call it with per-index output slots only.
func parallelFor(n, nthreads int, fn func(i int)) {
	if nthreads <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	if nthreads > n {
		nthreads = n
	}
	var wg sync.WaitGroup
	chunk := (n + nthreads - 1) / nthreads
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}

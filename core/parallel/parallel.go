// Package parallel splits row ranges across goroutines for batch inference.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the row count below which batch work stays on the
// calling goroutine.
const DefaultThreshold = 1024

// Parallelize splits [0, items) into contiguous chunks, one per available
// CPU, and calls fn(start, end) for each chunk concurrently. It returns once
// every chunk has been processed. fn must only write to its own range.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > items {
		workers = items
	}
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := start + chunk
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) sequentially when items does not
// exceed threshold, and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}

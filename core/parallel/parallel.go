// Package parallel splits an index range into contiguous chunks and processes
// them on separate goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Chunks divides [0, items) into at most n contiguous [start, end) ranges of
// nearly equal size.
func Chunks(items, n int) [][2]int {
	if items <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > items {
		n = items
	}
	size := (items + n - 1) / n
	out := make([][2]int, 0, n)
	for start := 0; start < items; start += size {
		out = append(out, [2]int{start, min(start+size, items)})
	}
	return out
}

// Parallelize runs fn on one chunk per CPU core and waits for all of them.
// fn must only write to the part of its output that belongs to its range.
func Parallelize(items int, fn func(start, end int)) {
	var wg sync.WaitGroup
	for _, c := range Chunks(items, runtime.NumCPU()) {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(c[0], c[1])
	}
	wg.Wait()
}

// ParallelizeWithThreshold calls fn(0, items) on the current goroutine when
// items is at most threshold, and Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}

// Package parallel provides a bounded parallel-for used by the CPU backend
// to spread independent output regions over cores.
package parallel

import (
	"runtime"
	"sync"
)

// Config bounds a parallel loop.
type Config struct {
	Workers int // goroutines to spread the loop over
	MinPer  int // minimum iterations per goroutine; below it the loop stays sequential
}

// Default sizes the loop for the machine. Layer outputs are coarse units
// (an output plane, a neuron row), so the per-worker minimum is small.
func Default() Config {
	return Config{
		Workers: runtime.NumCPU(),
		MinPer:  4,
	}
}

// For runs f(i) for every i in [0, n), handing contiguous chunks to worker
// goroutines. Iterations must be independent and must write disjoint output.
// Falls back to a plain loop when the work cannot amortize the goroutines.
func For(n int, cfg Config, f func(i int)) {
	if cfg.Workers <= 1 || n < 2*cfg.MinPer {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := (n + cfg.Workers - 1) / cfg.Workers
	if chunk < cfg.MinPer {
		chunk = cfg.MinPer
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

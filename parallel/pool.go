// Package parallel runs independent jobs on a fixed number of goroutines.
//
// A job that panics is logged and counted instead of taking the process
// down, so one bad input file cannot abort a whole batch.
package parallel

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

type (
	// WorkerFunc queues a job. It blocks while every worker is busy and the
	// queue is full.
	WorkerFunc func(func())
	// WaitFunc blocks until queued jobs are done. With done set no more
	// jobs may be queued afterwards.
	WaitFunc   func(done bool)
	CancelFunc func()
)

type Pool struct {
	workers int
	wg      sync.WaitGroup
	panics  atomic.Uint64

	Do     WorkerFunc
	Wait   WaitFunc
	Cancel CancelFunc
}

// Start launches numWorkers workers, or one per usable CPU when numWorkers
// is below 1. A single worker runs jobs inline on the caller's goroutine.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{workers: numWorkers}
	if numWorkers == 1 {
		p.Do = p.run
		p.Wait = func(bool) {}
		p.Cancel = func() {}
		return p
	}

	jobs := make(chan func(), numWorkers)
	for range numWorkers {
		p.wg.Go(func() {
			for f := range jobs {
				p.run(f)
			}
		})
	}

	p.Do = func(f func()) { jobs <- f }
	p.Cancel = sync.OnceFunc(func() { close(jobs) })
	p.Wait = func(done bool) {
		if done {
			p.Cancel()
		}
		p.wg.Wait()
	}
	return p
}

func (p *Pool) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			slog.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	f()
}

func (p *Pool) Workers() int {
	return p.workers
}

// Panics reports how many jobs panicked so far.
func (p *Pool) Panics() uint64 {
	return p.panics.Load()
}

// Package workerpool provides a bounded goroutine pool. Per-asset fetches
// run on it so that no more than the configured number of requests are in
// flight at once.
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool manages a fixed number of worker goroutines.
type Pool struct {
	workers int32
	tasks   chan func()
	running int32
	closed  atomic.Bool
	panics  atomic.Int64
	wg      sync.WaitGroup
}

// New creates a pool with the given number of workers.
// Workers are started lazily when tasks are submitted.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		workers: int32(workers),
		tasks:   make(chan func(), workers*4),
	}
}

// Submit queues a task. It blocks while the queue is full and returns
// false if the pool is closed.
func (p *Pool) Submit(task func()) (ok bool) {
	if p.closed.Load() {
		return false
	}

	for {
		running := atomic.LoadInt32(&p.running)
		if running >= p.workers {
			break
		}
		if atomic.CompareAndSwapInt32(&p.running, running, running+1) {
			p.wg.Add(1)
			go p.worker()
			break
		}
	}

	// Close may race with a blocked send.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	p.tasks <- task
	return true
}

func (p *Pool) worker() {
	defer func() {
		atomic.AddInt32(&p.running, -1)
		p.wg.Done()
	}()
	for task := range p.tasks {
		p.run(task)
	}
}

// run isolates a panicking task so the worker survives it.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
		}
	}()
	if task != nil {
		task()
	}
}

// Running returns the current number of running workers.
func (p *Pool) Running() int {
	return int(atomic.LoadInt32(&p.running))
}

// Cap returns the worker capacity.
func (p *Pool) Cap() int {
	return int(p.workers)
}

// Panics returns how many submitted tasks panicked.
func (p *Pool) Panics() int64 {
	return p.panics.Load()
}

// Close shuts down the pool after pending tasks complete.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.tasks)
	p.wg.Wait()
}

// PanicError carries a value recovered from a panicking Map callback.
type PanicError struct {
	Index int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("workerpool: task %d panicked: %v", e.Index, e.Value)
}

// Map applies fn to each item on the pool and returns results in input
// order. Each task writes only its own slot, so no locking is needed.
//
// Items not yet started when ctx is done are skipped and keep their zero
// value; Map then returns the context's cause. A panicking callback is
// reported as a *PanicError.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, i int, item T) R) ([]R, error) {
	results := make([]R, len(items))
	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicErr error
	)

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitted := p.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					if panicErr == nil {
						panicErr = &PanicError{Index: i, Value: r}
					}
					panicMu.Unlock()
				}
			}()
			if ctx.Err() != nil {
				return
			}
			results[i] = fn(ctx, i, item)
		})
		if !submitted {
			wg.Done()
			return results, fmt.Errorf("workerpool: submit: pool closed")
		}
	}

	wg.Wait()
	if panicErr != nil {
		return results, panicErr
	}
	if ctx.Err() != nil {
		return results, context.Cause(ctx)
	}
	return results, nil
}

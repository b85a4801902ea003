package distfield

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs bake passes on a fixed set of goroutines. Each worker owns a
// queue; ExecuteAll spreads work round-robin and waits for all of it.
//
// Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
	// mu is held for reading while ExecuteAll enqueues and for writing by
	// Close, so workers never exit with work still being sent.
	mu sync.RWMutex
}

// NewPool starts a pool. If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	queue := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(queue)
			return
		case work := <-queue:
			work()
		}
	}
}

// drain runs whatever is left in queue.
func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// ExecuteAll runs every item and waits for completion. It returns
// ErrResourceUnavailable if the pool is closed.
func (p *Pool) ExecuteAll(work []func()) error {
	p.mu.RLock()
	if !p.running.Load() {
		p.mu.RUnlock()
		return ErrResourceUnavailable
	}
	if len(work) == 0 {
		p.mu.RUnlock()
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		wrapped := func() {
			defer wg.Done()
			fn()
		}
		p.queues[i%p.workers] <- wrapped
	}
	p.mu.RUnlock()
	wg.Wait()
	return nil
}

// Rows splits [0,height) into bands and runs fn on each band in parallel.
func (p *Pool) Rows(height int, fn func(y0, y1 int)) error {
	bands := p.workers * 4
	if bands > height {
		bands = height
	}
	if bands <= 1 {
		if !p.running.Load() {
			return ErrResourceUnavailable
		}
		fn(0, height)
		return nil
	}

	size := (height + bands - 1) / bands
	work := make([]func(), 0, bands)
	for y0 := 0; y0 < height; y0 += size {
		y1 := min(y0+size, height)
		work = append(work, func() { fn(y0, y1) })
	}
	return p.ExecuteAll(work)
}

// Close stops the pool after queued work finishes. A concurrent ExecuteAll
// either completes its batch first or sees ErrResourceUnavailable. Safe to
// call twice.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

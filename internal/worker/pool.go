// Package worker runs independent per-row work on a bounded set of
// goroutines and hands results back addressed by row.
package worker

import (
	"context"
	"sync"
)

// Job is the work for one row
type Job interface {
	Row() int
	Execute(ctx context.Context) Result
}

// Result is a finished row
type Result interface {
	Row() int
	Err() error
}

// Pool executes jobs on a fixed number of goroutines. Results are stored
// in the slot named by their row, so completion order does not matter.
type Pool struct {
	size      int
	queue     chan Job
	done      chan Result
	slots     []Result
	running   sync.WaitGroup
	draining  sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeDone sync.Once
}

// NewPool creates a pool of size goroutines (at least one). Cancelling ctx
// stops the pool early.
func NewPool(ctx context.Context, size int) *Pool {
	if size <= 0 {
		size = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		size:   size,
		queue:  make(chan Job, size*2),
		done:   make(chan Result, size*2),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Size returns the number of worker goroutines
func (p *Pool) Size() int {
	return p.size
}

// Start launches the workers and the slot writer
func (p *Pool) Start() {
	p.draining.Add(1)
	go p.store()

	for i := 0; i < p.size; i++ {
		p.running.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.running.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.done <- job.Execute(p.ctx)
		}
	}
}

// store is the only writer of p.slots
func (p *Pool) store() {
	defer p.draining.Done()
	for r := range p.done {
		row := r.Row()
		if row >= len(p.slots) {
			p.slots = append(p.slots, make([]Result, row+1-len(p.slots))...)
		}
		p.slots[row] = r
	}
}

// Submit queues a job. It returns false when the row is negative or the
// pool was cancelled before the job could be queued.
func (p *Pool) Submit(job Job) bool {
	if job.Row() < 0 {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- job:
		return true
	}
}

// Wait closes the queue, waits for queued jobs and returns the results
// indexed by row. Rows that never ran are nil.
func (p *Pool) Wait() []Result {
	close(p.queue)
	p.running.Wait()
	p.closeResults()
	p.draining.Wait()
	p.cancel()
	return p.slots
}

// Shutdown stops the pool without running queued jobs
func (p *Pool) Shutdown() {
	p.cancel()
	p.running.Wait()
	p.closeResults()
	p.draining.Wait()
}

func (p *Pool) closeResults() {
	p.closeDone.Do(func() {
		close(p.done)
	})
}

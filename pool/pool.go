package pool

import (
	"context"
	"sync"
)

// WorkerPool bounds the number of concurrently running task bodies with a
// semaphore channel. Wait blocks until everything submitted so far has
// finished, which gives the orchestrator its chunk barrier.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

func (p *WorkerPool) Submit(ctx context.Context, run func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			run(ctx)
		case <-ctx.Done():
			// No slot needed: the task observes the cancelled context at its
			// start boundary and terminates without doing any work.
			run(ctx)
		}
	}()
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

package worker

import (
	"context"
	"errors"
	"sync"
)

// Task represents a unit of work to be processed by a worker
type Task func()

var ErrPoolStopped = errors.New("worker pool stopped")

// Pool runs submitted tasks on a fixed number of goroutines sharing one queue
type Pool struct {
	tasks chan Task
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewPool starts numWorkers workers. numWorkers < 1 is treated as 1.
func NewPool(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &Pool{
		tasks: make(chan Task),
		stop:  make(chan struct{}),
	}
	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.stop:
			return
		}
	}
}

// Submit hands task to the next idle worker, blocking until one is free,
// ctx is done or the pool is stopped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-p.stop:
		return ErrPoolStopped
	default:
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stop:
		return ErrPoolStopped
	}
}

// Stop stops accepting tasks and waits for running ones to return
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

package workerpool

import (
	"context"
	"sync"
)

// Job is a unit of work run by a Pool.
type Job func() error

// Pool distributes jobs across a fixed number of worker goroutines.
// Jobs run in the order they were added.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Job
	maxQ    int
	stopped bool
	err     error

	wg sync.WaitGroup
}

// New returns a pool backed by n worker goroutines.
func New(n int) *Pool {
	return NewWithCtx(context.Background(), n)
}

// NewWithCtx returns a pool backed by n worker goroutines. Once ctx is done
// the pool behaves as if Stop had been called.
func NewWithCtx(ctx context.Context, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{maxQ: 4 * n}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			p.Stop()
		}()
	}
	return p
}

// Add enqueues jobs for execution without blocking the caller.
func (p *Pool) Add(jobs []Job) {
	p.wg.Add(len(jobs))
	go p.enqueue(jobs)
}

// AddBlocking enqueues jobs from the calling goroutine, blocking whenever
// the pool's queue is full. Use it to apply the pool's backpressure to the
// producer.
func (p *Pool) AddBlocking(jobs []Job) {
	p.wg.Add(len(jobs))
	p.enqueue(jobs)
}

// Wait blocks until every job added so far has either run or been discarded
// by Stop, then returns the first error any job returned.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop discards queued jobs and shuts the workers down. Jobs that are
// already running finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	discarded := len(p.queue)
	p.queue = nil
	p.mu.Unlock()

	p.wg.Add(-discarded)
	p.cond.Broadcast()
}

func (p *Pool) enqueue(jobs []Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, j := range jobs {
		for !p.stopped && len(p.queue) >= p.maxQ {
			p.cond.Wait()
		}
		if p.stopped {
			p.wg.Done()
			continue
		}
		p.queue = append(p.queue, j)
		p.cond.Broadcast()
	}
}

func (p *Pool) worker() {
	p.mu.Lock()
	for {
		for !p.stopped && len(p.queue) == 0 {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		j := p.queue[0]
		p.queue = p.queue[1:]
		p.cond.Broadcast()
		p.mu.Unlock()

		if err := j(); err != nil {
			p.setErr(err)
		}
		p.wg.Done()

		p.mu.Lock()
	}
}

func (p *Pool) setErr(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

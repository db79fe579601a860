package job

import (
	"context"
	"sync"

	"github.com/skillsenselab/meetscribe/pkg/errors"
	"github.com/skillsenselab/meetscribe/pkg/logger"
)

// Handler processes one queued task to completion. It owns recording
// the terminal outcome; the pool never touches the registry.
type Handler interface {
	Process(ctx context.Context, task Task)
}

// Pool drains queued tasks with a fixed number of workers over a
// buffered channel. Stop rejects further submissions and lets the
// workers finish everything already queued.
type Pool struct {
	queue   chan Task
	handler Handler
	workers int
	log     *logger.Logger

	mu     sync.Mutex
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a task pool with the given worker count and queue
// capacity.
func NewPool(workers, queueSize int, handler Handler, log *logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:   make(chan Task, queueSize),
		handler: handler,
		workers: workers,
		log:     log.WithComponent("worker"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info("Worker pool started", map[string]interface{}{
		"workers":    p.workers,
		"queue_size": cap(p.queue),
	})
}

// Submit enqueues a task. It fails without blocking when the queue is
// full or the pool has been stopped.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.Conflict("worker pool is shut down")
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return errors.Conflict("job queue is full")
	}
}

// Stop closes intake, waits for the workers to drain the queue, then
// releases the pool context. Tasks already queued run to completion
// under a live context.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		p.log.Debug("Worker picked up job", map[string]interface{}{
			"worker": id,
			"job_id": task.JobID,
		})
		p.handler.Process(p.ctx, task)
	}
}

// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// A small task pool used for broadcast and notification fan-out.

type Task func(ctx context.Context) error

var ErrQueueFull = errors.New("worker queue full")

type Pool struct {
	wg    sync.WaitGroup
	tasks chan Task
	stop  chan struct{}
	size  int
	log   *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	compLog := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{
		tasks: make(chan Task, workers*4),
		stop:  make(chan struct{}),
		size:  workers,
		log:   &compLog,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case task := <-p.tasks:
			if task == nil {
				continue
			}
			if err := task(ctx); err != nil {
				p.log.Warn().Err(err).Int("worker", id).Msg("task failed")
			}
		}
	}
}

func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Submit never blocks. When the queue is saturated the task is dropped and
// ErrQueueFull returned; callers decide whether that is worth surfacing.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

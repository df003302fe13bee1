package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one task. A returned error triggers a retry.
type Handler func(ctx context.Context, task Task) error

type PoolConfig struct {
	Workers     int
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// Pool drains a Queue with a fixed number of goroutines.
type Pool struct {
	queue    Queue
	cfg      PoolConfig
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewPool(queue Queue, cfg PoolConfig, logger *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Pool{queue: queue, cfg: cfg, logger: logger, handlers: make(map[string]Handler)}
}

func (p *Pool) Register(kind string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = h
}

// Run blocks until ctx is cancelled and all workers have returned.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool started", zap.Int("workers", p.cfg.Workers))

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	p.logger.Info("worker pool stopped")
	return nil
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		task, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			p.logger.Error("dequeue failed", zap.Int("worker", id), zap.Error(err))
			if !sleep(ctx, 500*time.Millisecond) {
				return
			}
			continue
		}
		p.Process(ctx, task)
	}
}

// Process runs task with bounded retries. Final failures are logged and dropped.
func (p *Pool) Process(ctx context.Context, task Task) {
	p.mu.RLock()
	h, ok := p.handlers[task.Kind]
	p.mu.RUnlock()
	if !ok {
		p.logger.Warn("no handler for task", zap.String("kind", task.Kind), zap.String("task_id", task.ID))
		return
	}

	var err error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err = p.safeRun(ctx, h, task); err == nil {
			return
		}
		p.logger.Warn("task attempt failed",
			zap.String("kind", task.Kind),
			zap.String("task_id", task.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < p.cfg.MaxAttempts && !sleep(ctx, time.Duration(attempt)*p.cfg.Backoff) {
			break
		}
	}
	p.logger.Error("task dropped after retries",
		zap.String("kind", task.Kind),
		zap.String("task_id", task.ID),
		zap.Error(err),
	)
}

func (p *Pool) safeRun(ctx context.Context, h Handler, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, task)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

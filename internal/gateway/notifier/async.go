package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"tierbot/internal/logger"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrClosed    = errors.New("notifier closed")
)

// Async 将消息放入缓冲队列，由单个 goroutine 依次投递。
// SendText 从不阻塞调用方；队列满时丢弃并返回 ErrQueueFull。
type Async struct {
	inner   TextNotifier
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan string
	done   chan struct{}
}

// NewAsync starts the delivery goroutine. timeout bounds each delivery.
func NewAsync(inner TextNotifier, size int, timeout time.Duration) *Async {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a := &Async{
		inner:   inner,
		timeout: timeout,
		queue:   make(chan string, size),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) SendText(_ context.Context, text string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for text := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.inner.SendText(ctx, text); err != nil {
			logger.Warnf("notifier: async delivery failed: %v", err)
		}
		cancel()
	}
}

// Close stops accepting messages and waits for the queue to drain or ctx
// to end, whichever comes first.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	texts   []string
}

func (n *blockingNotifier) SendText(ctx context.Context, text string) error {
	select {
	case <-n.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	n.mu.Lock()
	n.texts = append(n.texts, text)
	n.mu.Unlock()
	return nil
}

func (n *blockingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

func TestAsyncDoesNotBlockCaller(t *testing.T) {
	inner := &blockingNotifier{release: make(chan struct{})}
	a := NewAsync(inner, 2, time.Minute)

	start := time.Now()
	require.NoError(t, a.SendText(context.Background(), "one"))
	require.NoError(t, a.SendText(context.Background(), "two"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(inner.release)
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, []string{"one", "two"}, inner.sent())
}

func TestAsyncDropsWhenFull(t *testing.T) {
	inner := &blockingNotifier{release: make(chan struct{})}
	a := NewAsync(inner, 1, time.Minute)
	defer func() {
		close(inner.release)
		_ = a.Close(context.Background())
	}()

	var full bool
	for i := 0; i < 5 && !full; i++ {
		full = a.SendText(context.Background(), "x") == ErrQueueFull
	}
	assert.True(t, full)
}

func TestAsyncCloseHonoursContext(t *testing.T) {
	inner := &blockingNotifier{release: make(chan struct{})}
	a := NewAsync(inner, 4, time.Minute)
	require.NoError(t, a.SendText(context.Background(), "stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)
	assert.ErrorIs(t, a.SendText(context.Background(), "late"), ErrClosed)
	close(inner.release)
}

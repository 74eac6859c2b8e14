package market

import "sync"

const DefaultBufferSize = 200

// ring is a fixed-capacity FIFO of float64; the oldest value is evicted on overflow.
type ring struct {
	buf   []float64
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *ring) last() (float64, bool) {
	if r.n == 0 {
		return 0, false
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)], true
}

// Buffer 保存单个 symbol 的价格、成交量与 WOBI 滚动窗口。
// 只追加，读取时返回副本。
type Buffer struct {
	mu      sync.RWMutex
	size    int
	prices  *ring
	volumes *ring
	wobis   *ring
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{
		size:    size,
		prices:  newRing(size),
		volumes: newRing(size),
		wobis:   newRing(size),
	}
}

func (b *Buffer) Push(price, volume float64) {
	b.mu.Lock()
	b.prices.push(price)
	b.volumes.push(volume)
	b.mu.Unlock()
}

func (b *Buffer) PushWOBI(ratio float64) {
	b.mu.Lock()
	b.wobis.push(ratio)
	b.mu.Unlock()
}

func (b *Buffer) Prices() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.prices.values()
}

func (b *Buffer) Volumes() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.volumes.values()
}

func (b *Buffer) WOBIs() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.wobis.values()
}

// LastWOBI returns the most recent imbalance reading, 0 when none.
func (b *Buffer) LastWOBI() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, _ := b.wobis.last()
	return v
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.prices.n
}

func (b *Buffer) Cap() int { return b.size }

// Ready is measured on the price series only.
func (b *Buffer) Ready(min int) bool {
	return b.Len() >= min
}

// BufferSet lazily creates one Buffer per symbol.
type BufferSet struct {
	mu      sync.Mutex
	size    int
	buffers map[string]*Buffer
}

func NewBufferSet(size int) *BufferSet {
	return &BufferSet{size: size, buffers: make(map[string]*Buffer)}
}

func (s *BufferSet) Get(symbol string) *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[symbol]
	if !ok {
		buf = NewBuffer(s.size)
		s.buffers[symbol] = buf
	}
	return buf
}

func (s *BufferSet) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.buffers))
	for sym := range s.buffers {
		out = append(out, sym)
	}
	return out
}

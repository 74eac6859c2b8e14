// Package position is the authoritative store of open positions.
package position

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrPositionExists   = errors.New("position already exists")
	ErrPositionNotFound = errors.New("position not found")
	ErrSymbolBusy       = errors.New("symbol already has an open position")
	ErrPositionClosing  = errors.New("position is already being closed")
)

// Manager serialises open, close and trailing updates behind one mutex.
// Risk bookkeeping for a closed trade happens after Close returns, outside
// this lock.
type Manager struct {
	mu        sync.Mutex
	positions map[string]*Position
	closing   map[string]struct{}
	rules     ExitRules
	now       func() time.Time
}

func NewManager(rules ExitRules) *Manager {
	return &Manager{
		positions: make(map[string]*Position),
		closing:   make(map[string]struct{}),
		rules:     rules,
		now:       time.Now,
	}
}

// SetClock is used by replay and tests.
func (m *Manager) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Manager) Rules() ExitRules {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rules
}

func (m *Manager) SetRules(r ExitRules) {
	m.mu.Lock()
	m.rules = r
	m.mu.Unlock()
}

// Open fails with ErrPositionExists without touching the stored position.
func (m *Manager) Open(p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[p.ID]; ok {
		return fmt.Errorf("open %s: %w", p.ID, ErrPositionExists)
	}
	m.insert(p)
	return nil
}

// TryOpen is Open plus a per-symbol uniqueness check in the same critical
// section.
func (m *Manager) TryOpen(p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[p.ID]; ok {
		return fmt.Errorf("open %s: %w", p.ID, ErrPositionExists)
	}
	for _, existing := range m.positions {
		if existing.Symbol == p.Symbol {
			return fmt.Errorf("open %s on %s: %w", p.ID, p.Symbol, ErrSymbolBusy)
		}
	}
	m.insert(p)
	return nil
}

func (m *Manager) insert(p Position) {
	cp := p
	m.positions[p.ID] = &cp
}

// Claim reserves the position for a single closer and returns its current
// state. A position that is gone or already claimed is refused, so a stale
// snapshot can never lead to a second sell.
func (m *Manager) Claim(id string) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return Position{}, fmt.Errorf("claim %s: %w", id, ErrPositionNotFound)
	}
	if _, busy := m.closing[id]; busy {
		return Position{}, fmt.Errorf("claim %s: %w", id, ErrPositionClosing)
	}
	m.closing[id] = struct{}{}
	return *p, nil
}

// Release hands a claimed position back after a failed close attempt.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	delete(m.closing, id)
	m.mu.Unlock()
}

func (m *Manager) Closing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.closing[id]
	return ok
}

// Close removes the position and returns the resulting trade.
func (m *Manager) Close(id string, exitPrice, exitFee float64, reason ExitReason) (Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return Trade{}, fmt.Errorf("close %s: %w", id, ErrPositionNotFound)
	}
	exitTime := m.now()
	trade := Trade{
		ID:          p.ID,
		Symbol:      p.Symbol,
		Side:        p.Side,
		EntryTime:   p.EntryTime,
		ExitTime:    exitTime,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   exitPrice,
		Amount:      p.Amount,
		EntryFee:    p.EntryFee,
		ExitFee:     exitFee,
		PnL:         NetPnL(p.Side, p.EntryPrice, exitPrice, p.Amount, p.EntryFee, exitFee),
		Reason:      reason,
		Holding:     exitTime.Sub(p.EntryTime),
		SignalScore: p.SignalScore,
		Indicators:  p.Indicators,
	}
	delete(m.positions, id)
	delete(m.closing, id)
	return trade, nil
}

// UpdateTrailingHigh raises the high-water mark (lowers the low-water mark
// for shorts). Unknown ids are ignored.
func (m *Manager) UpdateTrailingHigh(id string, price float64) {
	if price <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return
	}
	switch p.Side {
	case Short:
		if p.LowWater == 0 || price < p.LowWater {
			p.LowWater = price
		}
	default:
		if price > p.HighWater {
			p.HighWater = price
		}
	}
}

func (m *Manager) TrailingStopTriggered(id string, price float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return false
	}
	return trailingHit(*p, price, m.rules)
}

// Evaluate applies the exit rules to the stored position at price.
func (m *Manager) Evaluate(id string, price float64) (ExitReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return ExitNone, false
	}
	return m.rules.Evaluate(*p, price, m.now())
}

func (m *Manager) Get(id string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// All returns copies ordered by entry time.
func (m *Manager) All() []Position {
	m.mu.Lock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

func (m *Manager) HasSymbol(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.positions {
		if p.Symbol == symbol {
			return true
		}
	}
	return false
}

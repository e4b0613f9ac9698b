package events

import (
	"context"
	"log"
	"sort"
	"sync"
)

// LowStockMonitor watches stock events and reports products whose stock
// dropped below a threshold.
type LowStockMonitor struct {
	threshold int
	logf      func(format string, args ...any)

	mu  sync.Mutex
	low map[string]int
}

func NewLowStockMonitor(threshold int) *LowStockMonitor {
	return &LowStockMonitor{threshold: threshold, logf: log.Printf, low: make(map[string]int)}
}

// Handle updates the set of low-stock products from one event. A warning is
// logged when a product first crosses below the threshold.
func (m *LowStockMonitor) Handle(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(e.Stock))
	for id := range e.Stock {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		stock := e.Stock[id]
		_, wasLow := m.low[id]
		if stock < m.threshold {
			m.low[id] = stock
			if !wasLow {
				m.logf("low stock: product %s has %d units left (threshold %d, after %s)", id, stock, m.threshold, e.Type)
			}
			continue
		}
		delete(m.low, id)
	}
	return nil
}

// Low returns a copy of the products currently below the threshold.
func (m *LowStockMonitor) Low() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.low))
	for id, stock := range m.low {
		out[id] = stock
	}
	return out
}

// Local hands events straight to a handler in-process. It stands in for a
// broker when none is configured, so the monitor still runs.
type Local struct {
	Handle func(context.Context, Event) error
}

func (l Local) Publish(ctx context.Context, e Event) error {
	if l.Handle == nil {
		return nil
	}
	return l.Handle(ctx, e)
}

func (Local) Close() error { return nil }

package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by an explicit clock. Callbacks run on the
// goroutine that calls Advance, in due order.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	m   *Manual
	due time.Duration
	seq int
	fn  func()
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{m: m, due: m.now + d, seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for i, p := range t.m.pending {
		if p == t {
			t.m.pending = append(t.m.pending[:i], t.m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d and runs every callback that became
// due, including ones scheduled by callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.pending, func(i, j int) bool {
			if m.pending[i].due != m.pending[j].due {
				return m.pending[i].due < m.pending[j].due
			}
			return m.pending[i].seq < m.pending[j].seq
		})
		if len(m.pending) == 0 || m.pending[0].due > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.pending[0]
		m.pending = m.pending[1:]
		m.now = next.due
		m.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of scheduled callbacks
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

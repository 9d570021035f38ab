package launcher

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/internal/loop"
)

// PendingLaunch is a started script waiting for deferred removal
type PendingLaunch struct {
	ID          uuid.UUID
	Target      string
	CommandLine string
	ScriptPath  string
	CreatedAt   time.Time
	Delay       time.Duration
}

type pendingEntry struct {
	launch PendingLaunch
	timer  loop.Timer
}

// Registry deletes indirection scripts after a delay. Every script is
// removed exactly once, whichever of the timer, Delete or Shutdown gets
// there first.
type Registry struct {
	sched  loop.Scheduler
	remove func(string) error
	logger *zap.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingEntry
}

func NewRegistry(sched loop.Scheduler, logger *zap.Logger) *Registry {
	return &Registry{
		sched:   sched,
		remove:  os.Remove,
		logger:  logging.OrNop(logger).Named("cleanup"),
		pending: make(map[uuid.UUID]*pendingEntry),
	}
}

// Schedule arranges for p.ScriptPath to be removed after p.Delay
func (r *Registry) Schedule(p PendingLaunch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &pendingEntry{launch: p}
	r.pending[p.ID] = entry
	entry.timer = r.sched.AfterFunc(p.Delay, func() {
		r.Delete(p.ID)
	})
}

// Delete removes the script now. It reports whether id was still pending.
func (r *Registry) Delete(id uuid.UUID) bool {
	r.mu.Lock()
	entry, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	r.removeFile(entry.launch.ScriptPath)
	return true
}

// Pending lists scheduled removals, oldest first
func (r *Registry) Pending() []PendingLaunch {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PendingLaunch, 0, len(r.pending))
	for _, e := range r.pending {
		out = append(out, e.launch)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Shutdown removes every pending script immediately
func (r *Registry) Shutdown() int {
	n := 0
	for _, p := range r.Pending() {
		if r.Delete(p.ID) {
			n++
		}
	}
	if n > 0 {
		r.logger.Info("removed pending scripts on shutdown", zap.Int("count", n))
	}
	return n
}

func (r *Registry) removeFile(path string) {
	if err := r.remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove script", zap.String("path", path), zap.Error(err))
		return
	}
	r.logger.Debug("script removed", zap.String("path", path))
}

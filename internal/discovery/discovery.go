package discovery

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/pkg/process"
	"github.com/launchdeck/launchdeck/pkg/window"
)

// ProcessHandle identifies a running process together with its primary
// window. Identity is the PID alone: titles may be empty and a window
// handle means nothing once the process exits.
type ProcessHandle struct {
	PID        int
	Window     window.Handle
	Title      string
	Executable string
}

// Key returns the identity used for map keys and selection memory
func (h ProcessHandle) Key() string {
	return strconv.Itoa(h.PID)
}

// Equal compares by PID
func (h ProcessHandle) Equal(other ProcessHandle) bool {
	return h.PID == other.PID
}

// IsZero reports whether h identifies no process
func (h ProcessHandle) IsZero() bool {
	return h.PID == 0
}

// WindowPredicate decides whether a top-level window can be the primary
// window of its process
type WindowPredicate func(window.WindowInfo) bool

// AcceptUntitled accepts visible, unowned windows, titled or not
func AcceptUntitled(w window.WindowInfo) bool {
	return w.Visible && !w.Owned
}

// RequireTitle is AcceptUntitled plus a non-blank title
func RequireTitle(w window.WindowInfo) bool {
	return AcceptUntitled(w) && strings.TrimSpace(w.Title) != ""
}

// PredicateFor picks the predicate matching the accept-untitled setting
func PredicateFor(acceptUntitled bool) WindowPredicate {
	if acceptUntitled {
		return AcceptUntitled
	}
	return RequireTitle
}

// Service finds running instances of tracked executables
type Service struct {
	procs   process.Table
	windows window.Manager
	accept  WindowPredicate
	logger  *zap.Logger
}

func NewService(procs process.Table, windows window.Manager, accept WindowPredicate, logger *zap.Logger) *Service {
	if accept == nil {
		accept = AcceptUntitled
	}
	return &Service{
		procs:   procs,
		windows: windows,
		accept:  accept,
		logger:  logging.OrNop(logger).Named("discovery"),
	}
}

// Discover returns one handle per running process whose executable name
// matches one of names (case-insensitive) and that owns an acceptable
// window. It never fails: anything that cannot be inspected is skipped.
func (s *Service) Discover(names []string) []ProcessHandle {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}
	if len(wanted) == 0 {
		return nil
	}

	entries, err := s.procs.Processes()
	if err != nil {
		s.logger.Warn("process enumeration failed", zap.Error(err))
		return nil
	}

	var out []ProcessHandle
	seen := make(map[int]bool)
	for _, e := range entries {
		if seen[e.PID] || !wanted[strings.ToLower(e.Name)] {
			continue
		}

		h, ok := s.resolve(e)
		if !ok {
			continue
		}
		seen[e.PID] = true
		out = append(out, h)
	}
	return out
}

func (s *Service) resolve(e process.Entry) (ProcessHandle, bool) {
	windows, err := s.windows.TopLevelWindows(e.PID)
	if err != nil {
		s.logger.Debug("skipping process",
			zap.Int("pid", e.PID),
			zap.String("name", e.Name),
			zap.Error(err))
		return ProcessHandle{}, false
	}

	for _, w := range windows {
		if s.accept(w) {
			return ProcessHandle{PID: e.PID, Window: w.Handle, Title: w.Title, Executable: e.Name}, true
		}
	}
	return ProcessHandle{}, false
}

// Foreground returns the tracked process owning the foreground window
func (s *Service) Foreground(names []string) (ProcessHandle, bool) {
	_, pid, err := s.windows.Foreground()
	if err != nil {
		return ProcessHandle{}, false
	}
	for _, h := range s.Discover(names) {
		if h.PID == pid {
			return h, true
		}
	}
	return ProcessHandle{}, false
}

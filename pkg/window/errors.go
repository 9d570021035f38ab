package window

import "github.com/pkg/errors"

// Failure classes shared by every backend. Backends wrap OS errors with
// one of these so callers can classify with errors.Is.
var (
	ErrNotFound     = errors.New("window or process not found")
	ErrAccessDenied = errors.New("access denied")
	ErrRaceLost     = errors.New("target vanished during operation")
	ErrBusy         = errors.New("resource already claimed")
	ErrUnsupported  = errors.New("operation not supported by backend")
)

// Classify returns the failure class of err, or nil when err carries none
func Classify(err error) error {
	for _, class := range []error{ErrNotFound, ErrAccessDenied, ErrRaceLost, ErrBusy, ErrUnsupported} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// classed attaches a failure class to an underlying cause
type classed struct {
	class error
	cause error
}

func (c *classed) Error() string {
	return c.class.Error() + ": " + c.cause.Error()
}

func (c *classed) Is(target error) bool {
	return target == c.class
}

func (c *classed) Unwrap() error {
	return c.cause
}

// WithClass marks cause as belonging to class, keeping the cause
// reachable through errors.Unwrap
func WithClass(class, cause error) error {
	if cause == nil {
		return nil
	}
	return &classed{class: class, cause: cause}
}

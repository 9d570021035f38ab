package launcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/internal/loop"
)

// Opener starts a file detached from this process
type Opener interface {
	OpenDetached(path string) error
}

// Options configure an Orchestrator
type Options struct {
	Command CommandOptions

	Dialect                 Dialect
	ScriptDir               string
	ScriptEncoding          string
	CleanupDelay            time.Duration
	MaintenanceCleanupDelay time.Duration

	DumpDir string
	LogDir  string
}

// Orchestrator writes an indirection script per launch, opens it detached
// and schedules its removal
type Orchestrator struct {
	opener   Opener
	registry *Registry
	opts     Options
	legacy   encoding.Encoding
	logger   *zap.Logger

	now func() time.Time
}

func New(opener Opener, sched loop.Scheduler, opts Options, logger *zap.Logger) (*Orchestrator, error) {
	if opts.Dialect == nil {
		opts.Dialect = NativeDialect()
	}
	if opts.ScriptDir == "" {
		opts.ScriptDir = os.TempDir()
	}
	if opts.ScriptEncoding == "" {
		opts.ScriptEncoding = "cp866"
	}
	if opts.DumpDir == "" {
		opts.DumpDir = opts.ScriptDir
	}
	if opts.LogDir == "" {
		opts.LogDir = opts.ScriptDir
	}

	legacy, err := LegacyEncoding(opts.ScriptEncoding)
	if err != nil {
		return nil, err
	}

	logger = logging.OrNop(logger)
	return &Orchestrator{
		opener:   opener,
		registry: NewRegistry(sched, logger),
		opts:     opts,
		legacy:   legacy,
		logger:   logger.Named("launcher"),
		now:      time.Now,
	}, nil
}

// Registry exposes the pending script removals
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Launch starts target and reports success. Failures are logged.
func (o *Orchestrator) Launch(target LaunchTarget, params Params) bool {
	_, err := o.Start(target, params)
	return err == nil
}

// Start is Launch returning the scheduled launch or the failure
func (o *Orchestrator) Start(target LaunchTarget, params Params) (PendingLaunch, error) {
	mode := params.mode(target)

	exe, err := Resolve(target.Executable, mode)
	if err != nil {
		o.logger.Warn("launch aborted", zap.String("target", target.Name), zap.Error(err))
		return PendingLaunch{}, err
	}

	cmd, err := BuildCommand(exe, target, params, o.opts.Command)
	if err != nil {
		o.logger.Warn("launch aborted", zap.String("target", target.Name), zap.Error(err))
		return PendingLaunch{}, err
	}

	content, err := EncodeLegacy(o.legacy, Render(o.opts.Dialect, o.opts.Dialect.Launch(cmd)))
	if err != nil {
		o.logger.Warn("launch aborted", zap.String("target", target.Name), zap.Error(err))
		return PendingLaunch{}, err
	}

	return o.open(target.Name, cmd.String(), content, o.opts.CleanupDelay)
}

// RunMaintenance runs op against target as a chained script
func (o *Orchestrator) RunMaintenance(target LaunchTarget, op Operation, params Params) bool {
	_, err := o.Maintain(target, op, params)
	return err == nil
}

// Maintain is RunMaintenance returning the scheduled launch or the failure
func (o *Orchestrator) Maintain(target LaunchTarget, op Operation, params Params) (PendingLaunch, error) {
	steps := op.steps()
	if len(steps) == 0 {
		return PendingLaunch{}, errors.Errorf("unknown maintenance operation %d", op)
	}

	conn := ParseConnection(target.Connection)
	if conn.IsZero() {
		return PendingLaunch{}, errors.Errorf("target %q has no connection", target.Name)
	}

	exe, err := Resolve(target.Executable, ModeMaintenance)
	if err != nil {
		o.logger.Warn("maintenance aborted", zap.String("target", target.Name), zap.Error(err))
		return PendingLaunch{}, err
	}

	for _, dir := range []string{o.opts.LogDir, o.opts.DumpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return PendingLaunch{}, errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	stem := fileStem(target.Name, o.now())
	script := ChainedScript{
		Executable:  exe,
		Connection:  conn,
		Credentials: params.credentials(target, ModeMaintenance),
	}
	if op.dumps() {
		script.DumpPath = filepath.Join(o.opts.DumpDir, stem+".cf")
	}
	for _, step := range steps {
		step.Log = filepath.Join(o.opts.LogDir, stem+"_log_"+step.Action+".txt")
		script.Steps = append(script.Steps, step)
	}

	content, err := EncodeWithBOM(Render(o.opts.Dialect, o.opts.Dialect.Chain(script)))
	if err != nil {
		return PendingLaunch{}, err
	}

	o.logger.Info("running maintenance",
		zap.String("target", target.Name),
		zap.Stringer("operation", op),
		zap.Int("steps", len(script.Steps)))
	cmdline := strings.Join(script.Invocations(), " && ")
	return o.open(target.Name, cmdline, content, o.opts.MaintenanceCleanupDelay)
}

func (o *Orchestrator) open(name, cmdline string, content []byte, delay time.Duration) (PendingLaunch, error) {
	if err := os.MkdirAll(o.opts.ScriptDir, 0o755); err != nil {
		return PendingLaunch{}, errors.Wrap(err, "failed to create script directory")
	}

	id := uuid.New()
	path := filepath.Join(o.opts.ScriptDir, "launchdeck-"+id.String()+o.opts.Dialect.Extension())
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return PendingLaunch{}, errors.Wrap(err, "failed to write script")
	}

	if err := o.opener.OpenDetached(path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			o.logger.Warn("failed to remove unopened script", zap.String("path", path), zap.Error(rmErr))
		}
		o.logger.Warn("failed to start script", zap.String("target", name), zap.Error(err))
		return PendingLaunch{}, errors.Wrap(err, "failed to start script")
	}

	p := PendingLaunch{
		ID:          id,
		Target:      name,
		CommandLine: cmdline,
		ScriptPath:  path,
		CreatedAt:   o.now(),
		Delay:       delay,
	}
	o.registry.Schedule(p)

	o.logger.Info("launched",
		zap.String("target", name),
		zap.String("script", path),
		zap.Duration("cleanup_in", delay))
	return p, nil
}

// Shutdown removes all scripts still waiting for cleanup
func (o *Orchestrator) Shutdown() {
	o.registry.Shutdown()
}

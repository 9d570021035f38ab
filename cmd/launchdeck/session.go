package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/app"
	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/database"
	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/internal/loop"
	"github.com/launchdeck/launchdeck/pkg/detector"
	proctable "github.com/launchdeck/launchdeck/pkg/integrations/process"
	"github.com/launchdeck/launchdeck/pkg/window"
)

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openHistory(cfg *config.Config) (*database.DB, *database.Repository, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, database.NewRepository(db), nil
}

func loadTargets(cfg *config.Config) (*config.Targets, error) {
	if cfg.TargetsFile == "" {
		return &config.Targets{}, nil
	}
	return config.LoadTargets(cfg.TargetsFile)
}

// session is one controller running on its own event loop
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *database.DB
	repo    *database.Repository
	windows window.Manager
	loop    *loop.Loop
	ctrl    *app.Controller

	loopDone chan error
}

func openSession(ctx context.Context) (*session, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newSession(ctx, cfg, logger)
}

func newSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session, error) {
	s := &session{cfg: cfg, logger: logger}

	targets, err := loadTargets(cfg)
	if err != nil {
		return nil, err
	}

	s.db, s.repo, err = openHistory(cfg)
	if err != nil {
		return nil, err
	}

	s.windows, err = detector.New()
	if err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "failed to initialize window backend")
	}
	logger.Debug("window backend initialized", zap.String("backend", s.windows.Backend()))

	s.loop = loop.New(logger)
	s.ctrl, err = app.New(cfg, app.Env{
		Windows:   s.windows,
		Procs:     proctable.NewTable(),
		Scheduler: s.loop,
		History:   s.repo,
		Targets:   targets,
	}, logger)
	if err != nil {
		s.windows.Close()
		s.db.Close()
		return nil, err
	}

	s.loopDone = make(chan error, 1)
	go func() {
		s.loopDone <- s.loop.Start(ctx)
	}()
	return s, nil
}

// do runs fn against the controller on the loop
func (s *session) do(ctx context.Context, fn func(c *app.Controller)) error {
	return s.loop.Call(ctx, func() { fn(s.ctrl) })
}

// check runs op and turns a false result into the controller status
func (s *session) check(ctx context.Context, op func(c *app.Controller) bool) error {
	var ok bool
	var status string
	if err := s.do(ctx, func(c *app.Controller) {
		ok = op(c)
		status = c.Status()
	}); err != nil {
		return err
	}
	if !ok {
		return errors.New(status)
	}
	if status != "" {
		s.logger.Debug(status)
	}
	return nil
}

// waitForCleanup blocks until every launch script has been removed
func (s *session) waitForCleanup(ctx context.Context) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		var pending int
		if err := s.do(ctx, func(c *app.Controller) { pending = len(c.PendingLaunches()) }); err != nil {
			return err
		}
		if pending == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *session) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.do(shutdownCtx, func(c *app.Controller) { c.Shutdown() }); err != nil {
		s.logger.Warn("controller shutdown skipped", zap.Error(err))
	}

	s.loop.Stop()
	<-s.loopDone

	if err := s.windows.Close(); err != nil {
		s.logger.Warn("failed to close window backend", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = s.logger.Sync()
}

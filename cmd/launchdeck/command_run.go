package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/app"
	"github.com/launchdeck/launchdeck/internal/daemon"
	"github.com/launchdeck/launchdeck/internal/web"
)

func newRunCmd() *cobra.Command {
	var port int
	var noWeb bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stay resident: hold the global hotkey and serve the status API",
		Long: `run keeps one controller alive. The terminal window it starts in
becomes the host window: the global hotkey brings it back to the
foreground and refreshes the view, and so does restoring it by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				if err := cfg.SetWebPort(port); err != nil {
					return err
				}
			}

			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return err
			}
			if running {
				return errors.Errorf("%s is already running (PID: %d)", appName, pid)
			}

			// the session outlives the signal context so shutdown can still
			// run on the loop
			s, err := newSession(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := dm.WritePID(); err != nil {
				return err
			}
			defer dm.RemovePID()

			return serve(cmd.Context(), s, noWeb)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "status API port (default: LAUNCHDECK_WEB_PORT)")
	cmd.Flags().BoolVar(&noWeb, "no-web", false, "do not serve the status API")
	return cmd
}

func serve(parent context.Context, s *session, noWeb bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// `launchdeck stop` ends the instance through the API
	ctx, requestStop := context.WithCancel(ctx)
	defer requestStop()

	host, _, err := s.windows.Foreground()
	if err != nil {
		s.logger.Warn("no host window, the hotkey stays off", zap.Error(err))
		host = 0
	}

	var status string
	if err := s.do(ctx, func(c *app.Controller) {
		if !host.IsZero() {
			c.AttachHost(host)
		}
		c.SetVisible(true)
		status = c.Status()
	}); err != nil {
		return err
	}
	if status != "" {
		fmt.Println(status)
	}

	if !host.IsZero() {
		pumpHotkey := s.cfg.Hotkey.Enabled
		tick := s.loop.Every(s.cfg.Hotkey.Poll, func() {
			if pumpHotkey {
				s.ctrl.PumpHotkey()
			}
			s.ctrl.TrackHost()
		})
		defer tick.Stop()
	}

	var server *web.Server
	serverErr := make(chan error, 1)
	if s.cfg.Web.Enabled && !noWeb {
		server = web.NewServer(s.cfg, s.loop, s.ctrl, s.repo, s.logger)
		server.OnShutdown(requestStop)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
		fmt.Printf("Status API available at: http://%s\n", server.GetAddress())
	}

	s.logger.Info("launchdeck running", zap.Stringer("host", host))

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
	case err := <-serverErr:
		runErr = errors.Wrap(err, "status API failed")
	case err := <-s.loopDone:
		// the loop never stops on its own; put the result back for Close
		s.loopDone <- err
		runErr = errors.New("event loop stopped unexpectedly")
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("error shutting down status API", zap.Error(err))
		}
	}
	return runErr
}

func newStopCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the resident instance",
		Long: `stop asks the resident instance to shut down through its status API,
so it releases the hotkey and removes pending scripts. An instance that
cannot be reached or does not exit within --wait is terminated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			var ask func(context.Context) error
			if cfg.Web.Enabled {
				ask = func(ctx context.Context) error {
					err := web.RequestShutdown(ctx, cfg)
					if err != nil {
						logger.Warn("clean shutdown request failed", zap.Error(err))
					}
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			dm := daemon.New(cfg.Daemon.PIDFile)
			graceful, err := dm.Stop(ctx, ask)
			if err != nil {
				if errors.Is(err, daemon.ErrNotRunning) {
					fmt.Printf("%s is not running\n", appName)
					return nil
				}
				return err
			}
			if graceful {
				fmt.Printf("%s stopped\n", appName)
			} else {
				fmt.Printf("%s terminated\n", appName)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for a clean shutdown")
	return cmd
}

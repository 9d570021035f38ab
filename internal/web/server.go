package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/logging"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, runner Runner, ctrl Controller, recents Recents, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger).Named("web")
	handler := NewHandler(cfg, runner, ctrl, recents, logger)
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
		logger:  logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting status API", zap.String("url", "http://"+s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down status API")
	return s.server.Shutdown(ctx)
}

// OnShutdown sets what a shutdown request through the API triggers
func (s *Server) OnShutdown(fn func()) {
	s.handler.OnShutdown(fn)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}

// RequestShutdown asks the instance serving the status API at cfg's
// address to exit
func RequestShutdown(ctx context.Context, cfg *config.Config) error {
	url := fmt.Sprintf("http://%s:%d/api/shutdown", cfg.Web.Host, cfg.Web.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set(ShutdownHeader, "1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "status API unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return errors.Errorf("shutdown refused: %s", resp.Status)
	}
	return nil
}

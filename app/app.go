package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/server"
	"github.com/tech-arch1tect/chatauth/services/auth"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultStopTimeout = 30 * time.Second

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server
	auth   *auth.Service
}

func (a *App) Start(ctx context.Context) error {
	if err := a.fx.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	a.logger.Info("application started",
		zap.String("name", a.config.App.Name),
		zap.String("addr", a.server.ListenAddr()))
	return nil
}

// Run starts the application and blocks until SIGINT, SIGTERM or a
// shutdown requested from inside the graph, then stops it.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	exitCode := 0
	select {
	case sig := <-sigChan:
		a.logger.Info("received shutdown signal, stopping gracefully", zap.String("signal", sig.String()))
	case shutdown := <-a.fx.Wait():
		exitCode = shutdown.ExitCode
		a.logger.Warn("application requested shutdown", zap.Int("exit_code", exitCode))
	}

	if err := a.Stop(); err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("application exited with code %d", exitCode)
	}
	return nil
}

func (a *App) Stop() error {
	timeout := a.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
		return err
	}
	_ = a.logger.Sync()
	return nil
}

func (a *App) Echo() *echo.Echo {
	if a.server == nil {
		return nil
	}
	return a.server.Echo()
}

func (a *App) Server() *server.Server {
	return a.server
}

// BaseURL is only meaningful after Start.
func (a *App) BaseURL() string {
	return "http://" + a.server.ListenAddr()
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Auth() *auth.Service {
	return a.auth
}

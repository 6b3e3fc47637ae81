package server

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := srv.Listen(); err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(); err != nil {
					srv.logger.Error("server failed, shutting down", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Options = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

package revocation

import (
	"context"

	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideStore(cfg *config.Config, db *gorm.DB, logger *logging.Service) (Store, error) {
	if !cfg.Revocation.Persist {
		return NewMemoryStore(nil, logger), nil
	}
	if err := db.AutoMigrate(&RevokedToken{}); err != nil {
		return nil, err
	}
	return NewMemoryStore(db, logger), nil
}

func ProvideRevocationService(store Store, logger *logging.Service) *Service {
	return NewService(store, logger)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, store Store, svc *Service) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := store.Load(); err != nil {
				cancel()
				return err
			}
			go svc.RunCleanup(ctx, cfg.Revocation.CleanupPeriod)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

var Options = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRevocationService),
	fx.Invoke(registerLifecycle),
)

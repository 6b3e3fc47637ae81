package ratelimit

import (
	"context"
	"time"

	"github.com/tech-arch1tect/chatauth/config"
	"go.uber.org/fx"
)

func ProvideRateLimitStore(lc fx.Lifecycle, cfg *config.Config) Store {
	store := NewMemoryStore(cfg.RateLimit.Period + time.Minute)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()
			return nil
		},
	})

	return store
}

var Options = fx.Options(
	fx.Provide(ProvideRateLimitStore),
)

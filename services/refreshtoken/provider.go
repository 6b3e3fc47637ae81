package refreshtoken

import (
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/jwt"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"github.com/tech-arch1tect/chatauth/services/tokenfamily"
	"go.uber.org/fx"
)

func ProvideRefreshTokenService(codec *jwt.Service, store *tokenfamily.Store, cfg *config.Config, logger *logging.Service) *Service {
	return NewService(codec, store, cfg, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideRefreshTokenService),
)

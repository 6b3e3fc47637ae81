package auth

import (
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/jwt"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"github.com/tech-arch1tect/chatauth/services/refreshtoken"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideAuthService(cfg *config.Config, db *gorm.DB, rotation *refreshtoken.Service, codec *jwt.Service, logger *logging.Service) (*Service, error) {
	return NewService(cfg, db, rotation, codec, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideAuthService),
)

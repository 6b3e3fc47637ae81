package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/middleware/ratelimit"
	"github.com/tech-arch1tect/chatauth/openapi"
	"github.com/tech-arch1tect/chatauth/server"
	"github.com/tech-arch1tect/chatauth/services/jwt"
	"github.com/tech-arch1tect/chatauth/services/revocation"
	"go.uber.org/fx"
)

func registerRoutes(srv *server.Server, h *Handlers, cfg *config.Config, codec *jwt.Service, revocationSvc *revocation.Service, store ratelimit.Store) {
	var limiter echo.MiddlewareFunc
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.Middleware(ratelimit.FromSettings(cfg.RateLimit, store))
	}

	doc := openapi.New(cfg.App.Name, cfg.App.Version).
		Description("Access and refresh token issue, rotation and revocation")

	h.Register(srv.Echo(), RouteDeps{
		Verifier:   codec,
		Revocation: revocationSvc,
		RateLimit:  limiter,
		Doc:        doc,
	})
}

var Options = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerRoutes),
)

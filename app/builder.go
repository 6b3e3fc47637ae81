package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/database"
	"github.com/tech-arch1tect/chatauth/handlers"
	"github.com/tech-arch1tect/chatauth/middleware/ratelimit"
	"github.com/tech-arch1tect/chatauth/server"
	"github.com/tech-arch1tect/chatauth/services/auth"
	"github.com/tech-arch1tect/chatauth/services/jwt"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"github.com/tech-arch1tect/chatauth/services/refreshtoken"
	"github.com/tech-arch1tect/chatauth/services/revocation"
	"github.com/tech-arch1tect/chatauth/services/tokenfamily"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

type AppBuilder struct {
	config    *config.Config
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.errors = append(b.errors, fmt.Errorf("failed to load config: %w", err))
		return b
	}
	b.config = cfg
	return b
}

// WithModels adds extra models to the auto-migration set.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	app := &App{config: b.config}

	opts := []fx.Option{
		config.NewProvider(b.config),
		fx.Supply(database.WithModels(b.schema()...)),
		fxLogger(b.config),
		logging.Options,
		database.Options,
		jwt.Options,
		tokenfamily.Options,
		refreshtoken.Options,
		auth.Options,
		revocation.Options,
		ratelimit.Options,
		server.Options,
		handlers.Options,
	}
	opts = append(opts, b.fxOptions...)
	opts = append(opts, fx.Populate(&app.logger, &app.db, &app.server, &app.auth))

	app.fx = fx.New(opts...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) schema() []any {
	models := []any{&auth.User{}}
	models = append(models, tokenfamily.Models()...)
	return append(models, b.models...)
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}
	return nil
}

func fxLogger(cfg *config.Config) fx.Option {
	if cfg.Log.Level != string(logging.Debug) {
		return fx.NopLogger
	}
	return fx.WithLogger(func(logger *logging.Service) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx").Logger()}
	})
}

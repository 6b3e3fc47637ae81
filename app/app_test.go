package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/chatauth/api"
	"github.com/tech-arch1tect/chatauth/testutils"
	"go.uber.org/fx"
)

func startTestApp(t *testing.T) *App {
	t.Helper()

	app, err := NewApp().WithConfig(testutils.GetTestConfig()).Build()
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, app.Stop())
	})
	return app
}

func TestAppBuilder_WithConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		builder := NewApp()

		result := builder.WithConfig(cfg)

		assert.Equal(t, builder, result)
		assert.Equal(t, cfg, builder.config)
	})

	t.Run("nil config", func(t *testing.T) {
		builder := NewApp()

		_, err := builder.WithConfig(nil).Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})
}

func TestAppBuilder_schema(t *testing.T) {
	type Extra struct {
		ID uint `gorm:"primaryKey"`
	}

	models := NewApp().WithModels(&Extra{}).schema()

	assert.Len(t, models, 5)
	assert.IsType(t, &Extra{}, models[len(models)-1])
}

func TestAppBuilder_Build(t *testing.T) {
	t.Run("populates services", func(t *testing.T) {
		app, err := NewApp().WithConfig(testutils.GetTestConfig()).Build()
		require.NoError(t, err)

		assert.NotNil(t, app.Logger())
		assert.NotNil(t, app.DB())
		assert.NotNil(t, app.Server())
		assert.NotNil(t, app.Echo())
		assert.NotNil(t, app.Auth())
	})

	t.Run("graph errors surface", func(t *testing.T) {
		_, err := NewApp().
			WithConfig(testutils.GetTestConfig()).
			WithFxOptions(fx.Invoke(func(missing *bytes.Buffer) {})).
			Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to build application")
	})

	t.Run("unsupported driver", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.Database.Driver = "oracle"

		_, err := NewApp().WithConfig(cfg).Build()

		require.Error(t, err)
	})
}

func TestApp_StartServesRoutes(t *testing.T) {
	app := startTestApp(t)

	resp, err := http.Get(app.BaseURL() + "/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := json.Marshal(api.Credentials{Email: "alice@example.com", Password: "Password123"})
	resp, err = http.Post(app.BaseURL()+"/auth/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var env api.Envelope[api.SignupResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.True(t, env.Success)
	require.NotNil(t, env.Data)
	assert.NotZero(t, env.Data.ID)

	user, err := app.Auth().UserByID(context.Background(), env.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Username)
}

func TestApp_StopReleasesListener(t *testing.T) {
	app, err := NewApp().WithConfig(testutils.GetTestConfig()).Build()
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	url := app.BaseURL() + "/openapi.json"
	require.NoError(t, app.Stop())

	_, err = http.Get(url)
	assert.Error(t, err)
}

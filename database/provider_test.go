package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/chatauth/config"
)

func createTestConfig(driver, dsn string, autoMigrate bool) config.Config {
	return config.Config{
		Database: config.DatabaseConfig{
			Driver:      driver,
			DSN:         dsn,
			AutoMigrate: autoMigrate,
		},
	}
}

type TestModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255"`
}

func TestWithModels(t *testing.T) {
	t.Run("with multiple models", func(t *testing.T) {
		option := WithModels(TestModel{}, &TestModel{})

		assert.Len(t, option.Models(), 2)
	})

	t.Run("nil option", func(t *testing.T) {
		var option *ModelsOption

		assert.Nil(t, option.Models())
	})
}

func TestProvideDatabase(t *testing.T) {
	t.Run("sqlite with auto migrate", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "test.db")
		cfg := createTestConfig("sqlite", dsn, true)

		db, err := ProvideDatabase(cfg, WithModels(&TestModel{}), nil)

		require.NoError(t, err)
		require.NotNil(t, db)
		assert.True(t, db.Migrator().HasTable(&TestModel{}))

		require.NoError(t, db.Create(&TestModel{Name: "alice"}).Error)
		var count int64
		require.NoError(t, db.Model(&TestModel{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("sqlite without auto migrate", func(t *testing.T) {
		cfg := createTestConfig("sqlite", ":memory:", false)

		db, err := ProvideDatabase(cfg, WithModels(&TestModel{}), nil)

		require.NoError(t, err)
		assert.False(t, db.Migrator().HasTable(&TestModel{}))
	})

	t.Run("unsupported driver", func(t *testing.T) {
		cfg := createTestConfig("oracle", "dsn", true)

		db, err := ProvideDatabase(cfg, nil, nil)

		require.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "unsupported database driver: oracle")
	})
}

// Package backendtest opens an in-memory sqlite backend for package tests.
package backendtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

// New returns a migrated backend with an in-process bus and uploads rooted
// in a temp dir.
func New(t *testing.T) *backend.GormBackend {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))

	objects := backend.DiskObjects{Root: t.TempDir(), BaseURL: "http://test.local"}
	return backend.NewGormBackend(db, backend.NewLocalBus(), objects, zap.NewNop())
}

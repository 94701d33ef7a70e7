package testutil

import (
	"database/sql"
	"testing"

	"github.com/yuigahama/tsundoku/internal/api"
	"github.com/yuigahama/tsundoku/internal/config"
	"github.com/yuigahama/tsundoku/internal/core"
	"github.com/yuigahama/tsundoku/internal/providers"
	"github.com/yuigahama/tsundoku/internal/providers/mockdex"
)

// SetupTestApp builds a core.App backed by an in-memory database with the
// mockdex provider registered.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	db := SetupTestDB(t)

	cfg := &config.Config{}
	cfg.Backup.Path = t.TempDir()
	app := core.NewWith(cfg, db, "test")

	t.Cleanup(func() {
		providers.UnregisterAll()
	})
	providers.Register(mockdex.New())
	return app
}

// SetupTestServer initializes a full core.App and api.Server for
// integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB) {
	t.Helper()
	app := SetupTestApp(t)
	server := api.NewServer(app)
	return server, app.DB()
}

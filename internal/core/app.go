package core

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/yuigahama/tsundoku/internal/config"
	"github.com/yuigahama/tsundoku/internal/db"
	"github.com/yuigahama/tsundoku/internal/jobs"
	"github.com/yuigahama/tsundoku/internal/websocket"
)

// App holds the core components shared across the server: configuration,
// the database handle, the websocket hub and the job manager. It satisfies
// jobs.JobContext.
type App struct {
	cfg     *config.Config
	db      *sql.DB
	wsHub   *websocket.Hub
	jobMgr  *jobs.JobManager
	version string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, and running migrations.
func New(version string) (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		// Close the DB connection before failing.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	log.Println("Core application setup complete.")
	return NewWith(cfg, database, version), nil
}

// NewWith assembles an App from already-initialized components. Tests use it
// to inject an in-memory database.
func NewWith(cfg *config.Config, database *sql.DB, version string) *App {
	app := &App{
		cfg:     cfg,
		db:      database,
		wsHub:   websocket.NewHub(),
		version: version,
	}
	app.jobMgr = jobs.NewManager(app)
	jobs.RegisterJobs(app.jobMgr)
	go app.wsHub.Run()
	return app
}

func (a *App) DB() *sql.DB                  { return a.db }
func (a *App) Config() *config.Config       { return a.cfg }
func (a *App) WsHub() *websocket.Hub        { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager { return a.jobMgr }
func (a *App) Version() string              { return a.version }

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yuigahama/tsundoku/internal/backup"
	"github.com/yuigahama/tsundoku/internal/core"
	"github.com/yuigahama/tsundoku/internal/migrate"
	"github.com/yuigahama/tsundoku/internal/policy"
	"github.com/yuigahama/tsundoku/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app     *core.App
	db      *sql.DB
	store   *store.Store
	backup  *backup.Service
	session *migrate.Session
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// Session returns the migration session. Exposed for tests.
func (s *Server) Session() *migrate.Session {
	return s.session
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	storeInstance := store.New(app.DB())
	backupSvc := backup.New(app.DB(), app.Config().Backup.Path)
	return &Server{
		app:     app,
		db:      app.DB(),
		store:   storeInstance,
		backup:  backupSvc,
		session: migrate.NewSession(storeInstance, policy.NewService(storeInstance), backupSvc),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/users/login", s.handleLogin)
	r.Get("/api/version", s.handleGetVersion)

	// Cover proxy (remote covers need resizing and referer-free fetching)
	r.Get("/api/proxy/cover", s.handleProxyCover)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/api/users/logout", s.handleLogout)
		r.Get("/api/users/me", s.handleGetMe)

		r.Route("/api", func(r chi.Router) {
			// Provider Routes
			r.Get("/providers", s.handleListProviders)
			r.Get("/providers/{providerID}/search", s.handleProviderSearch)
			r.Get("/providers/{providerID}/series/{seriesIdentifier}", s.handleProviderGetChapters)

			// Library Routes
			r.Get("/library", s.handleListLibrary)
			r.Post("/library", s.handleAddToLibrary)
			r.Get("/library/{entryID}", s.handleGetEntry)
			r.Delete("/library/{entryID}", s.handleRemoveEntry)
			r.Get("/library/{entryID}/chapters", s.handleGetEntryChapters)
			r.Post("/library/{entryID}/chapters/{chapterID}/progress", s.handleUpdateProgress)
			r.Get("/library/{entryID}/links", s.handleListEntryLinks)
			r.Delete("/library/{entryID}/links/{contentID}", s.handleUnlinkContent)

			// Content Filter Routes
			r.Get("/filters", s.handleListFilters)
			r.Post("/filters", s.handleAddFilter)
			r.Delete("/filters/{filterID}", s.handleDeleteFilter)

			// Migration Session Routes
			r.Post("/migration/search", s.handleStartMigrationSearch)
			r.Get("/migration/state", s.handleGetMigrationState)
			r.Post("/migration/cancel", s.handleCancelMigrationSearch)
			r.Delete("/migration/items/{entryID}", s.handleRemoveMigrationItem)
			r.Post("/migration/filter-non-matches", s.handleFilterNonMatches)
			r.Post("/migration/apply", s.handleApplyMigration)

			// Admin Routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.AdminOnlyMiddleware)

				r.Get("/jobs/status", s.handleGetAdminJobsStatus)
				r.Post("/jobs/run", s.handleRunAdminJob)

				r.Get("/backups", s.handleListBackups)
				r.Post("/backups", s.handleCreateBackup)

				// User Management Routes
				r.Get("/users", s.handleAdminListUsers)
				r.Post("/users", s.handleAdminCreateUser)
				r.Put("/users/{userID}", s.handleAdminUpdateUser)
				r.Delete("/users/{userID}", s.handleAdminDeleteUser)
			})
		})
	})

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{
		"version": s.app.Version(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

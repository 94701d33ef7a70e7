package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/yuigahama/tsundoku/internal/migrate"
	"github.com/yuigahama/tsundoku/internal/models"
)

// handleStartMigrationSearch kicks off a migration search. The search runs
// in the background; per-item state updates are streamed over the websocket
// hub and can also be polled via the state endpoint.
func (s *Server) handleStartMigrationSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EntryIDs  []string `json:"entry_ids"`
		Providers []string `json:"providers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// The search outlives this request; its lifetime is controlled by the
	// session, not the connection.
	updates, err := s.session.StartSearch(context.Background(), payload.EntryIDs, payload.Providers)
	if err != nil {
		switch {
		case errors.Is(err, migrate.ErrSearchRunning):
			RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, migrate.ErrNoItems):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			RespondWithError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	go func() {
		for update := range updates {
			s.app.WsHub().BroadcastJSON(update)
		}
	}()

	RespondWithJSON(w, http.StatusAccepted, map[string]int{"items": len(payload.EntryIDs)})
}

func (s *Server) handleGetMigrationState(w http.ResponseWriter, r *http.Request) {
	states, order := s.session.States()

	type item struct {
		EntryID string                `json:"entry_id"`
		State   models.MigrationState `json:"state"`
	}
	items := make([]item, 0, len(order))
	for _, id := range order {
		items = append(items, item{EntryID: id, State: states[id]})
	}
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) handleCancelMigrationSearch(w http.ResponseWriter, r *http.Request) {
	s.session.Cancel()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemoveMigrationItem(w http.ResponseWriter, r *http.Request) {
	entryID, err := url.PathUnescape(chi.URLParam(r, "entryID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}
	s.session.RemoveItem(entryID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFilterNonMatches(w http.ResponseWriter, r *http.Request) {
	s.session.FilterNonMatches()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleApplyMigration(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LibraryStrategy      string `json:"library_strategy"`
		LowerChapterStrategy string `json:"lower_chapter_strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var libStrategy models.LibraryStrategy
	switch payload.LibraryStrategy {
	case string(models.StrategyLink):
		libStrategy = models.StrategyLink
	case string(models.StrategyReplace), "":
		libStrategy = models.StrategyReplace
	default:
		RespondWithError(w, http.StatusBadRequest, "library_strategy must be 'link' or 'replace'")
		return
	}

	var lowerStrategy models.LowerChapterStrategy
	switch payload.LowerChapterStrategy {
	case string(models.LowerMigrate):
		lowerStrategy = models.LowerMigrate
	case string(models.LowerSkip), "":
		lowerStrategy = models.LowerSkip
	default:
		RespondWithError(w, http.StatusBadRequest, "lower_chapter_strategy must be 'skip' or 'migrate'")
		return
	}

	err := s.session.Apply(r.Context(), libStrategy, lowerStrategy)
	if err != nil {
		switch {
		case errors.Is(err, migrate.ErrSearchRunning):
			RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, migrate.ErrNoItems):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			RespondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// A session's states never outlive the run they were built for.
	s.session.Reset()
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

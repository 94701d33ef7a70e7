package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/providers"
	"github.com/yuigahama/tsundoku/internal/store"
)

func (s *Server) handleListLibrary(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListEntries()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list library entries")
		return
	}
	if entries == nil {
		entries = []*models.LibraryEntry{}
	}
	RespondWithJSON(w, http.StatusOK, entries)
}

// handleAddToLibrary creates a library entry from a provider search result:
// it fetches and persists the chapter list, then tracks the content.
func (s *Server) handleAddToLibrary(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProviderID  string   `json:"provider_id"`
		Identifier  string   `json:"identifier"`
		Title       string   `json:"title"`
		CoverURL    string   `json:"cover_url"`
		Flag        string   `json:"flag"`
		Collections []string `json:"collections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.ProviderID == "" || payload.Identifier == "" || payload.Title == "" {
		RespondWithError(w, http.StatusBadRequest, "provider_id, identifier and title are required")
		return
	}

	p, ok := providers.Get(payload.ProviderID)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Provider not found")
		return
	}

	ctx, cancel := timeoutContext(r, s.providerTimeout())
	defer cancel()

	chapterResults, err := p.GetChapters(ctx, payload.Identifier)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to fetch chapters from provider")
		return
	}

	content, err := s.store.GetOrCreateContent(payload.ProviderID, payload.Identifier, payload.Title, payload.CoverURL)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to store content")
		return
	}

	chapters := make([]*models.Chapter, 0, len(chapterResults))
	for _, cr := range chapterResults {
		chapters = append(chapters, cr.StoredChapter(content.ID))
	}
	if err := s.store.ReplaceChapters(content.ID, chapters); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to store chapters")
		return
	}

	flag := models.EntryFlag(payload.Flag)
	if flag == "" {
		flag = models.FlagReading
	}
	entry, err := s.store.CreateEntry(content.ID, flag, len(chapters), payload.Collections)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create library entry")
		return
	}
	RespondWithJSON(w, http.StatusCreated, entry)
}

func (s *Server) entryIDParam(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "entryID"))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := s.entryIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}
	entry, err := s.store.GetEntry(entryID)
	if errors.Is(err, store.ErrEntryNotFound) {
		RespondWithError(w, http.StatusNotFound, "Library entry not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load library entry")
		return
	}
	RespondWithJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := s.entryIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}
	err = s.store.RunInTx(func(tx *sql.Tx) error { return s.store.SoftDeleteEntryTx(tx, entryID) })
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to remove library entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetEntryChapters(w http.ResponseWriter, r *http.Request) {
	entryID, err := s.entryIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}
	entry, err := s.store.GetEntry(entryID)
	if errors.Is(err, store.ErrEntryNotFound) {
		RespondWithError(w, http.StatusNotFound, "Library entry not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load library entry")
		return
	}
	chapters, err := s.store.GetChaptersByContent(entry.ContentID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load chapters")
		return
	}
	if chapters == nil {
		chapters = []*models.Chapter{}
	}
	RespondWithJSON(w, http.StatusOK, chapters)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	entryID, err := s.entryIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}
	chapterID, err := url.PathUnescape(chi.URLParam(r, "chapterID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid chapter id")
		return
	}

	var payload struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	entry, err := s.store.GetEntry(entryID)
	if errors.Is(err, store.ErrEntryNotFound) {
		RespondWithError(w, http.StatusNotFound, "Library entry not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load library entry")
		return
	}

	if err := s.store.MarkChapter(entry.ContentID, chapterID, payload.Completed); err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			RespondWithError(w, http.StatusBadRequest, "Chapter does not belong to this entry")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to update progress")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListEntryLinks(w http.ResponseWriter, r *http.Request) {
	entryID, err := s.entryIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}
	links, err := s.store.ListLinks(entryID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list content links")
		return
	}
	if links == nil {
		links = []*models.ContentLink{}
	}
	RespondWithJSON(w, http.StatusOK, links)
}

func (s *Server) handleUnlinkContent(w http.ResponseWriter, r *http.Request) {
	entryID, err := s.entryIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}
	contentID, err := url.PathUnescape(chi.URLParam(r, "contentID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid content id")
		return
	}
	if err := s.store.UnlinkContent(entryID, contentID); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to unlink content")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

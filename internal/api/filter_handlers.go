package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yuigahama/tsundoku/internal/models"
)

func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := s.store.ListContentFilters()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list filters")
		return
	}
	if filters == nil {
		filters = []models.ContentFilter{}
	}
	RespondWithJSON(w, http.StatusOK, filters)
}

func (s *Server) handleAddFilter(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProviderID string `json:"provider_id"`
		Kind       string `json:"kind"`
		Value      string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Value == "" {
		RespondWithError(w, http.StatusBadRequest, "Filter value is required")
		return
	}

	filter, err := s.store.AddContentFilter(payload.ProviderID, payload.Kind, payload.Value)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusCreated, filter)
}

func (s *Server) handleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "filterID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid filter ID")
		return
	}
	if err := s.store.DeleteContentFilter(id); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete filter")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yuigahama/tsundoku/internal/providers"
)

func timeoutContext(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// providerTimeout bounds a single provider call made on behalf of an API
// request, from config with a sane floor.
func (s *Server) providerTimeout() time.Duration {
	secs := s.app.Config().Search.ProviderTimeoutSeconds
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, providers.GetAll())
}

func (s *Server) handleProviderSearch(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	query := r.URL.Query().Get("q")
	if query == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing search query 'q'")
		return
	}

	p, ok := providers.Get(providerID)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Provider not found")
		return
	}

	ctx, cancel := timeoutContext(r, s.providerTimeout())
	defer cancel()

	results, err := p.Search(ctx, query)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Provider search failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, results)
}

func (s *Server) handleProviderGetChapters(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	identifier, err := url.PathUnescape(chi.URLParam(r, "seriesIdentifier"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid series identifier")
		return
	}

	p, ok := providers.Get(providerID)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Provider not found")
		return
	}

	ctx, cancel := timeoutContext(r, s.providerTimeout())
	defer cancel()

	chapters, err := p.GetChapters(ctx, identifier)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Provider chapter fetch failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, chapters)
}

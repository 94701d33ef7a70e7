package migrate

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/providers"
)

// StartSearch begins a migration search for the given entries across the
// given providers, in the caller's provider order. Items are processed
// sequentially; within one item all providers are queried concurrently.
// Per-item state updates are delivered on the returned channel, which is
// closed when the search finishes or is cancelled.
func (s *Session) StartSearch(ctx context.Context, entryIDs []string, providerOrder []string) (<-chan models.MigrationUpdate, error) {
	if len(entryIDs) == 0 {
		return nil, ErrNoItems
	}

	provs := make([]models.Provider, 0, len(providerOrder))
	for _, id := range providerOrder {
		p, ok := providers.Get(id)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", id)
		}
		provs = append(provs, p)
	}
	if len(provs) == 0 {
		return nil, fmt.Errorf("no providers selected")
	}

	s.mu.Lock()
	if s.searching {
		s.mu.Unlock()
		return nil, ErrSearchRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.searching = true
	s.cancel = cancel
	s.states = make(map[string]models.MigrationState, len(entryIDs))
	s.order = append([]string(nil), entryIDs...)
	for _, id := range entryIDs {
		s.states[id] = models.MigrationState{Kind: models.MigrationIdle}
	}
	s.mu.Unlock()

	// Enough room for the searching + terminal update of every item, so the
	// search loop never blocks on a slow consumer.
	updates := make(chan models.MigrationUpdate, len(entryIDs)*2+1)

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			s.searching = false
			s.cancel = nil
			s.mu.Unlock()
			close(updates)
		}()

		// Items run strictly one after another: provider adapters and the
		// persisted chapter cache are not assumed safe for overlapping
		// item-level writes.
		for i, entryID := range entryIDs {
			if ctx.Err() != nil {
				return // remaining items stay idle
			}

			s.setState(entryID, models.MigrationState{Kind: models.MigrationSearching})
			updates <- models.MigrationUpdate{EntryID: entryID, State: models.MigrationState{Kind: models.MigrationSearching}}

			state := s.searchEntry(ctx, entryID, provs)
			if ctx.Err() != nil {
				state = models.MigrationState{Kind: models.MigrationIdle}
			}

			s.setState(entryID, state)
			updates <- models.MigrationUpdate{EntryID: entryID, State: state, Done: i == len(entryIDs)-1}
		}
	}()

	return updates, nil
}

// providerResult is one provider's contribution to an item's search:
// the candidate it found and the most advanced chapter it has for it.
type providerResult struct {
	index     int // position in the caller's provider order
	candidate models.Highlight
	matched   float64
	count     int
}

// searchEntry fans out to all providers for one entry and reduces the
// results to a single classification.
func (s *Session) searchEntry(ctx context.Context, entryID string, provs []models.Provider) models.MigrationState {
	entry, err := s.st.GetEntry(entryID)
	if err != nil {
		log.Printf("Migration search: entry %s could not be resolved: %v", entryID, err)
		return models.MigrationState{Kind: models.MigrationNoMatches}
	}
	content, err := s.st.GetContentByID(entry.ContentID)
	if err != nil {
		log.Printf("Migration search: content for entry %s could not be resolved: %v", entryID, err)
		return models.MigrationState{Kind: models.MigrationNoMatches}
	}
	tracked, err := s.st.HighestCompletedNumber(entry.ContentID)
	if err != nil {
		tracked = 0
	}

	results := make(chan providerResult, len(provs))
	var wg sync.WaitGroup
	for i, p := range provs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(index int, p models.Provider) {
			defer wg.Done()
			if res, ok := s.searchProvider(ctx, p, content.Title); ok {
				res.index = index
				results <- res
			}
		}(i, p)
	}
	wg.Wait()
	close(results)

	// Index the results by provider position so ties resolve to the
	// earliest provider in the caller-supplied order. A result that cannot
	// be ranked would lose all ties, but every launched provider has an
	// index here.
	ranked := make([]*providerResult, len(provs))
	for r := range results {
		r := r
		ranked[r.index] = &r
	}

	var best *providerResult
	for _, r := range ranked {
		if r == nil {
			continue
		}
		// A provider finding the item itself is only a valid migration
		// target when it is the sole provider searched (refreshing the
		// same source).
		if r.candidate.ID == entry.ContentID && len(provs) > 1 {
			continue
		}
		if best == nil || r.matched > best.matched {
			best = r
		}
	}

	if best == nil {
		return models.MigrationState{Kind: models.MigrationNoMatches}
	}
	if tracked <= 0 || best.matched >= tracked {
		return models.MigrationState{
			Kind:         models.MigrationFound,
			Candidate:    &best.candidate,
			ChapterCount: best.count,
		}
	}
	return models.MigrationState{
		Kind:          models.MigrationLowerFind,
		Candidate:     &best.candidate,
		ChapterCount:  best.count,
		TrackedNumber: tracked,
		MatchedNumber: best.matched,
	}
}

// searchProvider runs one provider's query for one item: search by title,
// take the best first-page result, resolve its chapter list, persist the
// filtered chapters, and report the most advanced chapter number. Provider
// errors only cost this provider its candidate; they never abort the item.
func (s *Session) searchProvider(ctx context.Context, p models.Provider, title string) (providerResult, bool) {
	info := p.GetInfo()

	found, err := p.Search(ctx, title)
	if err != nil || len(found) == 0 {
		if err != nil && ctx.Err() == nil {
			log.Printf("Migration search: provider %s search failed: %v", info.ID, err)
		}
		return providerResult{}, false
	}
	first := found[0]

	chapterResults, err := p.GetChapters(ctx, first.Identifier)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Migration search: provider %s chapter fetch failed: %v", info.ID, err)
		}
		return providerResult{}, false
	}

	contentID := models.ContentID(info.ID, first.Identifier)
	chapters := make([]*models.Chapter, 0, len(chapterResults))
	for _, cr := range chapterResults {
		chapters = append(chapters, cr.StoredChapter(contentID))
	}
	chapters = s.filter.Filter(chapters, info.ID)

	// Persist every fetched chapter list, win or lose, so the applier can
	// re-read it without another network round trip.
	if err := s.persistChapters(info.ID, first, chapters); err != nil {
		log.Printf("Migration search: persisting chapters from %s failed: %v", info.ID, err)
		return providerResult{}, false
	}

	matched := 0.0
	for _, ch := range chapters {
		if ch.Number > matched {
			matched = ch.Number
		}
	}

	return providerResult{
		candidate: models.Highlight{
			ID:         contentID,
			ProviderID: info.ID,
			ExternalID: first.Identifier,
			Title:      first.Title,
			CoverURL:   first.CoverURL,
		},
		matched: matched,
		count:   len(chapters),
	}, true
}

func (s *Session) persistChapters(providerID string, result models.SearchResult, chapters []*models.Chapter) error {
	content, err := s.st.GetOrCreateContent(providerID, result.Identifier, result.Title, result.CoverURL)
	if err != nil {
		return err
	}
	return s.st.ReplaceChapters(content.ID, chapters)
}

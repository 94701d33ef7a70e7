// Package policy applies user-defined content filter rules to chapter lists.
// The migration engine runs every fetched chapter list through this policy
// before persisting or counting it, so unread counts always reflect what the
// user would actually see.
package policy

import (
	"strings"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/store"
)

// Apply filters chapters by the given rules. It is a pure function: the
// input slice is not modified and no other state is touched. Rules scoped to
// a provider only apply when providerID matches.
func Apply(chapters []*models.Chapter, providerID string, rules []models.ContentFilter) []*models.Chapter {
	if len(rules) == 0 {
		return chapters
	}

	out := make([]*models.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if keep(ch, providerID, rules) {
			out = append(out, ch)
		}
	}
	return out
}

func keep(ch *models.Chapter, providerID string, rules []models.ContentFilter) bool {
	for _, rule := range rules {
		if rule.ProviderID != "" && rule.ProviderID != providerID {
			continue
		}
		switch rule.Kind {
		case "language":
			// Keep only chapters in the configured language. Chapters that
			// don't report a language pass through.
			if ch.Language != "" && !strings.EqualFold(ch.Language, rule.Value) {
				return false
			}
		case "keyword":
			if rule.Value != "" && strings.Contains(strings.ToLower(ch.Title), strings.ToLower(rule.Value)) {
				return false
			}
		}
	}
	return true
}

// Service binds the filter policy to the stored rule set.
type Service struct {
	st *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{st: st}
}

// Filter applies the currently stored rules to a chapter list. A rule
// lookup failure fails open: an unfilterable list is better than silently
// dropping chapters the user tracks.
func (s *Service) Filter(chapters []*models.Chapter, providerID string) []*models.Chapter {
	rules, err := s.st.ListContentFilters()
	if err != nil {
		return chapters
	}
	return Apply(chapters, providerID, rules)
}

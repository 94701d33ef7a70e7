// A mock provider for development and testing purposes. It simulates
// searching and fetching from a real site without making network calls.
package mockdex

import (
	"context"
	"fmt"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
)

type MockdexProvider struct {
	id       string
	chapters int
}

// New returns the default mock provider with 25 chapters per series.
func New() *MockdexProvider {
	return &MockdexProvider{id: "mockdex", chapters: 25}
}

// NewWithChapters returns a mock provider with a custom id and chapter
// count, so tests can stand up several competing providers.
func NewWithChapters(id string, chapters int) *MockdexProvider {
	return &MockdexProvider{id: id, chapters: chapters}
}

func (p *MockdexProvider) GetInfo() models.ProviderInfo {
	return models.ProviderInfo{
		ID:   p.id,
		Name: "Mockdex",
	}
}

func (p *MockdexProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var results []models.SearchResult
	for i := 1; i <= 5; i++ {
		results = append(results, models.SearchResult{
			Title:      fmt.Sprintf("%s - Result %d", query, i),
			CoverURL:   fmt.Sprintf("https://placehold.co/400x600?text=Cover+%d", i),
			Identifier: fmt.Sprintf("%s-series-%d", p.id, i),
		})
	}
	return results, nil
}

func (p *MockdexProvider) GetChapters(ctx context.Context, seriesIdentifier string) ([]models.ChapterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var results []models.ChapterResult
	for i := p.chapters; i >= 1; i-- {
		vol := float64((i-1)/10 + 1)
		results = append(results, models.ChapterResult{
			Identifier:  fmt.Sprintf("%s-chapter-%d", seriesIdentifier, i),
			Title:       fmt.Sprintf("Chapter %d: The Mocking", i),
			Number:      float64(i),
			Volume:      &vol,
			Language:    "en",
			PublishedAt: time.Now().AddDate(0, 0, -i),
		})
	}
	return results, nil
}

package models

import (
	"context"
	"time"
)

// ProviderInfo contains static information about a provider.
type ProviderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchResult represents a single series found by a provider.
type SearchResult struct {
	Title      string `json:"title"`
	CoverURL   string `json:"cover_url"`
	Identifier string `json:"identifier"` // Unique ID for the series on the source site
}

// ChapterResult represents a single chapter for a series from a provider,
// ordered by recency (first = most advanced).
type ChapterResult struct {
	Identifier  string    `json:"identifier"` // Unique ID for the chapter on the source site
	Title       string    `json:"title"`
	Number      float64   `json:"number"`
	Volume      *float64  `json:"volume,omitempty"`
	Language    string    `json:"language"`
	PublishedAt time.Time `json:"published_at"`
}

// Provider defines the contract that every content source must implement.
// Implementations must honor context cancellation promptly; in-flight
// requests are abandoned when a migration search is cancelled.
type Provider interface {
	GetInfo() ProviderInfo
	Search(ctx context.Context, query string) ([]SearchResult, error)
	GetChapters(ctx context.Context, seriesIdentifier string) ([]ChapterResult, error)
}

// StoredChapter converts a provider chapter result into the stored shape for
// the given content.
func (r ChapterResult) StoredChapter(contentID string) *Chapter {
	ch := &Chapter{
		ID:         ChapterID(contentID, r.Identifier),
		ContentID:  contentID,
		ExternalID: r.Identifier,
		Title:      r.Title,
		Number:     r.Number,
		Volume:     r.Volume,
		Language:   r.Language,
	}
	if !r.PublishedAt.IsZero() {
		t := r.PublishedAt
		ch.PublishedAt = &t
	}
	return ch
}

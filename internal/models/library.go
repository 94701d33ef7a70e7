// This file defines the core data structures (models) for the application.
// These structs represent the contents, chapters, and library entries the
// server tracks across providers.

package models

import "time"

// EntryFlag classifies a library entry from the user's point of view.
type EntryFlag string

const (
	FlagReading    EntryFlag = "reading"
	FlagPlanToRead EntryFlag = "plan_to_read"
	FlagCompleted  EntryFlag = "completed"
	FlagDropped    EntryFlag = "dropped"
	FlagUnknown    EntryFlag = "unknown"
)

// ContentID derives the stable identifier for a piece of content from the
// provider it lives on and its identifier there. Every record that points at
// content does so through this id, so it must stay stable across re-fetches.
func ContentID(providerID, externalID string) string {
	return providerID + "::" + externalID
}

// ChapterID derives the stable identifier for a stored chapter.
func ChapterID(contentID, chapterExternalID string) string {
	return contentID + "::" + chapterExternalID
}

// Content is a series as known on one provider.
type Content struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	CoverURL   string    `json:"cover_url"`
	Deleted    bool      `json:"deleted"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// Chapter is a single chapter of a content, as last fetched from its
// provider. The chapter set for a content is replaced wholesale on re-fetch.
type Chapter struct {
	ID          string     `json:"id"`
	ContentID   string     `json:"content_id"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Number      float64    `json:"number"`
	Volume      *float64   `json:"volume,omitempty"`
	Language    string     `json:"language"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// LibraryEntry is a user-tracked item bound to one provider's content. Its id
// equals the tracked content's id. Entries are soft-deleted when replaced
// during a migration, never removed.
type LibraryEntry struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"content_id"`
	Flag        EntryFlag `json:"flag"`
	UnreadCount int       `json:"unread_count"`
	Collections []string  `json:"collections"`
	Deleted     bool      `json:"deleted"`
	DateAdded   time.Time `json:"date_added"`
	UpdatedAt   time.Time `json:"-"`

	// Denormalized for list views; populated by the store when loaded.
	Title    string `json:"title,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`
	Provider string `json:"provider_id,omitempty"`
}

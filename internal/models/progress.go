package models

import "time"

// ChapterReference points a progress marker at a specific stored chapter and
// the content that owns it. It only resolves while the content is not
// deleted.
type ChapterReference struct {
	ID        string `json:"id"` // equals the chapter id
	ContentID string `json:"content_id"`
	ChapterID string `json:"chapter_id"`
}

// ProgressMarker records read/completed status for one chapter. Its id is
// derived from the chapter reference id, so there is at most one marker per
// chapter.
type ProgressMarker struct {
	ID          string    `json:"id"`
	ReferenceID string    `json:"reference_id"`
	Completed   bool      `json:"completed"`
	Hidden      bool      `json:"hidden"` // hidden from reading history
	Deleted     bool      `json:"deleted"`
	UpdatedAt   time.Time `json:"-"`
}

// ContentLink associates a library entry with additional content it was
// migrated to without replacing the original entry. Unique per
// (entry, content) pair while not deleted.
type ContentLink struct {
	ID        int64     `json:"id"`
	EntryID   string    `json:"entry_id"`
	ContentID string    `json:"content_id"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentFilter is one user-defined rule applied to chapter lists before
// they are counted or persisted. An empty ProviderID applies the rule to
// every provider.
type ContentFilter struct {
	ID         int64  `json:"id"`
	ProviderID string `json:"provider_id"`
	Kind       string `json:"kind"` // "language" or "keyword"
	Value      string `json:"value"`
}

package models

// Highlight identifies a prospective match found on a provider during a
// migration search. It is ephemeral and never persisted as-is.
type Highlight struct {
	ID         string `json:"id"` // derived content id
	ProviderID string `json:"provider_id"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	CoverURL   string `json:"cover_url"`
}

// MigrationStateKind tags the per-item migration lifecycle state.
type MigrationStateKind string

const (
	MigrationIdle      MigrationStateKind = "idle"
	MigrationSearching MigrationStateKind = "searching"
	MigrationFound     MigrationStateKind = "found"
	MigrationLowerFind MigrationStateKind = "lower_find"
	MigrationNoMatches MigrationStateKind = "no_matches"
)

// MigrationState is the tagged variant tracking one library item through a
// migration session. Only the kinds below carry a payload:
//
//	found:      Candidate, ChapterCount
//	lower_find: Candidate, ChapterCount, TrackedNumber, MatchedNumber
//
// States live only in session memory and are discarded when the session ends.
type MigrationState struct {
	Kind          MigrationStateKind `json:"kind"`
	Candidate     *Highlight         `json:"candidate,omitempty"`
	ChapterCount  int                `json:"chapter_count,omitempty"`
	TrackedNumber float64            `json:"tracked_number,omitempty"`
	MatchedNumber float64            `json:"matched_number,omitempty"`
}

// Terminal reports whether the state is a terminal classification. Terminal
// states are never re-entered automatically; a new search overwrites them.
func (s MigrationState) Terminal() bool {
	switch s.Kind {
	case MigrationFound, MigrationLowerFind, MigrationNoMatches:
		return true
	}
	return false
}

// LibraryStrategy selects how a matched item is applied to the library.
type LibraryStrategy string

const (
	StrategyLink    LibraryStrategy = "link"    // add a content link, keep the entry
	StrategyReplace LibraryStrategy = "replace" // new entry, soft-delete the old one
)

// LowerChapterStrategy decides what happens to items whose best match is
// behind what the user already has.
type LowerChapterStrategy string

const (
	LowerSkip    LowerChapterStrategy = "skip"
	LowerMigrate LowerChapterStrategy = "migrate"
)

// MigrationUpdate is the websocket payload emitted for each per-item state
// change during a migration search.
type MigrationUpdate struct {
	EntryID string         `json:"entry_id"`
	State   MigrationState `json:"state"`
	Done    bool           `json:"done"`
}

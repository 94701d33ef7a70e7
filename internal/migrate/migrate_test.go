// Shared fixtures for the migration engine tests: an in-memory database,
// scriptable fake providers, and a seeded source library.

package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yuigahama/tsundoku/internal/db"
	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/providers"
	"github.com/yuigahama/tsundoku/internal/store"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// All goroutines must share the single in-memory database.
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

// noopFilter passes every chapter through.
type noopFilter struct{}

func (noopFilter) Filter(chapters []*models.Chapter, providerID string) []*models.Chapter {
	return chapters
}

// fakeBackup counts snapshots and can be told to fail.
type fakeBackup struct {
	calls int
	fail  bool
}

func (b *fakeBackup) Snapshot(ctx context.Context, label string) (string, error) {
	b.calls++
	if b.fail {
		return "", errors.New("disk full")
	}
	return "/tmp/fake-backup.tar.gz", nil
}

// fakeProvider is a scriptable provider: one search result and a fixed
// chapter list. A non-zero delay simulates a slow network call that honors
// cancellation.
type fakeProvider struct {
	id        string
	result    *models.SearchResult
	chapters  []models.ChapterResult
	searchErr error
	delay     time.Duration
}

func (p *fakeProvider) GetInfo() models.ProviderInfo {
	return models.ProviderInfo{ID: p.id, Name: p.id}
}

func (p *fakeProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	if p.result == nil {
		return nil, nil
	}
	return []models.SearchResult{*p.result}, nil
}

func (p *fakeProvider) GetChapters(ctx context.Context, seriesIdentifier string) ([]models.ChapterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.chapters, nil
}

// numberedChapters builds a descending chapter list 1..n, the shape real
// providers return (newest first).
func numberedChapters(prefix string, n int) []models.ChapterResult {
	var chapters []models.ChapterResult
	for i := n; i >= 1; i-- {
		chapters = append(chapters, models.ChapterResult{
			Identifier: fmt.Sprintf("%s-ch-%d", prefix, i),
			Title:      fmt.Sprintf("Chapter %d", i),
			Number:     float64(i),
			Language:   "en",
		})
	}
	return chapters
}

// provider registers a fake provider finding `series` with n chapters.
func provider(t *testing.T, id, series string, n int) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		id:       id,
		result:   &models.SearchResult{Title: "Found " + series, Identifier: series, CoverURL: "https://example.com/c.jpg"},
		chapters: numberedChapters(id+"-"+series, n),
	}
	providers.Register(p)
	return p
}

func setupSession(t *testing.T) (*Session, *store.Store) {
	t.Helper()
	st := store.New(setupDB(t))
	t.Cleanup(providers.UnregisterAll)
	return NewSession(st, noopFilter{}, &fakeBackup{}), st
}

// seedEntry creates a source content with `chapters` chapters, a library
// entry tracking it, and `completed` completed chapters from the start.
func seedEntry(t *testing.T, st *store.Store, title string, chapters, completed int) *models.LibraryEntry {
	t.Helper()
	content, err := st.GetOrCreateContent("sourceprov", "src-"+title, title, "")
	if err != nil {
		t.Fatalf("seed content: %v", err)
	}

	var stored []*models.Chapter
	for _, cr := range numberedChapters("src-"+title, chapters) {
		stored = append(stored, cr.StoredChapter(content.ID))
	}
	if err := st.ReplaceChapters(content.ID, stored); err != nil {
		t.Fatalf("seed chapters: %v", err)
	}

	entry, err := st.CreateEntry(content.ID, models.FlagReading, chapters-completed, []string{"Favorites"})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	for i := 1; i <= completed; i++ {
		chapterID := models.ChapterID(content.ID, fmt.Sprintf("src-%s-ch-%d", title, i))
		if err := st.MarkChapter(content.ID, chapterID, true); err != nil {
			t.Fatalf("seed progress for chapter %d: %v", i, err)
		}
	}
	return entry
}

// runSearch drives a search to completion and returns the final states.
func runSearch(t *testing.T, s *Session, entryIDs, providerOrder []string) map[string]models.MigrationState {
	t.Helper()
	updates, err := s.StartSearch(context.Background(), entryIDs, providerOrder)
	if err != nil {
		t.Fatalf("StartSearch failed: %v", err)
	}
	for range updates {
	}
	states, _ := s.States()
	return states
}

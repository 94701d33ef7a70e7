package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/store"
)

// entryRow captures a library entry's full persisted state for bit-for-bit
// comparison across an apply.
type entryRow struct {
	ContentID   string
	Flag        string
	UnreadCount int
	Deleted     bool
	DateAdded   time.Time
}

func (r entryRow) Equal(o entryRow) bool {
	return r.ContentID == o.ContentID && r.Flag == o.Flag &&
		r.UnreadCount == o.UnreadCount && r.Deleted == o.Deleted &&
		r.DateAdded.Equal(o.DateAdded)
}

func readEntryRow(t *testing.T, st *store.Store, id string) entryRow {
	t.Helper()
	var row entryRow
	err := st.RunInTx(func(tx *sql.Tx) error {
		return tx.QueryRow("SELECT content_id, flag, unread_count, deleted, date_added FROM library_entries WHERE id = ?", id).
			Scan(&row.ContentID, &row.Flag, &row.UnreadCount, &row.Deleted, &row.DateAdded)
	})
	if err != nil {
		t.Fatalf("reading entry row %s: %v", id, err)
	}
	return row
}

func tableCount(t *testing.T, st *store.Store, table string) int {
	t.Helper()
	var count int
	err := st.RunInTx(func(tx *sql.Tx) error {
		return tx.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
	})
	if err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return count
}

// foundState fabricates a terminal found state for a candidate whose
// chapters are already persisted.
func foundState(cand models.Highlight, count int) models.MigrationState {
	return models.MigrationState{Kind: models.MigrationFound, Candidate: &cand, ChapterCount: count}
}

// persistCandidate stores a candidate content with n chapters and returns
// its highlight, simulating what a finished search leaves behind.
func persistCandidate(t *testing.T, st *store.Store, providerID, externalID string, n int) models.Highlight {
	t.Helper()
	content, err := st.GetOrCreateContent(providerID, externalID, "Candidate "+externalID, "")
	if err != nil {
		t.Fatalf("persist candidate: %v", err)
	}
	var stored []*models.Chapter
	for _, cr := range numberedChapters(externalID, n) {
		stored = append(stored, cr.StoredChapter(content.ID))
	}
	if err := st.ReplaceChapters(content.ID, stored); err != nil {
		t.Fatalf("persist candidate chapters: %v", err)
	}
	return models.Highlight{
		ID:         content.ID,
		ProviderID: providerID,
		ExternalID: externalID,
		Title:      content.Title,
	}
}

func setState(s *Session, entryID string, state models.MigrationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[entryID]; !ok {
		s.order = append(s.order, entryID)
	}
	s.states[entryID] = state
}

func TestApplyBackupGateBlocksEverything(t *testing.T) {
	st := store.New(setupDB(t))
	backup := &fakeBackup{fail: true}
	s := NewSession(st, noopFilter{}, backup)

	entry := seedEntry(t, st, "Gate", 5, 0)
	cand := persistCandidate(t, st, "target", "gate-1", 5)
	setState(s, entry.ID, foundState(cand, 5))

	before := readEntryRow(t, st, entry.ID)
	links := tableCount(t, st, "content_links")

	err := s.Apply(context.Background(), models.StrategyLink, models.LowerSkip)
	if err == nil {
		t.Fatal("apply must fail when the backup fails")
	}
	if backup.calls != 1 {
		t.Errorf("expected exactly one backup attempt, got %d", backup.calls)
	}
	if got := readEntryRow(t, st, entry.ID); !got.Equal(before) {
		t.Error("entry mutated despite failed backup")
	}
	if tableCount(t, st, "content_links") != links {
		t.Error("content link written despite failed backup")
	}
}

func TestApplyLinkStrategyIsIdempotent(t *testing.T) {
	s, st := setupSession(t)
	entry := seedEntry(t, st, "Link", 5, 0)
	cand := persistCandidate(t, st, "target", "link-1", 8)
	setState(s, entry.ID, foundState(cand, 8))

	before := readEntryRow(t, st, entry.ID)

	for i := 0; i < 2; i++ {
		if err := s.Apply(context.Background(), models.StrategyLink, models.LowerSkip); err != nil {
			t.Fatalf("apply %d failed: %v", i+1, err)
		}
	}

	links, err := st.ListLinks(entry.ID)
	if err != nil {
		t.Fatalf("listing links: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected exactly one non-deleted link, got %d", len(links))
	}
	if links[0].ContentID != cand.ID {
		t.Errorf("link points at %s, want %s", links[0].ContentID, cand.ID)
	}
	if got := readEntryRow(t, st, entry.ID); !got.Equal(before) {
		t.Error("link strategy must leave the original entry untouched")
	}
}

func TestApplyReplaceCarriesProgress(t *testing.T) {
	s, st := setupSession(t)
	// Chapters {1,2,3}, all completed.
	entry := seedEntry(t, st, "Replace", 3, 3)
	// The new content has {1,2,3,4}.
	cand := persistCandidate(t, st, "target", "rep-1", 4)
	setState(s, entry.ID, foundState(cand, 4))

	if err := s.Apply(context.Background(), models.StrategyReplace, models.LowerSkip); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	newEntry, err := st.GetEntry(cand.ID)
	if err != nil {
		t.Fatalf("new entry missing: %v", err)
	}
	if newEntry.UnreadCount != 1 {
		t.Errorf("expected unread count 1 (only chapter 4), got %d", newEntry.UnreadCount)
	}
	if newEntry.Flag != models.FlagReading {
		t.Errorf("flag not carried over, got %s", newEntry.Flag)
	}
	if len(newEntry.Collections) != 1 || newEntry.Collections[0] != "Favorites" {
		t.Errorf("collections not carried over, got %v", newEntry.Collections)
	}
	if !newEntry.DateAdded.Equal(entry.DateAdded) {
		t.Errorf("date added not carried over: %v vs %v", newEntry.DateAdded, entry.DateAdded)
	}

	// Old entry is soft-deleted, not removed.
	deleted, err := st.EntryDeleted(entry.ID)
	if err != nil {
		t.Fatalf("old entry row vanished: %v", err)
	}
	if !deleted {
		t.Error("old entry should be soft-deleted after replace")
	}

	// Carried markers are completed and hidden from history.
	var hidden, completed int
	err = st.RunInTx(func(tx *sql.Tx) error {
		return tx.QueryRow(`
			SELECT SUM(pm.hidden), SUM(pm.completed)
			FROM progress_markers pm
			JOIN chapter_references cr ON cr.id = pm.reference_id
			WHERE cr.content_id = ?`, cand.ID).Scan(&hidden, &completed)
	})
	if err != nil {
		t.Fatalf("inspecting markers: %v", err)
	}
	if completed != 3 || hidden != 3 {
		t.Errorf("expected 3 completed+hidden carried markers, got completed=%d hidden=%d", completed, hidden)
	}
}

func TestApplyLowerFindGating(t *testing.T) {
	s, st := setupSession(t)
	entry := seedEntry(t, st, "Lower", 6, 5)
	cand := persistCandidate(t, st, "target", "low-1", 4)
	lower := models.MigrationState{
		Kind:          models.MigrationLowerFind,
		Candidate:     &cand,
		ChapterCount:  4,
		TrackedNumber: 5,
		MatchedNumber: 4,
	}
	setState(s, entry.ID, lower)

	before := readEntryRow(t, st, entry.ID)

	// skip: the entry stays bit-for-bit unchanged.
	if err := s.Apply(context.Background(), models.StrategyReplace, models.LowerSkip); err != nil {
		t.Fatalf("apply(skip) failed: %v", err)
	}
	if got := readEntryRow(t, st, entry.ID); !got.Equal(before) {
		t.Error("lower_find item mutated under LowerSkip")
	}

	// migrate: the entry is replaced like any found item.
	if err := s.Apply(context.Background(), models.StrategyReplace, models.LowerMigrate); err != nil {
		t.Fatalf("apply(migrate) failed: %v", err)
	}
	deleted, err := st.EntryDeleted(entry.ID)
	if err != nil || !deleted {
		t.Errorf("lower_find item should be replaced under LowerMigrate (deleted=%v err=%v)", deleted, err)
	}
}

func TestApplySkipsNonTerminalAndMissingItems(t *testing.T) {
	s, st := setupSession(t)
	entry := seedEntry(t, st, "Skips", 4, 0)
	cand := persistCandidate(t, st, "target", "skip-1", 4)

	setState(s, entry.ID, models.MigrationState{Kind: models.MigrationSearching})
	setState(s, "ghost::entry", foundState(cand, 4)) // no such entry row

	before := readEntryRow(t, st, entry.ID)
	if err := s.Apply(context.Background(), models.StrategyReplace, models.LowerMigrate); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if got := readEntryRow(t, st, entry.ID); !got.Equal(before) {
		t.Error("non-terminal item must not be touched")
	}
}

func TestApplyIsAtomicAcrossItems(t *testing.T) {
	s, st := setupSession(t)
	setupFailureTrigger(t, st)

	first := seedEntry(t, st, "AtomA", 3, 3)
	second := seedEntry(t, st, "AtomB", 3, 3)
	third := seedEntry(t, st, "AtomC", 3, 3)

	candA := persistCandidate(t, st, "target", "atom-a", 4)
	candB := persistCandidate(t, st, "target", "poison", 4) // trips the trigger
	candC := persistCandidate(t, st, "target", "atom-c", 4)

	setState(s, first.ID, foundState(candA, 4))
	setState(s, second.ID, foundState(candB, 4))
	setState(s, third.ID, foundState(candC, 4))

	entries := tableCount(t, st, "library_entries")
	markers := tableCount(t, st, "progress_markers")
	rowA := readEntryRow(t, st, first.ID)

	err := s.Apply(context.Background(), models.StrategyReplace, models.LowerSkip)
	if err == nil {
		t.Fatal("expected the injected failure to surface")
	}

	// Item 1 had already been fully constructed inside the transaction;
	// none of it may survive the rollback.
	if got := tableCount(t, st, "library_entries"); got != entries {
		t.Errorf("library_entries count changed: %d -> %d", entries, got)
	}
	if got := tableCount(t, st, "progress_markers"); got != markers {
		t.Errorf("progress_markers count changed: %d -> %d", markers, got)
	}
	if got := readEntryRow(t, st, first.ID); !got.Equal(rowA) {
		t.Error("item 1 was mutated despite the aborted transaction")
	}
	if _, err := st.GetEntry(candA.ID); err == nil {
		t.Error("item 1's replacement entry survived the rollback")
	}
}

// setupFailureTrigger makes inserting the replacement entry for the
// "poison" candidate fail, simulating a write error mid-transaction.
func setupFailureTrigger(t *testing.T, st *store.Store) {
	t.Helper()
	poisonID := models.ContentID("target", "poison")
	err := st.RunInTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(fmt.Sprintf(`
			CREATE TRIGGER inject_failure BEFORE INSERT ON library_entries
			WHEN NEW.id = '%s'
			BEGIN SELECT RAISE(ABORT, 'injected write failure'); END;
		`, poisonID))
		return err
	})
	if err != nil {
		t.Fatalf("installing failure trigger: %v", err)
	}
}

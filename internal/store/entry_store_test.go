package store_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/store"
	"github.com/yuigahama/tsundoku/internal/testutil"
)

func TestEntryStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	content, err := s.GetOrCreateContent("mangadex", "entry-a", "Alpha", "")
	if err != nil {
		t.Fatalf("seed content: %v", err)
	}

	t.Run("Create And Get With Collections", func(t *testing.T) {
		created, err := s.CreateEntry(content.ID, models.FlagReading, 4, []string{"Favorites", "Action"})
		if err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
		if created.ID != content.ID {
			t.Errorf("entry id must equal the content id, got %q", created.ID)
		}

		entry, err := s.GetEntry(content.ID)
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if entry.Flag != models.FlagReading || entry.UnreadCount != 4 {
			t.Errorf("unexpected entry: %+v", entry)
		}
		// Collections come back sorted by name.
		if len(entry.Collections) != 2 || entry.Collections[0] != "Action" || entry.Collections[1] != "Favorites" {
			t.Errorf("unexpected collections: %v", entry.Collections)
		}
	})

	t.Run("Upsert Overwrites By ID", func(t *testing.T) {
		err := s.RunInTx(func(tx *sql.Tx) error {
			return s.UpsertEntryTx(tx, &models.LibraryEntry{
				ID:          content.ID,
				ContentID:   content.ID,
				Flag:        models.FlagCompleted,
				UnreadCount: 0,
			})
		})
		if err != nil {
			t.Fatalf("UpsertEntryTx failed: %v", err)
		}
		entry, _ := s.GetEntry(content.ID)
		if entry.Flag != models.FlagCompleted || entry.UnreadCount != 0 {
			t.Errorf("upsert did not overwrite: %+v", entry)
		}
	})

	t.Run("Soft Delete Hides But Keeps The Row", func(t *testing.T) {
		err := s.RunInTx(func(tx *sql.Tx) error {
			return s.SoftDeleteEntryTx(tx, content.ID)
		})
		if err != nil {
			t.Fatalf("SoftDeleteEntryTx failed: %v", err)
		}
		if _, err := s.GetEntry(content.ID); !errors.Is(err, store.ErrEntryNotFound) {
			t.Errorf("soft-deleted entry still returned (err=%v)", err)
		}
		deleted, err := s.EntryDeleted(content.ID)
		if err != nil {
			t.Fatalf("row vanished entirely: %v", err)
		}
		if !deleted {
			t.Error("EntryDeleted should report true")
		}
	})

	t.Run("List Excludes Deleted And Sorts By Title", func(t *testing.T) {
		zeta, _ := s.GetOrCreateContent("mangadex", "entry-z", "zeta", "")
		beta, _ := s.GetOrCreateContent("mangadex", "entry-b", "Beta", "")
		if _, err := s.CreateEntry(zeta.ID, models.FlagReading, 0, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := s.CreateEntry(beta.ID, models.FlagReading, 0, nil); err != nil {
			t.Fatal(err)
		}

		entries, err := s.ListEntries()
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 live entries, got %d", len(entries))
		}
		// Case-insensitive title order, denormalized from contents.
		if entries[0].Title != "Beta" || entries[1].Title != "zeta" {
			t.Errorf("unexpected order: %q, %q", entries[0].Title, entries[1].Title)
		}
		if entries[0].Provider != "mangadex" {
			t.Errorf("provider not denormalized: %q", entries[0].Provider)
		}
	})
}

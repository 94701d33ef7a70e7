package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
)

var ErrEntryNotFound = errors.New("library entry not found")

// CreateEntry adds a new library entry for a content. The entry id equals
// the content id.
func (s *Store) CreateEntry(contentID string, flag models.EntryFlag, unreadCount int, collections []string) (*models.LibraryEntry, error) {
	entry := &models.LibraryEntry{
		ID:          contentID,
		ContentID:   contentID,
		Flag:        flag,
		UnreadCount: unreadCount,
		Collections: collections,
		DateAdded:   time.Now(),
	}
	err := s.RunInTx(func(tx *sql.Tx) error {
		if err := s.UpsertEntryTx(tx, entry); err != nil {
			return err
		}
		return s.SetEntryCollectionsTx(tx, entry.ID, collections)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetEntryTx resolves a library entry by id inside a transaction, with its
// collections loaded. Soft-deleted entries are not returned.
func (s *Store) GetEntryTx(tx *sql.Tx, id string) (*models.LibraryEntry, error) {
	var e models.LibraryEntry
	err := tx.QueryRow(`
		SELECT id, content_id, flag, unread_count, deleted, date_added, updated_at
		FROM library_entries WHERE id = ? AND deleted = 0
	`, id).Scan(&e.ID, &e.ContentID, &e.Flag, &e.UnreadCount, &e.Deleted, &e.DateAdded, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(`
		SELECT c.name FROM collections c
		JOIN entry_collections ec ON ec.collection_id = c.id
		WHERE ec.entry_id = ? ORDER BY c.name ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		e.Collections = append(e.Collections, name)
	}
	return &e, rows.Err()
}

// GetEntry resolves a library entry by id.
func (s *Store) GetEntry(id string) (*models.LibraryEntry, error) {
	var entry *models.LibraryEntry
	err := s.RunInTx(func(tx *sql.Tx) error {
		var txErr error
		entry, txErr = s.GetEntryTx(tx, id)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpsertEntryTx writes a library entry with overwrite-by-id semantics. A
// self-migration refreshes the existing row in place; a cross-provider
// replace inserts the new row alongside the soon to be soft-deleted old one.
func (s *Store) UpsertEntryTx(tx *sql.Tx, e *models.LibraryEntry) error {
	if e.DateAdded.IsZero() {
		e.DateAdded = time.Now()
	}
	_, err := tx.Exec(`
		INSERT INTO library_entries (id, content_id, flag, unread_count, deleted, date_added, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content_id = excluded.content_id,
			flag = excluded.flag,
			unread_count = excluded.unread_count,
			deleted = 0,
			date_added = excluded.date_added,
			updated_at = excluded.updated_at;
	`, e.ID, e.ContentID, e.Flag, e.UnreadCount, e.DateAdded, time.Now())
	return err
}

// SetEntryCollectionsTx replaces an entry's collection memberships, creating
// collections by name as needed.
func (s *Store) SetEntryCollectionsTx(tx *sql.Tx, entryID string, names []string) error {
	if _, err := tx.Exec("DELETE FROM entry_collections WHERE entry_id = ?", entryID); err != nil {
		return err
	}
	for _, name := range names {
		var collectionID int64
		err := tx.QueryRow("SELECT id FROM collections WHERE name = ?", name).Scan(&collectionID)
		if err == sql.ErrNoRows {
			res, insErr := tx.Exec("INSERT INTO collections (name) VALUES (?)", name)
			if insErr != nil {
				return insErr
			}
			collectionID, _ = res.LastInsertId()
		} else if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT OR IGNORE INTO entry_collections (entry_id, collection_id) VALUES (?, ?)", entryID, collectionID); err != nil {
			return err
		}
	}
	return nil
}

// SoftDeleteEntryTx marks an entry deleted. Entries are never physically
// removed by a migration, preserving referential history for restoration.
func (s *Store) SoftDeleteEntryTx(tx *sql.Tx, id string) error {
	_, err := tx.Exec("UPDATE library_entries SET deleted = 1, updated_at = ? WHERE id = ?", time.Now(), id)
	return err
}

// ListEntries returns all non-deleted library entries with denormalized
// content info for list views.
func (s *Store) ListEntries() ([]*models.LibraryEntry, error) {
	rows, err := s.db.Query(`
		SELECT e.id, e.content_id, e.flag, e.unread_count, e.date_added,
		       c.title, c.cover_url, c.provider_id
		FROM library_entries e
		JOIN contents c ON c.id = e.content_id
		WHERE e.deleted = 0
		ORDER BY c.title COLLATE NOCASE ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LibraryEntry
	for rows.Next() {
		var e models.LibraryEntry
		if err := rows.Scan(&e.ID, &e.ContentID, &e.Flag, &e.UnreadCount, &e.DateAdded, &e.Title, &e.CoverURL, &e.Provider); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// EntryDeleted reports whether an entry row exists and is soft-deleted.
func (s *Store) EntryDeleted(id string) (bool, error) {
	var deleted bool
	err := s.db.QueryRow("SELECT deleted FROM library_entries WHERE id = ?", id).Scan(&deleted)
	if err == sql.ErrNoRows {
		return false, ErrEntryNotFound
	}
	return deleted, err
}

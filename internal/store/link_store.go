package store

import (
	"database/sql"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
)

// LinkContentTx records that an entry was migrated to additional content
// without replacing it. The (entry, content) pair is unique while not
// deleted; re-linking an existing pair is a no-op apart from undeleting it,
// which makes the link strategy idempotent.
func (s *Store) LinkContentTx(tx *sql.Tx, entryID, contentID string) error {
	_, err := tx.Exec(`
		INSERT INTO content_links (entry_id, content_id, deleted, created_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(entry_id, content_id) DO UPDATE SET deleted = 0;
	`, entryID, contentID, time.Now())
	return err
}

// ListLinks returns the non-deleted content links for an entry.
func (s *Store) ListLinks(entryID string) ([]*models.ContentLink, error) {
	rows, err := s.db.Query(`
		SELECT id, entry_id, content_id, deleted, created_at
		FROM content_links WHERE entry_id = ? AND deleted = 0
		ORDER BY created_at ASC
	`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.ContentLink
	for rows.Next() {
		var l models.ContentLink
		if err := rows.Scan(&l.ID, &l.EntryID, &l.ContentID, &l.Deleted, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

// UnlinkContent soft-deletes a content link.
func (s *Store) UnlinkContent(entryID, contentID string) error {
	_, err := s.db.Exec("UPDATE content_links SET deleted = 1 WHERE entry_id = ? AND content_id = ?", entryID, contentID)
	return err
}

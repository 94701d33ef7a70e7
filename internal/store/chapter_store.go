package store

import (
	"database/sql"
	"errors"

	"github.com/yuigahama/tsundoku/internal/models"
)

var ErrChapterNotFound = errors.New("chapter not found")

// ReplaceChapters swaps out the full chapter set of a content for a freshly
// fetched one. Chapter ids are stable (derived from the provider's chapter
// identifier), so progress markers keyed by chapter id survive a re-fetch of
// the same chapters.
func (s *Store) ReplaceChapters(contentID string, chapters []*models.Chapter) error {
	return s.RunInTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM chapters WHERE content_id = ?", contentID); err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO chapters (id, content_id, external_id, title, number, volume, language, published_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ch := range chapters {
			var volume interface{}
			if ch.Volume != nil {
				volume = *ch.Volume
			}
			var published interface{}
			if ch.PublishedAt != nil {
				published = *ch.PublishedAt
			}
			if _, err := stmt.Exec(ch.ID, contentID, ch.ExternalID, ch.Title, ch.Number, volume, ch.Language, published); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetChaptersByContent returns all stored chapters of a content, most
// advanced first.
func (s *Store) GetChaptersByContent(contentID string) ([]*models.Chapter, error) {
	rows, err := s.db.Query(chapterSelect+" WHERE content_id = ? ORDER BY number DESC", contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChapters(rows)
}

// GetChaptersByContentTx is used by the migration applier inside its
// transaction.
func (s *Store) GetChaptersByContentTx(tx *sql.Tx, contentID string) ([]*models.Chapter, error) {
	rows, err := tx.Query(chapterSelect+" WHERE content_id = ? ORDER BY number DESC", contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChapters(rows)
}

// GetChapterByIDTx fetches a single chapter inside a transaction.
func (s *Store) GetChapterByIDTx(tx *sql.Tx, id string) (*models.Chapter, error) {
	rows, err := tx.Query(chapterSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chapters, err := scanChapters(rows)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, ErrChapterNotFound
	}
	return chapters[0], nil
}

const chapterSelect = "SELECT id, content_id, external_id, title, number, volume, language, published_at FROM chapters"

func scanChapters(rows *sql.Rows) ([]*models.Chapter, error) {
	var chapters []*models.Chapter
	for rows.Next() {
		var ch models.Chapter
		var volume sql.NullFloat64
		var published sql.NullTime
		if err := rows.Scan(&ch.ID, &ch.ContentID, &ch.ExternalID, &ch.Title, &ch.Number, &volume, &ch.Language, &published); err != nil {
			return nil, err
		}
		if volume.Valid {
			v := volume.Float64
			ch.Volume = &v
		}
		if published.Valid {
			t := published.Time
			ch.PublishedAt = &t
		}
		chapters = append(chapters, &ch)
	}
	return chapters, rows.Err()
}

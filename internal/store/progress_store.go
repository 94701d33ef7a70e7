package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
)

// ErrInvalidReference is returned when a chapter reference does not resolve
// to a live chapter and a non-deleted content.
var ErrInvalidReference = errors.New("chapter reference does not resolve")

// CompletedMarker pairs a completed progress marker with the chapter it
// points at, as needed by progress reconciliation.
type CompletedMarker struct {
	MarkerID string
	Number   float64
	Volume   *float64
}

// CompletedMarkersTx returns every completed, non-deleted marker belonging
// to the given content, with the chapter's number and volume attached.
func (s *Store) CompletedMarkersTx(tx *sql.Tx, contentID string) ([]CompletedMarker, error) {
	rows, err := tx.Query(`
		SELECT pm.id, ch.number, ch.volume
		FROM progress_markers pm
		JOIN chapter_references cr ON cr.id = pm.reference_id
		JOIN chapters ch ON ch.id = cr.chapter_id
		WHERE cr.content_id = ? AND pm.completed = 1 AND pm.deleted = 0
	`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []CompletedMarker
	for rows.Next() {
		var m CompletedMarker
		var volume sql.NullFloat64
		if err := rows.Scan(&m.MarkerID, &m.Number, &volume); err != nil {
			return nil, err
		}
		if volume.Valid {
			v := volume.Float64
			m.Volume = &v
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

// ValidateReferenceTx checks that a chapter reference resolves: the chapter
// must exist, belong to the referenced content, and the content must not be
// deleted.
func (s *Store) ValidateReferenceTx(tx *sql.Tx, ref models.ChapterReference) error {
	var chapterContent string
	err := tx.QueryRow("SELECT content_id FROM chapters WHERE id = ?", ref.ChapterID).Scan(&chapterContent)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: chapter %s missing", ErrInvalidReference, ref.ChapterID)
	}
	if err != nil {
		return err
	}
	if chapterContent != ref.ContentID {
		return fmt.Errorf("%w: chapter %s belongs to %s", ErrInvalidReference, ref.ChapterID, chapterContent)
	}

	var deleted bool
	err = tx.QueryRow("SELECT deleted FROM contents WHERE id = ?", ref.ContentID).Scan(&deleted)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: content %s missing", ErrInvalidReference, ref.ContentID)
	}
	if err != nil {
		return err
	}
	if deleted {
		return fmt.Errorf("%w: content %s is deleted", ErrInvalidReference, ref.ContentID)
	}
	return nil
}

// UpsertMarkerTx writes the chapter reference and its progress marker with
// insert-or-merge semantics. The marker id is derived from the reference id,
// so repeated migrations of the same chapter collapse into one row.
func (s *Store) UpsertMarkerTx(tx *sql.Tx, ref models.ChapterReference, completed, hidden bool) error {
	_, err := tx.Exec(`
		INSERT INTO chapter_references (id, content_id, chapter_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content_id = excluded.content_id, chapter_id = excluded.chapter_id;
	`, ref.ID, ref.ContentID, ref.ChapterID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO progress_markers (id, reference_id, completed, hidden, deleted, updated_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed = excluded.completed,
			hidden = excluded.hidden,
			deleted = 0,
			updated_at = excluded.updated_at;
	`, ref.ID, ref.ID, completed, hidden, time.Now())
	return err
}

// MarkChapter records reading progress for a chapter outside of a migration
// (the normal reading flow). The reference is created on first use.
func (s *Store) MarkChapter(contentID, chapterID string, completed bool) error {
	return s.RunInTx(func(tx *sql.Tx) error {
		ref := models.ChapterReference{ID: chapterID, ContentID: contentID, ChapterID: chapterID}
		if err := s.ValidateReferenceTx(tx, ref); err != nil {
			return err
		}
		return s.UpsertMarkerTx(tx, ref, completed, false)
	})
}

// HighestCompletedNumber returns the most advanced chapter number the user
// has completed for a content, or 0 when nothing is completed.
func (s *Store) HighestCompletedNumber(contentID string) (float64, error) {
	var number sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT MAX(ch.number)
		FROM progress_markers pm
		JOIN chapter_references cr ON cr.id = pm.reference_id
		JOIN chapters ch ON ch.id = cr.chapter_id
		WHERE cr.content_id = ? AND pm.completed = 1 AND pm.deleted = 0
	`, contentID).Scan(&number)
	if err != nil {
		return 0, err
	}
	if !number.Valid {
		return 0, nil
	}
	return number.Float64, nil
}

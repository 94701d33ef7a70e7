package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
)

var ErrContentNotFound = errors.New("content not found")

// GetOrCreateContent finds a content record by its derived id or creates it.
// Re-creating a previously deleted content undeletes it, since a provider
// just proved it exists again.
func (s *Store) GetOrCreateContent(providerID, externalID, title, coverURL string) (*models.Content, error) {
	var content *models.Content
	err := s.RunInTx(func(tx *sql.Tx) error {
		var txErr error
		content, txErr = s.GetOrCreateContentTx(tx, providerID, externalID, title, coverURL)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// GetOrCreateContentTx is the transactional variant used by the migration
// applier, which must do all its writes inside one transaction.
func (s *Store) GetOrCreateContentTx(tx *sql.Tx, providerID, externalID, title, coverURL string) (*models.Content, error) {
	id := models.ContentID(providerID, externalID)

	var existing models.Content
	var deleted bool
	err := tx.QueryRow("SELECT id, provider_id, external_id, title, cover_url, deleted FROM contents WHERE id = ?", id).
		Scan(&existing.ID, &existing.ProviderID, &existing.ExternalID, &existing.Title, &existing.CoverURL, &deleted)
	if err == nil {
		if deleted {
			if _, err := tx.Exec("UPDATE contents SET deleted = 0, updated_at = ? WHERE id = ?", time.Now(), id); err != nil {
				return nil, err
			}
		}
		existing.Deleted = false
		return &existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	_, err = tx.Exec("INSERT INTO contents (id, provider_id, external_id, title, cover_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, providerID, externalID, title, coverURL, now, now)
	if err != nil {
		return nil, err
	}
	return &models.Content{
		ID:         id,
		ProviderID: providerID,
		ExternalID: externalID,
		Title:      title,
		CoverURL:   coverURL,
	}, nil
}

// GetContentByID fetches a single content by its primary key.
func (s *Store) GetContentByID(id string) (*models.Content, error) {
	var c models.Content
	err := s.db.QueryRow("SELECT id, provider_id, external_id, title, cover_url, deleted, created_at, updated_at FROM contents WHERE id = ?", id).
		Scan(&c.ID, &c.ProviderID, &c.ExternalID, &c.Title, &c.CoverURL, &c.Deleted, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

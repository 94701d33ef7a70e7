package store

import (
	"fmt"

	"github.com/yuigahama/tsundoku/internal/models"
)

// ListContentFilters returns all user-defined chapter filter rules.
func (s *Store) ListContentFilters() ([]models.ContentFilter, error) {
	rows, err := s.db.Query("SELECT id, provider_id, kind, value FROM content_filters ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var filters []models.ContentFilter
	for rows.Next() {
		var f models.ContentFilter
		if err := rows.Scan(&f.ID, &f.ProviderID, &f.Kind, &f.Value); err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// AddContentFilter creates a new filter rule.
func (s *Store) AddContentFilter(providerID, kind, value string) (*models.ContentFilter, error) {
	switch kind {
	case "language", "keyword":
	default:
		return nil, fmt.Errorf("unknown filter kind %q", kind)
	}
	res, err := s.db.Exec("INSERT INTO content_filters (provider_id, kind, value) VALUES (?, ?, ?)", providerID, kind, value)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &models.ContentFilter{ID: id, ProviderID: providerID, Kind: kind, Value: value}, nil
}

// DeleteContentFilter removes a filter rule.
func (s *Store) DeleteContentFilter(id int64) error {
	_, err := s.db.Exec("DELETE FROM content_filters WHERE id = ?", id)
	return err
}

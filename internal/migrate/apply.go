package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/store"
	"github.com/yuigahama/tsundoku/internal/util"
)

// Apply executes the migration decisions for every item with a terminal
// state, as one atomic transaction. A mandatory full-data backup runs first;
// if it fails, no transaction is opened and nothing is written. Any write
// error inside the transaction rolls back every item's mutation.
func (s *Session) Apply(ctx context.Context, libStrategy models.LibraryStrategy, lowerStrategy models.LowerChapterStrategy) error {
	s.mu.Lock()
	if s.searching {
		s.mu.Unlock()
		return ErrSearchRunning
	}
	s.mu.Unlock()

	states, order := s.States()
	if len(order) == 0 {
		return ErrNoItems
	}

	if _, err := s.backup.Snapshot(ctx, "pre-migration"); err != nil {
		return fmt.Errorf("pre-migration backup failed, aborting: %w", err)
	}

	return s.st.RunInTx(func(tx *sql.Tx) error {
		for _, entryID := range order {
			state := states[entryID]
			switch state.Kind {
			case models.MigrationFound:
				// always migrate
			case models.MigrationLowerFind:
				if lowerStrategy != models.LowerMigrate {
					continue
				}
			default:
				// idle, searching and no_matches are no-ops
				continue
			}

			entry, err := s.st.GetEntryTx(tx, entryID)
			if errors.Is(err, store.ErrEntryNotFound) {
				// The entry was removed while the session was open.
				continue
			}
			if err != nil {
				return err
			}

			if libStrategy == models.StrategyLink {
				err = s.linkCandidate(tx, entry, state.Candidate)
			} else {
				err = s.replaceEntry(tx, entry, state.Candidate)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// linkCandidate records the candidate as additional content for the entry.
// The original entry is untouched; repeating the link is a no-op.
func (s *Session) linkCandidate(tx *sql.Tx, entry *models.LibraryEntry, cand *models.Highlight) error {
	content, err := s.st.GetOrCreateContentTx(tx, cand.ProviderID, cand.ExternalID, cand.Title, cand.CoverURL)
	if err != nil {
		return err
	}
	return s.st.LinkContentTx(tx, entry.ID, content.ID)
}

// replaceEntry builds a new library entry around the candidate's content,
// carries the old entry's read progress and metadata forward, and
// soft-deletes the old entry.
func (s *Session) replaceEntry(tx *sql.Tx, entry *models.LibraryEntry, cand *models.Highlight) error {
	content, err := s.st.GetOrCreateContentTx(tx, cand.ProviderID, cand.ExternalID, cand.Title, cand.CoverURL)
	if err != nil {
		return err
	}

	newChapters, err := s.st.GetChaptersByContentTx(tx, content.ID)
	if err != nil {
		return err
	}

	carried, err := s.reconcileProgress(tx, entry.ContentID, content, newChapters)
	if err != nil {
		return err
	}

	newEntry := &models.LibraryEntry{
		ID:          content.ID,
		ContentID:   content.ID,
		Flag:        entry.Flag,
		Collections: entry.Collections,
		DateAdded:   entry.DateAdded,
		UnreadCount: unreadCount(newChapters, carried, s.filter, content.ProviderID),
	}

	if err := s.st.UpsertEntryTx(tx, newEntry); err != nil {
		return err
	}
	if err := s.st.SetEntryCollectionsTx(tx, newEntry.ID, entry.Collections); err != nil {
		return err
	}

	// A self-migration refreshes the entry in place; everything else
	// retires the old entry without destroying its history.
	if newEntry.ID != entry.ID {
		if err := s.st.SoftDeleteEntryTx(tx, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

// reconcileProgress carries completed read progress from the old content to
// the new one. Chapters are matched across providers by number alone; the
// volume component of the order key is dropped because volume numbering
// rarely agrees between sites. Returns the set of chapter numbers that were
// carried forward.
func (s *Session) reconcileProgress(tx *sql.Tx, oldContentID string, newContent *models.Content, newChapters []*models.Chapter) (map[float64]bool, error) {
	markers, err := s.st.CompletedMarkersTx(tx, oldContentID)
	if err != nil {
		return nil, err
	}

	carried := make(map[float64]bool)
	for _, m := range markers {
		number := util.NumberComponent(util.ChapterOrderKey(m.Volume, m.Number))

		var target *models.Chapter
		for _, ch := range newChapters {
			if util.SameChapterNumber(ch.Number, number) {
				target = ch
				break
			}
		}
		if target == nil {
			// The new content simply doesn't have this chapter.
			continue
		}

		ref := models.ChapterReference{ID: target.ID, ContentID: newContent.ID, ChapterID: target.ID}
		if err := s.st.ValidateReferenceTx(tx, ref); err != nil {
			// Non-fatal: this chapter's progress is dropped, the rest of
			// the migration continues.
			log.Printf("Migration: progress for chapter %.1f not carried forward: %v", number, err)
			continue
		}

		if err := s.st.UpsertMarkerTx(tx, ref, true, true); err != nil {
			return nil, err
		}
		carried[number] = true
	}
	return carried, nil
}

// unreadCount computes the new entry's unread count: deduplicate the new
// chapters by number, drop the numbers carried forward as read, apply the
// content filter policy to the remainder, and count what is left.
func unreadCount(chapters []*models.Chapter, carried map[float64]bool, filter ChapterFilter, providerID string) int {
	seen := make(map[float64]bool)
	var remaining []*models.Chapter
	for _, ch := range chapters {
		if seen[ch.Number] {
			continue
		}
		seen[ch.Number] = true
		if carriedNumber(carried, ch.Number) {
			continue
		}
		remaining = append(remaining, ch)
	}
	return len(filter.Filter(remaining, providerID))
}

func carriedNumber(carried map[float64]bool, number float64) bool {
	if carried[number] {
		return true
	}
	// Parsed floats can differ in the last bits between providers.
	for n := range carried {
		if util.SameChapterNumber(n, number) {
			return true
		}
	}
	return false
}

package db_test

import (
	"testing"

	"github.com/yuigahama/tsundoku/internal/testutil"
)

func TestForeignKeyEnforcement(t *testing.T) {
	db := testutil.SetupTestDB(t)

	var foreignKeysEnabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeysEnabled)
	if err != nil {
		t.Fatalf("Failed to check foreign keys status: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Errorf("Foreign keys should be enabled, got: %d", foreignKeysEnabled)
	}

	t.Run("Sessions Cascade On User Delete", func(t *testing.T) {
		_, err := db.Exec("INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
			"fkuser", "hash", "user")
		if err != nil {
			t.Fatalf("Failed to create test user: %v", err)
		}
		var userID int64
		if err := db.QueryRow("SELECT id FROM users WHERE username = 'fkuser'").Scan(&userID); err != nil {
			t.Fatalf("Failed to look up user: %v", err)
		}
		_, err = db.Exec("INSERT INTO sessions (token, user_id, expiry) VALUES (?, ?, datetime('now', '+1 day'))",
			"fk-token", userID)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if _, err := db.Exec("DELETE FROM users WHERE id = ?", userID); err != nil {
			t.Fatalf("Failed to delete user: %v", err)
		}
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE user_id = ?", userID).Scan(&count); err != nil {
			t.Fatalf("Failed to count sessions: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected sessions to cascade on user delete, found %d", count)
		}
	})

	t.Run("Chapters Cascade On Content Delete", func(t *testing.T) {
		_, err := db.Exec("INSERT INTO contents (id, provider_id, external_id, title) VALUES (?, ?, ?, ?)",
			"fk::series", "fk", "series", "FK Series")
		if err != nil {
			t.Fatalf("Failed to create content: %v", err)
		}
		_, err = db.Exec("INSERT INTO chapters (id, content_id, external_id, title, number) VALUES (?, ?, ?, ?, ?)",
			"fk::series::ch-1", "fk::series", "ch-1", "Chapter 1", 1)
		if err != nil {
			t.Fatalf("Failed to create chapter: %v", err)
		}

		if _, err := db.Exec("DELETE FROM contents WHERE id = 'fk::series'"); err != nil {
			t.Fatalf("Failed to delete content: %v", err)
		}
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM chapters WHERE content_id = 'fk::series'").Scan(&count); err != nil {
			t.Fatalf("Failed to count chapters: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected chapters to cascade on content delete, found %d", count)
		}
	})

	t.Run("Entry Requires Existing Content", func(t *testing.T) {
		_, err := db.Exec("INSERT INTO library_entries (id, content_id, date_added) VALUES (?, ?, CURRENT_TIMESTAMP)",
			"ghost::entry", "ghost::entry")
		if err == nil {
			t.Error("Expected foreign key violation for entry without content")
		}
	})
}

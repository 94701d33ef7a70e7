// Package backup produces full-data snapshots of the database. A snapshot is
// a consistent copy of the SQLite file (via VACUUM INTO) packed into a
// timestamped .tar.gz. The migration applier refuses to run without one.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mholt/archives"
)

// dbFileName is the name of the database copy inside every archive.
const dbFileName = "tsundoku.db"

// Service writes and manages snapshot archives in a single directory.
type Service struct {
	db  *sql.DB
	dir string
}

func New(db *sql.DB, dir string) *Service {
	return &Service{db: db, dir: dir}
}

// Snapshot writes a consistent copy of the database into a new .tar.gz under
// the backup directory and returns its path. The label becomes part of the
// file name.
func (s *Service) Snapshot(ctx context.Context, label string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	// VACUUM INTO produces a consistent copy even while other connections
	// are reading.
	tmp := filepath.Join(s.dir, fmt.Sprintf(".snapshot-%d.db", time.Now().UnixNano()))
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return "", fmt.Errorf("copying database: %w", err)
	}
	defer os.Remove(tmp)

	// Sub-second precision keeps names unique for back-to-back snapshots.
	name := fmt.Sprintf("%s-%s.tar.gz", time.Now().Format("20060102-150405.000000000"), sanitizeLabel(label))
	dest := filepath.Join(s.dir, name)

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{tmp: dbFileName})
	if err != nil {
		return "", fmt.Errorf("staging backup contents: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, out, files); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("writing backup archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}

	log.Printf("Backup written: %s", dest)
	return dest, nil
}

// List returns the snapshot archives in the backup directory, newest first.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tar.gz") {
			continue
		}
		names = append(names, e.Name())
	}
	// The timestamp prefix makes lexical order chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Prune deletes the oldest snapshots until at most keep remain. A keep of
// zero or less disables pruning.
func (s *Service) Prune(keep int) error {
	if keep <= 0 {
		return nil
	}
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, name := range names[min(keep, len(names)):] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return err
		}
		log.Printf("Pruned old backup: %s", name)
	}
	return nil
}

// sanitizeLabel keeps labels safe to embed in a file name.
func sanitizeLabel(label string) string {
	if label == "" {
		return "backup"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
}

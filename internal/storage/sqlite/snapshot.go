package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sidecars are copied along with the main file so that pages still sitting
// in the write-ahead log are visible in the copy.
var sidecars = []string{"-wal", "-shm"}

// Snapshot is a private, read-only copy of a SQLite database that another
// process keeps open (browsers, chat clients).
type Snapshot struct {
	db  *gorm.DB
	dir string
}

// Open copies livePath into a fresh temporary directory and opens the copy
// read-only. The caller must Close the snapshot.
func Open(livePath string) (*Snapshot, error) {
	return openIn("", livePath)
}

func openIn(baseDir, livePath string) (*Snapshot, error) {
	dir, err := os.MkdirTemp(baseDir, "activity-collector-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	copyPath := filepath.Join(dir, filepath.Base(livePath))
	if err := copyFile(livePath, copyPath); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to copy database %s: %w", livePath, err)
	}
	for _, suffix := range sidecars {
		if _, err := os.Stat(livePath + suffix); err == nil {
			// Best effort: a missing sidecar only means the log was checkpointed meanwhile.
			_ = copyFile(livePath+suffix, copyPath+suffix)
		}
	}

	db, err := gorm.Open(sqlite.Open("file:"+copyPath+"?mode=ro"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to open database copy: %w", err)
	}

	return &Snapshot{db: db, dir: dir}, nil
}

// DB returns the gorm handle of the copy
func (s *Snapshot) DB() *gorm.DB {
	return s.db
}

// Dir returns the temporary directory holding the copy
func (s *Snapshot) Dir() string {
	return s.dir
}

// Close closes the connection and removes the temporary copy. It is safe to
// call more than once.
func (s *Snapshot) Close() error {
	var errs []error
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close database copy: %w", err))
			}
		}
		s.db = nil
	}
	if s.dir != "" {
		if err := os.RemoveAll(s.dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove temp copy: %w", err))
		}
		s.dir = ""
	}
	return errors.Join(errs...)
}

// WithSnapshot runs fn against a read-only copy of livePath. The copy is
// removed and the connection closed on every exit path, panics included.
func WithSnapshot(ctx context.Context, livePath string, fn func(db *gorm.DB) error) error {
	return withSnapshotIn(ctx, "", livePath, fn)
}

func withSnapshotIn(ctx context.Context, baseDir, livePath string, fn func(db *gorm.DB) error) (err error) {
	snap, err := openIn(baseDir, livePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := snap.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(snap.DB().WithContext(ctx))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

package filesystem

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/pkg/logger"
)

const (
	// previewChars is the most characters of a text file put in a preview
	previewChars = 500
	// previewReadBytes bounds the read; four bytes per rune is the UTF-8 worst case
	previewReadBytes = previewChars * utf8.UTFMax
	ellipsis         = "..."
)

// previewExtensions are the plain-text formats a preview is produced for
var previewExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".org": true,
	".csv": true, ".tsv": true, ".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".xml": true, ".html": true, ".htm": true, ".tex": true,
	".log": true,
}

// scanner walks watch paths and reports the files modified inside a window
type scanner struct {
	exclude   *excluder
	fileTypes map[string]bool // nil means every type
	window    models.Window
	maxSize   int64 // 0 means no limit
	maxDepth  int   // 0 means unlimited
	preview   bool
	log       *logger.Logger
}

func normalizeExtensions(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, ".") {
			t = "." + t
		}
		set[t] = true
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// scan walks every root depth first. A root that cannot be walked is logged
// and skipped; an error is returned only when no root could be walked.
func (s *scanner) scan(ctx context.Context, roots []string) ([]models.FileChangeItem, error) {
	var (
		files  []models.FileChangeItem
		failed int
		errs   []error
	)

	for _, root := range roots {
		found, err := s.scanRoot(ctx, root)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			errs = append(errs, err)
			s.log.Warn().Err(err).Str("operation", "scan").Str("path", root).Msg("Failed to scan watch path, skipping")
			continue
		}
		files = append(files, found...)
	}

	if len(roots) > 0 && failed == len(roots) {
		return nil, errors.Join(errs...)
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModifiedAt.Equal(files[j].ModifiedAt) {
			return files[i].ModifiedAt.After(files[j].ModifiedAt)
		}
		return files[i].FilePath < files[j].FilePath
	})
	return files, nil
}

func (s *scanner) scanRoot(ctx context.Context, root string) ([]models.FileChangeItem, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: root, Err: errors.New("not a directory")}
	}

	var files []models.FileChangeItem
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			s.log.Debug().Err(err).Str("path", path).Msg("Cannot read path during scan")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return s.enterDir(root, path)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		item, ok := s.inspect(path, d)
		if ok {
			files = append(files, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// enterDir decides whether the walk descends into dir. Git repositories are
// left to the git source.
func (s *scanner) enterDir(root, dir string) error {
	if dir != root && s.exclude.excluded(dir, true) {
		return fs.SkipDir
	}
	if _, err := os.Lstat(filepath.Join(dir, ".git")); err == nil {
		s.log.Debug().Str("path", dir).Msg("Skipping git repository")
		return fs.SkipDir
	}
	if s.maxDepth > 0 && depth(root, dir) >= s.maxDepth {
		return fs.SkipDir
	}
	return nil
}

// inspect applies the file filters and builds the item
func (s *scanner) inspect(path string, d fs.DirEntry) (models.FileChangeItem, bool) {
	if s.exclude.excluded(path, false) {
		return models.FileChangeItem{}, false
	}

	ext := strings.ToLower(filepath.Ext(path))
	if s.fileTypes != nil && !s.fileTypes[ext] {
		return models.FileChangeItem{}, false
	}

	info, err := d.Info()
	if err != nil {
		s.log.Debug().Err(err).Str("path", path).Msg("Cannot stat file")
		return models.FileChangeItem{}, false
	}

	modified := info.ModTime().UTC()
	if !s.window.Contains(modified) {
		return models.FileChangeItem{}, false
	}

	if s.maxSize > 0 && info.Size() > s.maxSize {
		s.log.Debug().
			Str("path", path).
			Str("size", humanize.Bytes(uint64(info.Size()))).
			Str("limit", humanize.Bytes(uint64(s.maxSize))).
			Msg("Skipping file over size limit")
		return models.FileChangeItem{}, false
	}

	item := models.FileChangeItem{
		FilePath:        path,
		FileName:        filepath.Base(path),
		EventType:       models.FileEventModify,
		ModifiedAt:      modified,
		FileSize:        info.Size(),
		Extension:       ext,
		MimeType:        mimeType(ext),
		ParentDirectory: filepath.Dir(path),
	}

	if s.preview && previewExtensions[ext] {
		preview, err := readPreview(path)
		if err != nil {
			s.log.Debug().Err(err).Str("path", path).Msg("Cannot read preview")
		} else {
			item.ContentPreview = preview
		}
	}

	return item, true
}

// readPreview returns at most previewChars characters of the file, followed
// by an ellipsis when the file holds more
func readPreview(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, previewReadBytes+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	more := n > previewReadBytes
	if more {
		n = previewReadBytes
	}

	text := strings.ToValidUTF8(string(buf[:n]), "")
	if utf8.RuneCountInString(text) > previewChars {
		runes := []rune(text)
		return string(runes[:previewChars]) + ellipsis, nil
	}
	if more {
		return text + ellipsis, nil
	}
	return text, nil
}

func depth(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

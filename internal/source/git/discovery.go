package git

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/activity-collector/pkg/logger"
)

// DiscoverRepositories walks every scan path and returns the directories that
// contain a .git entry. Repositories are not descended into, so nested
// repositories and submodules are not reported. node_modules and dot
// directories are skipped. maxDepth <= 0 means unlimited.
func DiscoverRepositories(scanPaths, exclude []string, maxDepth int, log *logger.Logger) []string {
	excluded := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		excluded[cleanAbs(p)] = true
	}

	seen := make(map[string]bool)
	var repos []string

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		if isRepository(dir) {
			abs := cleanAbs(dir)
			if excluded[abs] {
				log.Debug().Str("repository", abs).Msg("Repository excluded by config")
				return
			}
			if !seen[abs] {
				seen[abs] = true
				repos = append(repos, abs)
			}
			return
		}

		if maxDepth > 0 && depth >= maxDepth {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Debug().Err(err).Str("path", dir).Msg("Cannot read directory during discovery")
			return
		}

		for _, entry := range entries {
			// Symlinks report a non-directory type here, which also keeps the walk cycle free.
			if !entry.IsDir() {
				continue
			}
			name := entry.Name()
			if name == "node_modules" || strings.HasPrefix(name, ".") {
				continue
			}
			walk(filepath.Join(dir, name), depth+1)
		}
	}

	for _, root := range scanPaths {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			log.Warn().Str("path", root).Msg("Scan path does not exist or is not a directory")
			continue
		}
		walk(root, 0)
	}

	return repos
}

func isRepository(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}

func cleanAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

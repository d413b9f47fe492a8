package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activity-collector/pkg/logger"
)

func mkRepo(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(path, ".git"), 0o755))
}

func TestDiscoverRepositories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, filepath.Join(root, "alpha"))
	mkRepo(t, filepath.Join(root, "group", "beta"))
	// nested inside alpha: must not be reported
	mkRepo(t, filepath.Join(root, "alpha", "vendor", "nested"))
	// skipped directories
	mkRepo(t, filepath.Join(root, "node_modules", "pkg"))
	mkRepo(t, filepath.Join(root, ".hidden", "gamma"))
	// worktree style .git file
	require.NoError(t, os.MkdirAll(filepath.Join(root, "delta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "delta", ".git"), []byte("gitdir: /elsewhere\n"), 0o644))
	// plain directory
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))

	repos := DiscoverRepositories([]string{root}, nil, 0, logger.Nop())

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "alpha"),
		filepath.Join(root, "group", "beta"),
		filepath.Join(root, "delta"),
	}, repos)
}

func TestDiscoverRepositories_Exclusions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, filepath.Join(root, "keep"))
	mkRepo(t, filepath.Join(root, "drop"))

	repos := DiscoverRepositories([]string{root}, []string{filepath.Join(root, "drop") + "/"}, 0, logger.Nop())

	assert.Equal(t, []string{filepath.Join(root, "keep")}, repos)
}

func TestDiscoverRepositories_ScanPathIsRepository(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, root)
	mkRepo(t, filepath.Join(root, "sub"))

	repos := DiscoverRepositories([]string{root, root}, nil, 0, logger.Nop())

	assert.Equal(t, []string{root}, repos)
}

func TestDiscoverRepositories_MaxDepth(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, filepath.Join(root, "a"))
	mkRepo(t, filepath.Join(root, "x", "y", "z", "deep"))

	repos := DiscoverRepositories([]string{root}, nil, 2, logger.Nop())
	assert.Equal(t, []string{filepath.Join(root, "a")}, repos)
}

func TestDiscoverRepositories_MissingPath(t *testing.T) {
	t.Parallel()

	repos := DiscoverRepositories([]string{filepath.Join(t.TempDir(), "missing")}, nil, 0, logger.Nop())
	assert.Empty(t, repos)
}

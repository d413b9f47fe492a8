package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/pkg/logger"
)

func newTestSource(cfg config.GitConfig, run runFunc, now time.Time) *Source {
	s := New(cfg, logger.Nop())
	s.run = run
	s.now = func() time.Time { return now }
	return s
}

func TestSource_StatsFailureDegradesToZero(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, filepath.Join(root, "repo"))
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	commit := rawCommit{
		Hash:        "abc123",
		AuthorName:  "Jane Doe",
		AuthorEmail: "jane@example.com",
		Date:        now.Add(-time.Hour),
		Message:     "work",
	}
	run := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		switch args[0] {
		case "log":
			return []byte(encodeRecord(commit)), nil
		case "show":
			return nil, errors.New("object not found")
		case "diff-tree":
			return []byte("main.go\n"), nil
		}
		return nil, nil
	}

	s := newTestSource(config.GitConfig{ScanPaths: []string{root}, SinceDays: 7}, run, now)
	result := s.Collect(context.Background())

	require.True(t, result.Success)
	require.Equal(t, 1, result.ItemsCollected)
	c := result.Items[0].Data.(models.GitCommit)
	assert.Equal(t, 0, c.Stats.FilesChanged)
	assert.Equal(t, 0, c.Stats.Insertions)
	assert.Equal(t, 0, c.Stats.Deletions)
	assert.Equal(t, []string{"main.go"}, c.Stats.Files)
}

func TestSource_DropsCommitsOutsideWindow(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, filepath.Join(root, "repo"))
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	recent := rawCommit{Hash: "new", AuthorName: "A", AuthorEmail: "a@x", Date: now.Add(-2 * time.Hour), Message: "new"}
	old := rawCommit{Hash: "old", AuthorName: "A", AuthorEmail: "a@x", Date: now.Add(-30 * 24 * time.Hour), Message: "old"}
	run := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if args[0] == "log" {
			return []byte(encodeRecord(recent) + "\n" + encodeRecord(old)), nil
		}
		return []byte(""), nil
	}

	s := newTestSource(config.GitConfig{ScanPaths: []string{root}, SinceDays: 7}, run, now)
	result := s.Collect(context.Background())

	require.True(t, result.Success)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "new", result.Items[0].Data.(models.GitCommit).Hash)
	assert.Equal(t, now, result.CollectedAt)
}

func TestSource_AllRepositoriesFail(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, filepath.Join(root, "one"))
	mkRepo(t, filepath.Join(root, "two"))

	run := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("corrupt")
	}
	s := newTestSource(config.GitConfig{ScanPaths: []string{root}, SinceDays: 1}, run, time.Now())
	result := s.Collect(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "all 2 repositories failed")
}

func TestSource_Validate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	okRun := func(context.Context, string, ...string) ([]byte, error) { return []byte("git version 2.45.0"), nil }
	noGit := func(context.Context, string, ...string) ([]byte, error) { return nil, exec.ErrNotFound }

	t.Run("git missing", func(t *testing.T) {
		t.Parallel()
		s := newTestSource(config.GitConfig{ScanPaths: []string{root}}, noGit, time.Now())
		err := s.Validate(context.Background())
		require.Error(t, err)
		var srcErr *models.SourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, models.SourceTypeGit, srcErr.SourceType)
		assert.Equal(t, "validate", srcErr.Op)
	})

	t.Run("no repositories", func(t *testing.T) {
		t.Parallel()
		s := newTestSource(config.GitConfig{ScanPaths: []string{root}}, okRun, time.Now())
		assert.ErrorContains(t, s.Validate(context.Background()), "no git repositories found")
	})

	t.Run("no scan paths", func(t *testing.T) {
		t.Parallel()
		s := newTestSource(config.GitConfig{}, okRun, time.Now())
		assert.ErrorContains(t, s.Validate(context.Background()), "no scan_paths configured")
	})

	t.Run("repository found", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		mkRepo(t, filepath.Join(dir, "project"))
		s := newTestSource(config.GitConfig{ScanPaths: []string{dir}}, okRun, time.Now())
		assert.NoError(t, s.Validate(context.Background()))
	})
}

// gitCmd runs the real git binary for fixture setup
func gitCmd(t *testing.T, dir string, env []string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "commit.gpgsign=false"}, args...)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestSource_EndToEnd(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	t.Parallel()

	root := t.TempDir()
	repo := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(repo, 0o755))

	gitCmd(t, repo, nil, "init", "-q")
	gitCmd(t, repo, nil, "symbolic-ref", "HEAD", "refs/heads/main")

	// Baseline commit well outside the window
	old := time.Now().Add(-30 * 24 * time.Hour).Format(time.RFC3339)
	oldEnv := []string{
		"GIT_AUTHOR_NAME=Setup", "GIT_AUTHOR_EMAIL=setup@example.com", "GIT_AUTHOR_DATE=" + old,
		"GIT_COMMITTER_NAME=Setup", "GIT_COMMITTER_EMAIL=setup@example.com", "GIT_COMMITTER_DATE=" + old,
	}
	writeLines(t, filepath.Join(repo, "a.txt"), "old1", "old2")
	writeLines(t, filepath.Join(repo, "b.txt"), "x")
	gitCmd(t, repo, oldEnv, "add", ".")
	gitCmd(t, repo, oldEnv, "commit", "-q", "-m", "baseline")

	// Today's commit: a.txt -2/+6, b.txt +4
	janeEnv := []string{
		"GIT_AUTHOR_NAME=Jane Doe", "GIT_AUTHOR_EMAIL=jane@example.com",
		"GIT_COMMITTER_NAME=Jane Doe", "GIT_COMMITTER_EMAIL=jane@example.com",
	}
	writeLines(t, filepath.Join(repo, "a.txt"), "n1", "n2", "n3", "n4", "n5", "n6")
	writeLines(t, filepath.Join(repo, "b.txt"), "x", "y1", "y2", "y3", "y4")
	gitCmd(t, repo, janeEnv, "add", ".")
	gitCmd(t, repo, janeEnv, "commit", "-q", "-m", "Rework notes\n\nSecond paragraph.")

	head, err := exec.Command("git", "-C", repo, "rev-parse", "HEAD").Output()
	require.NoError(t, err)

	s := New(config.GitConfig{ScanPaths: []string{root}, SinceDays: 7}, logger.Nop())
	require.NoError(t, s.Validate(context.Background()))

	result := s.Collect(context.Background())
	require.True(t, result.Success, result.Error)
	require.Equal(t, 1, result.ItemsCollected)

	item := result.Items[0]
	assert.Equal(t, models.SourceTypeGit, item.SourceType)
	commit := item.Data.(models.GitCommit)
	assert.Equal(t, strings.TrimSpace(string(head)), commit.Hash)
	assert.Equal(t, "Jane Doe", commit.AuthorName)
	assert.Equal(t, "jane@example.com", commit.AuthorEmail)
	assert.Equal(t, "Rework notes\n\nSecond paragraph.", commit.Message)
	assert.Equal(t, "main", commit.Branch)
	assert.Equal(t, repo, commit.Repository)
	assert.Equal(t, 2, commit.Stats.FilesChanged)
	assert.Equal(t, 10, commit.Stats.Insertions)
	assert.Equal(t, 2, commit.Stats.Deletions)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, commit.Stats.Files)
	assert.Equal(t, commit.Date, item.Timestamp)
}

package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/source"
	"github.com/activity-collector/pkg/logger"
)

// runFunc executes git with args inside dir and returns stdout
type runFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Source implements source.Source for local git repositories
type Source struct {
	cfg config.GitConfig
	run runFunc
	now func() time.Time
	log *logger.Logger
}

// New creates a new git source
func New(cfg config.GitConfig, log *logger.Logger) *Source {
	return &Source{
		cfg: cfg,
		run: execGit,
		now: time.Now,
		log: log.WithSource(string(models.SourceTypeGit), "git"),
	}
}

// Factory adapts New to source.Factory
func Factory(cfg config.SourcesConfig, log *logger.Logger) source.Source {
	return New(cfg.Git, log)
}

// Type returns "git"
func (s *Source) Type() models.SourceType {
	return models.SourceTypeGit
}

// Validate checks that git is installed and at least one repository is found
func (s *Source) Validate(ctx context.Context) error {
	if _, err := s.run(ctx, "", "--version"); err != nil {
		return models.NewSourceError(models.SourceTypeGit, "validate", fmt.Errorf("git is not available: %w", err))
	}
	if len(s.cfg.ScanPaths) == 0 {
		return models.NewSourceError(models.SourceTypeGit, "validate", errors.New("no scan_paths configured"))
	}

	repos := DiscoverRepositories(s.cfg.ScanPaths, s.cfg.ExcludeRepos, s.cfg.MaxDepth, s.log)
	if len(repos) == 0 {
		return models.NewSourceError(models.SourceTypeGit, "validate",
			fmt.Errorf("no git repositories found under %s", strings.Join(s.cfg.ScanPaths, ", ")))
	}

	s.log.Info().Int("repositories", len(repos)).Msg("Git source validated")
	return nil
}

// Collect gathers the commits of every discovered repository inside the window
func (s *Source) Collect(ctx context.Context) *models.CollectionResult {
	now := s.now()
	window := models.NewWindow(now, s.cfg.SinceDays)

	repos := DiscoverRepositories(s.cfg.ScanPaths, s.cfg.ExcludeRepos, s.cfg.MaxDepth, s.log)

	var (
		commits []models.GitCommit
		failed  int
	)
	for _, repo := range repos {
		repoCommits, err := s.repositoryCommits(ctx, repo, window)
		if err != nil {
			failed++
			s.log.Warn().
				Err(err).
				Str("operation", "log").
				Str("repository", repo).
				Msg("Failed to read repository, skipping")
			continue
		}
		commits = append(commits, repoCommits...)
	}

	if len(repos) > 0 && failed == len(repos) {
		return models.NewFailureResult(models.SourceTypeGit,
			fmt.Errorf("all %d repositories failed", failed), now)
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Date.After(commits[j].Date)
	})

	items := make([]models.CollectedItem, 0, len(commits))
	for _, c := range commits {
		items = append(items, models.CollectedItem{
			SourceType: models.SourceTypeGit,
			Timestamp:  c.Date,
			Data:       c,
		})
	}

	s.log.Info().
		Int("repositories", len(repos)).
		Int("commits", len(items)).
		Msg("Collected git commits")

	return models.NewSuccessResult(models.SourceTypeGit, items, now)
}

// repositoryCommits lists the commits of one repository and attaches stats.
// Stats are computed per hash, and a hash always names the same content, so
// commits landing between the two invocations cannot skew them.
func (s *Source) repositoryCommits(ctx context.Context, repo string, window models.Window) ([]models.GitCommit, error) {
	out, err := s.run(ctx, repo, logArgs(window.Since, s.cfg.AuthorEmail)...)
	if err != nil {
		return nil, err
	}

	raws, err := parseLog(out)
	if err != nil {
		// Keep what was decoded before the bad record.
		s.log.Warn().Err(err).Str("repository", repo).Msg("Partial git log output")
	}

	branch := currentBranch(repo)

	commits := make([]models.GitCommit, 0, len(raws))
	for _, raw := range raws {
		if !window.Contains(raw.Date) {
			continue
		}
		commits = append(commits, models.GitCommit{
			Hash:        raw.Hash,
			Repository:  repo,
			Branch:      branch,
			AuthorName:  raw.AuthorName,
			AuthorEmail: raw.AuthorEmail,
			Date:        raw.Date,
			Message:     raw.Message,
			Stats:       s.commitStats(ctx, repo, raw.Hash),
		})
	}
	return commits, nil
}

// commitStats degrades to zero values when git fails for this commit
func (s *Source) commitStats(ctx context.Context, repo, hash string) models.CommitStats {
	stats := models.CommitStats{Files: []string{}}

	out, err := s.run(ctx, repo, "show", "--stat", "--format=", hash)
	if err != nil {
		s.log.Debug().Err(err).Str("repository", repo).Str("hash", hash).Msg("Failed to get commit stats")
	} else {
		stats.FilesChanged, stats.Insertions, stats.Deletions = parseStatSummary(string(out))
	}

	// --root makes the initial commit list its files as well
	out, err = s.run(ctx, repo, "diff-tree", "--root", "--no-commit-id", "--name-only", "-r", hash)
	if err != nil {
		s.log.Debug().Err(err).Str("repository", repo).Str("hash", hash).Msg("Failed to list commit files")
	} else {
		stats.Files = parseNameList(string(out))
	}

	return stats
}

func execGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)

// Package gitsource keeps local clones of git-hosted decks up to date.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// IsURL reports whether source looks like a git remote rather than a path.
func IsURL(source string) bool {
	if strings.HasSuffix(source, ".git") && (strings.Contains(source, "://") || strings.Contains(source, "@")) {
		return true
	}
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http" || u.Scheme == "ssh" || u.Scheme == "git")
}

// LocalPath maps a remote URL to a directory under baseDir, for example
// git@github.com:me/deck.git → baseDir/github.com/me/deck.
func LocalPath(baseDir, repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err == nil && u.Host != "" {
		return under(baseDir, repoURL, u.Host, strings.TrimSuffix(u.Path, ".git"))
	}

	// scp-like syntax: user@host:path
	userHost, path, ok := strings.Cut(repoURL, ":")
	_, host, hasUser := strings.Cut(userHost, "@")
	if !ok || !hasUser || host == "" || path == "" {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	return under(baseDir, repoURL, host, strings.TrimSuffix(path, ".git"))
}

// under joins host and path below baseDir and rejects results that land on
// or outside it.
func under(baseDir, repoURL, host, path string) (string, error) {
	p := filepath.Join(baseDir, host, path)
	rel, err := filepath.Rel(baseDir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL %s escapes %s", repoURL, baseDir)
	}
	return p, nil
}

// Sync clones repoURL into localPath, or pulls when a clone already exists.
func Sync(ctx context.Context, repoURL, localPath string, log *zap.Logger) error {
	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("cloning deck repository", zap.String("url", repoURL), zap.String("path", localPath))
		if _, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: repoURL, Depth: 1}); err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	log.Info("pulling deck repository", zap.String("path", localPath))
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}
	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return nil
}

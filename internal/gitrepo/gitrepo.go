// Package gitrepo reads defaults from a local git checkout: the GitHub
// repository behind the origin remote and the checked out branch.
package gitrepo

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
)

// DefaultRemote is the remote DetectRepository reads.
const DefaultRemote = "origin"

// ErrNotGitHub is returned for remote URLs that do not name an owner/name pair.
var ErrNotGitHub = errors.New("remote URL does not name a repository")

// openRepo opens the git repository containing path, walking up to the
// repository root. An empty path means the working directory.
func openRepo(path string) (*git.Repository, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	return repo, nil
}

// DetectRepository returns "owner/name" for the origin remote of the
// repository containing path.
func DetectRepository(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}

	remote, err := repo.Remote(DefaultRemote)
	if err != nil {
		return "", fmt.Errorf("getting remote %s: %w", DefaultRemote, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", DefaultRemote)
	}
	return ParseRemoteURL(urls[0])
}

// CurrentBranch returns the checked out branch of the repository containing
// path. Returns empty string if in detached HEAD state.
func CurrentBranch(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD reference: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// ParseRemoteURL extracts "owner/name" from a remote URL. Supported forms:
//
//	https://github.com/owner/name(.git)
//	ssh://git@github.com/owner/name(.git)
//	git@github.com:owner/name(.git)
func ParseRemoteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotGitHub
	}

	var path string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse remote URL: %w", err)
		}
		path = u.Path
	} else {
		// scp-like syntax: [user@]host:path
		_, after, ok := strings.Cut(raw, ":")
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNotGitHub, raw)
		}
		path = after
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %s", ErrNotGitHub, raw)
	}

	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return "", fmt.Errorf("%w: %s", ErrNotGitHub, raw)
	}
	return owner + "/" + name, nil
}

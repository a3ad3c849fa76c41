package version

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// abbrevLen matches the default abbreviation of git and JGit.
const abbrevLen = 7

// VCS is the narrow read-only view of a repository the resolver needs.
type VCS interface {
	CurrentBranchName(ctx context.Context) (string, error)
	HeadAbbreviatedHash(ctx context.Context) (string, error)
}

// Opener opens the repository rooted at path.
type Opener func(path string) (VCS, error)

type gitRepo struct {
	repo *git.Repository
}

// OpenGit opens the repository at path without searching parent
// directories. Nothing is ever written to it.
func OpenGit(path string) (VCS, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          false,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, err
	}
	return &gitRepo{repo: repo}, nil
}

func (g *gitRepo) head() (*plumbing.Reference, error) {
	head, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}
	return head, nil
}

// CurrentBranchName returns the short branch name, or "HEAD" when detached.
func (g *gitRepo) CurrentBranchName(ctx context.Context) (string, error) {
	head, err := g.head()
	if err != nil {
		return "", err
	}
	if !head.Name().IsBranch() {
		return "HEAD", nil
	}
	return head.Name().Short(), nil
}

func (g *gitRepo) HeadAbbreviatedHash(ctx context.Context) (string, error) {
	head, err := g.head()
	if err != nil {
		return "", err
	}
	hash := head.Hash()
	if hash.IsZero() {
		return "", fmt.Errorf("HEAD does not point at a commit")
	}
	// The object must exist, otherwise the repository is damaged.
	if _, err := g.repo.CommitObject(hash); err != nil {
		return "", fmt.Errorf("failed to load HEAD commit %s: %w", hash, err)
	}
	return hash.String()[:abbrevLen], nil
}

package version

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/meghabuild/internal/ctxlog"
)

// Resolver reads the VCS state of a checkout.
type Resolver struct {
	open Opener
	now  func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOpener replaces the git implementation, mostly for tests.
func WithOpener(open Opener) Option {
	return func(r *Resolver) { r.open = open }
}

// WithClock pins the clock. The timestamp of every Record produced by the
// resolver comes from this function.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver returns a Resolver backed by go-git and the wall clock.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{open: OpenGit, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve builds the Record for declaredVersion from the checkout at
// repositoryPath.
func (r *Resolver) Resolve(ctx context.Context, repositoryPath, declaredVersion string) (Record, error) {
	logger := ctxlog.FromContext(ctx)
	rec := Record{
		DeclaredVersion: declaredVersion,
		Revision:        ReleaseRevision,
		Timestamp:       r.now().Local(),
	}

	dotGit := filepath.Join(repositoryPath, ".git")
	if _, err := os.Stat(dotGit); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("No VCS metadata found, building a release.", "path", repositoryPath)
			return rec, nil
		}
		return Record{}, &VcsReadError{Path: repositoryPath, Op: "stat", Err: err}
	}

	vcs, err := r.open(repositoryPath)
	if err != nil {
		return Record{}, &VcsReadError{Path: repositoryPath, Op: "open", Err: err}
	}
	branch, err := vcs.CurrentBranchName(ctx)
	if err != nil {
		return Record{}, &VcsReadError{Path: repositoryPath, Op: "branch", Err: err}
	}
	hash, err := vcs.HeadAbbreviatedHash(ctx)
	if err != nil {
		return Record{}, &VcsReadError{Path: repositoryPath, Op: "head", Err: err}
	}

	rec.Revision = hash
	rec.Branch = branch
	logger.Debug("Resolved VCS revision.", "revision", hash, "branch", branch)
	return rec, nil
}

package git

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Options describes a checkout of a remote repository.
type Options struct {
	URL string
	Dir string
	// Branch limits the clone to one branch. Empty means the remote HEAD.
	Branch string
	// Revision is a tag or commit checked out after cloning or pulling.
	Revision string
	Depth    int
	// Token authenticates HTTPS remotes.
	Token    string
	Progress io.Writer
}

func (o Options) auth() transport.AuthMethod {
	if o.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: o.Token}
}

// Clone clones o.URL into o.Dir and checks out o.Revision when set.
func Clone(ctx context.Context, o Options) error {
	opts := &git.CloneOptions{
		URL:      o.URL,
		Auth:     o.auth(),
		Depth:    o.Depth,
		Progress: o.Progress,
		Tags:     git.AllTags,
	}
	if o.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(o.Branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, o.Dir, false, opts)
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", o.URL, err)
	}
	if o.Revision != "" {
		return checkout(repo, o.Revision)
	}
	return nil
}

// Pull updates the clone in o.Dir. With a revision, tags and branches are
// fetched and the revision is checked out; otherwise the current branch is
// fast-forwarded.
func Pull(ctx context.Context, o Options) error {
	repo, err := git.PlainOpen(o.Dir)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", o.Dir, err)
	}

	if o.Revision != "" {
		err := repo.FetchContext(ctx, &git.FetchOptions{
			Auth:     o.auth(),
			Progress: o.Progress,
			Tags:     git.AllTags,
			Force:    true,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to fetch %s: %w", o.Dir, err)
		}
		return checkout(repo, o.Revision)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	opts := &git.PullOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       o.auth(),
		Depth:      o.Depth,
		Progress:   o.Progress,
	}
	if o.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(o.Branch)
		opts.SingleBranch = true
	}
	if err := wt.PullContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull %s: %w", o.Dir, err)
	}
	return nil
}

// Head returns the commit checked out in dir.
func Head(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repository %s: %w", dir, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func checkout(repo *git.Repository, revision string) error {
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", revision, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", revision, err)
	}
	return nil
}

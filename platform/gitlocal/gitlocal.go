/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitlocal lists the changes of a local git repository.
//
// The committed change is the diff from a base revision (by default the
// first parent of HEAD) to HEAD. Uncommitted worktree changes are added
// on top, with their content read from disk.
//
//	repo, err := gitlocal.Open(".", gitlocal.WithBase("origin/main"))
//	files, err := repo.ChangedFiles(ctx)
package gitlocal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// maxContentBytes caps the content kept per file.
const maxContentBytes = 200_000

// Repo is a local repository opened for review.
type Repo struct {
	root string
	repo *gogit.Repository
	base string
	// uncommitted includes worktree changes on top of the committed diff.
	uncommitted bool
}

var _ platform.ChangedFilesProvider = (*Repo)(nil)

// Option configures a Repo.
type Option func(*Repo)

// WithBase sets the revision the change is compared against.
func WithBase(rev string) Option {
	return func(r *Repo) { r.base = rev }
}

// WithoutUncommitted ignores changes that are not committed yet.
func WithoutUncommitted() Option {
	return func(r *Repo) { r.uncommitted = false }
}

// Open opens the repository containing dir.
func Open(dir string, opts ...Option) (*Repo, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository at %s has no worktree: %w", dir, err)
	}
	r := &Repo{root: wt.Filesystem.Root(), repo: repo, uncommitted: true}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root is the worktree root.
func (r *Repo) Root() string { return r.root }

// ID names the repository by its directory.
func (r *Repo) ID() string { return filepath.Base(r.root) }

// ChangedFiles implements platform.ChangedFilesProvider.
func (r *Repo) ChangedFiles(ctx context.Context) ([]platform.File, error) {
	log := clog.FromContext(ctx).With("repo", r.root)

	files, err := r.committed(ctx)
	if err != nil {
		return nil, err
	}
	if r.uncommitted {
		files, err = r.addUncommitted(ctx, files)
		if err != nil {
			return nil, err
		}
	}
	slices.SortFunc(files, func(a, b platform.File) int { return strings.Compare(a.Name, b.Name) })
	log.With("files", len(files)).Info("Collected local changes")
	return files, nil
}

func (r *Repo) committed(ctx context.Context) ([]platform.File, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// No commits yet: only the worktree can carry changes.
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	headCommit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("reading HEAD commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}
	baseTree, err := r.baseTree(headCommit)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	files := make([]platform.File, 0, len(changes))
	for _, change := range changes {
		f, err := r.fromChange(ctx, change, headTree)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// baseTree is the tree of the configured base, the first parent of head,
// or nil for a root commit.
func (r *Repo) baseTree(head *object.Commit) (*object.Tree, error) {
	if r.base != "" {
		hash, err := r.repo.ResolveRevision(plumbing.Revision(r.base))
		if err != nil {
			return nil, fmt.Errorf("resolving base %q: %w", r.base, err)
		}
		c, err := r.repo.CommitObject(*hash)
		if err != nil {
			return nil, fmt.Errorf("reading base %q: %w", r.base, err)
		}
		return c.Tree()
	}
	if head.NumParents() == 0 {
		return nil, nil
	}
	parent, err := head.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("reading parent of HEAD: %w", err)
	}
	return parent.Tree()
}

func (r *Repo) fromChange(ctx context.Context, change *object.Change, headTree *object.Tree) (platform.File, error) {
	action, err := change.Action()
	if err != nil {
		return platform.File{}, err
	}
	f := platform.File{Name: change.To.Name}
	switch action {
	case merkletrie.Insert:
		f.Status = "added"
	case merkletrie.Delete:
		f.Name, f.Status = change.From.Name, "removed"
	default:
		f.Status = "modified"
		if change.From.Name != change.To.Name {
			f.Status = "renamed"
		}
	}

	patch, err := change.PatchContext(ctx)
	if err != nil {
		return platform.File{}, fmt.Errorf("diffing %s: %w", f.Name, err)
	}
	f.Diff = patch.String()
	for _, s := range patch.Stats() {
		f.Additions += s.Addition
		f.Deletions += s.Deletion
	}
	f.Hunks = platform.ParseHunks(f.Diff)

	if action != merkletrie.Delete {
		f.Content, err = blobContent(headTree, f.Name)
		if err != nil {
			return platform.File{}, err
		}
	}
	return f, nil
}

func blobContent(tree *object.Tree, name string) (string, error) {
	file, err := tree.File(name)
	if err != nil {
		return "", fmt.Errorf("reading %s at HEAD: %w", name, err)
	}
	if bin, err := file.IsBinary(); err != nil || bin {
		return "", err
	}
	content, err := file.Contents()
	if err != nil {
		return "", err
	}
	return clip(content), nil
}

// addUncommitted merges worktree status into files. Worktree content
// replaces the committed content of a file changed in both.
func (r *Repo) addUncommitted(ctx context.Context, files []platform.File) ([]platform.File, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}

	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f.Name] = i
	}
	for name, s := range status {
		code := s.Worktree
		if code == gogit.Unmodified {
			code = s.Staging
		}
		st := statusName(code)
		if st == "" {
			continue
		}
		f := platform.File{Name: name, Status: st}
		if code != gogit.Deleted {
			data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(name)))
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			f.Content = clip(string(data))
		}
		if i, ok := index[name]; ok {
			files[i].Content = f.Content
			if code == gogit.Deleted {
				files[i].Status = st
			}
			continue
		}
		clog.FromContext(ctx).With("path", name).With("status", st).Debug("Uncommitted change")
		index[name] = len(files)
		files = append(files, f)
	}
	return files, nil
}

func statusName(code gogit.StatusCode) string {
	switch code {
	case gogit.Untracked, gogit.Added:
		return "added"
	case gogit.Modified, gogit.UpdatedButUnmerged:
		return "modified"
	case gogit.Deleted:
		return "removed"
	case gogit.Renamed, gogit.Copied:
		return "renamed"
	}
	return ""
}

func clip(s string) string {
	if len(s) <= maxContentBytes {
		return s
	}
	return s[:maxContentBytes] + "\n... [truncated]"
}

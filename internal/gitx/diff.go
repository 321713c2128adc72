// Package gitx detects changed files between two git refs.
package gitx

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/opsfactor/tgrender/pkg/log"
)

// Repo wraps an opened git repository.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository containing dir.
func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", dir, err)
	}
	return &Repo{repo: r}, nil
}

// ChangedFiles returns the paths changed between baseRef and headRef.
// When baseRef is not an ancestor of headRef (force push leaving the old
// commit orphaned) the comparison falls back to the parent of headRef
// (HEAD~1 when headRef is empty); otherwise the
// merge base of the two refs is used so branch comparisons stay stable.
func (r *Repo) ChangedFiles(baseRef, headRef string) ([]string, error) {
	if headRef == "" {
		headRef = "HEAD"
	}
	head, err := r.commit(headRef)
	if err != nil {
		return nil, err
	}

	base, err := r.commit(baseRef)
	if err != nil {
		return nil, err
	}

	if ancestor, aerr := base.IsAncestor(head); aerr != nil || !ancestor {
		log.WithField("base", baseRef).Warn("base ref is not an ancestor of head (force push?), using " + headRef + "~1")
		base, err = r.commit(headRef + "~1")
		if err != nil {
			return nil, err
		}
	} else if bases, merr := base.MergeBase(head); merr == nil && len(bases) > 0 {
		base = bases[0]
	}

	baseTree, err := base.Tree()
	if err != nil {
		return nil, err
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, err
	}

	diffs, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}
	for _, change := range diffs {
		add(change.From.Name)
		add(change.To.Name)
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repo) commit(ref string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve ref %q: %w", ref, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}
	return commit, nil
}

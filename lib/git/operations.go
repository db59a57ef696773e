// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"strings"
)

// FileChange is one entry of "git status --porcelain".
type FileChange struct {
	// Status is the two-column XY code, for example " M", "A ", "??".
	Status string `json:"status"`
	Path   string `json:"path"`
}

// IsRepository reports whether the directory is inside a git working
// tree. A directory that is not a repository is a false answer, not an
// error; only a failure to run git at all (or a timeout) is an error.
func (r *Repository) IsRepository(ctx context.Context) (bool, error) {
	output, err := r.Run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if exitedNonZero(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(output) == "true", nil
}

// CurrentBranch returns the checked-out branch, or "" on a detached
// HEAD.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// BranchExists reports whether a local branch with the given name
// exists.
func (r *Repository) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		if exitedNonZero(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateBranch creates a branch at HEAD and checks it out.
func (r *Repository) CreateBranch(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "checkout", "-b", name)
	return err
}

// Checkout switches to an existing branch.
func (r *Repository) Checkout(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "checkout", name)
	return err
}

// ModifiedFiles lists every path git status reports, tracked or not.
// Renames report the new path.
func (r *Repository) ModifiedFiles(ctx context.Context) ([]FileChange, error) {
	output, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(output), nil
}

func parsePorcelain(output string) []FileChange {
	var changes []FileChange
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if _, renamed, found := strings.Cut(path, " -> "); found {
			path = renamed
		}
		changes = append(changes, FileChange{Status: line[:2], Path: path})
	}
	return changes
}

// HasUncommittedChanges reports whether the working tree differs from
// HEAD, counting untracked files.
func (r *Repository) HasUncommittedChanges(ctx context.Context) (bool, error) {
	output, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) != "", nil
}

// StageAll stages every change in the working tree.
func (r *Repository) StageAll(ctx context.Context) error {
	_, err := r.Run(ctx, "add", "--all")
	return err
}

// Commit records the staged changes.
func (r *Repository) Commit(ctx context.Context, message string) error {
	_, err := r.Run(ctx, "commit", "-m", message)
	return err
}

// Merge merges branch into the current branch without opening an
// editor.
func (r *Repository) Merge(ctx context.Context, branch string) error {
	_, err := r.Run(ctx, "merge", "--no-edit", branch)
	return err
}

// DeleteBranch deletes a local branch. force uses -D, which also
// deletes unmerged branches.
func (r *Repository) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.Run(ctx, "branch", flag, name)
	return err
}

// Stash saves uncommitted changes, including untracked files, under
// message.
func (r *Repository) Stash(ctx context.Context, message string) error {
	_, err := r.Run(ctx, "stash", "push", "--include-untracked", "-m", message)
	return err
}

// RemoteURL returns the fetch URL of the named remote.
func (r *Repository) RemoteURL(ctx context.Context, remote string) (string, error) {
	output, err := r.Run(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/taskflow/lib/git"
)

// fakeVCS is an in-memory working tree. Operations named in fail return
// an error carrying stderr text instead of acting.
type fakeVCS struct {
	notRepository bool
	current       string
	branches      map[string]bool
	modified      []git.FileChange

	commits []string
	merges  []string
	stashes []string
	deleted []string
	fail    map[string]error
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		current:  "main",
		branches: map[string]bool{"main": true},
		fail:     map[string]error{},
	}
}

type fakeCommandError struct{ stderr string }

func (e *fakeCommandError) Error() string         { return "exit status 1" }
func (e *fakeCommandError) CommandOutput() string { return e.stderr }

func (f *fakeVCS) failWith(operation, stderr string) {
	f.fail[operation] = &fakeCommandError{stderr: stderr}
}

func (f *fakeVCS) check(operation string) error {
	return f.fail[operation]
}

func (f *fakeVCS) IsRepository(ctx context.Context) (bool, error) {
	return !f.notRepository, f.check("is-repository")
}

func (f *fakeVCS) CurrentBranch(ctx context.Context) (string, error) {
	return f.current, f.check("current-branch")
}

func (f *fakeVCS) BranchExists(ctx context.Context, name string) (bool, error) {
	return f.branches[name], f.check("branch-exists")
}

func (f *fakeVCS) CreateBranch(ctx context.Context, name string) error {
	if err := f.check("create-branch"); err != nil {
		return err
	}
	if f.branches[name] {
		return &fakeCommandError{stderr: fmt.Sprintf("fatal: a branch named '%s' already exists", name)}
	}
	f.branches[name] = true
	f.current = name
	return nil
}

func (f *fakeVCS) Checkout(ctx context.Context, name string) error {
	if err := f.check("checkout:" + name); err != nil {
		return err
	}
	if !f.branches[name] {
		return &fakeCommandError{stderr: "error: pathspec '" + name + "' did not match"}
	}
	f.current = name
	return nil
}

func (f *fakeVCS) ModifiedFiles(ctx context.Context) ([]git.FileChange, error) {
	return f.modified, f.check("status")
}

func (f *fakeVCS) HasUncommittedChanges(ctx context.Context) (bool, error) {
	return len(f.modified) > 0, f.check("status")
}

func (f *fakeVCS) StageAll(ctx context.Context) error {
	return f.check("stage")
}

func (f *fakeVCS) Commit(ctx context.Context, message string) error {
	if err := f.check("commit"); err != nil {
		return err
	}
	f.commits = append(f.commits, message)
	f.modified = nil
	return nil
}

func (f *fakeVCS) Merge(ctx context.Context, branch string) error {
	if err := f.check("merge"); err != nil {
		return err
	}
	f.merges = append(f.merges, branch+"->"+f.current)
	return nil
}

func (f *fakeVCS) DeleteBranch(ctx context.Context, name string, force bool) error {
	if err := f.check("delete-branch"); err != nil {
		return err
	}
	if !f.branches[name] {
		return errors.New("no such branch")
	}
	delete(f.branches, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeVCS) Stash(ctx context.Context, message string) error {
	if err := f.check("stash"); err != nil {
		return err
	}
	f.stashes = append(f.stashes, message)
	f.modified = nil
	return nil
}

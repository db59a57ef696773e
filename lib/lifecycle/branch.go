// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// DefaultBranchPrefix is prepended to every derived branch name.
const DefaultBranchPrefix = "task/"

// untitledSlug stands in for a title with no letters or digits.
const untitledSlug = "untitled"

// BranchNameFor derives the branch name for a task title:
// "Fix Authentication Bug" becomes "task/fix-authentication-bug".
func BranchNameFor(title string) string {
	return BranchName(DefaultBranchPrefix, title)
}

// BranchName is BranchNameFor with an explicit prefix. The slug is the
// lowercased title with accents stripped ("café" becomes "cafe") and
// every run of characters other than letters and digits collapsed to
// one hyphen, trimmed of hyphens at both ends.
func BranchName(prefix, title string) string {
	var builder strings.Builder
	pendingHyphen := false
	for _, r := range norm.NFD.String(strings.ToLower(title)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			pendingHyphen = false
			builder.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	slug := builder.String()
	if slug == "" {
		slug = untitledSlug
	}
	return prefix + slug
}

// freeBranchName returns base, or base-1, base-2, ... for the first
// name that does not exist yet.
func (e *Engine) freeBranchName(ctx context.Context, base string) (string, error) {
	name := base
	for counter := 1; ; counter++ {
		exists, err := e.vcs.BranchExists(ctx, name)
		if err != nil {
			return "", task.NewGatewayError("git", "branch-exists", err)
		}
		if !exists {
			return name, nil
		}
		name = base + "-" + strconv.Itoa(counter)
	}
}

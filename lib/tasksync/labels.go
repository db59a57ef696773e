// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasksync

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// Label prefixes that carry task fields on an issue.
const (
	PriorityLabelPrefix = "priority: "
	ModuleLabelPrefix   = "module: "
)

// DefaultMarkerLabel is added to every pushed issue.
const DefaultMarkerLabel = "synced-from-local"

// ParsePriorityLabel returns the priority named by the first label with
// PriorityLabelPrefix. Missing or unknown values give medium.
func ParsePriorityLabel(labels []string) task.Priority {
	value, found := firstWithPrefix(labels, PriorityLabelPrefix)
	if !found {
		return task.PriorityMedium
	}
	priority := task.Priority(value)
	if !priority.Valid() {
		return task.PriorityMedium
	}
	return priority
}

// ParseModuleLabel returns the module named by the first label with
// ModuleLabelPrefix, or "".
func ParseModuleLabel(labels []string) string {
	value, _ := firstWithPrefix(labels, ModuleLabelPrefix)
	return value
}

func firstWithPrefix(labels []string, prefix string) (string, bool) {
	for _, label := range labels {
		if value, found := strings.CutPrefix(label, prefix); found {
			return value, true
		}
	}
	return "", false
}

// ComposeLabels returns the labels for a pushed issue: the priority,
// the module when set, and marker when non-empty.
func ComposeLabels(t task.Task, marker string) []string {
	labels := []string{PriorityLabelPrefix + string(t.Priority)}
	if t.Module != "" {
		labels = append(labels, ModuleLabelPrefix+t.Module)
	}
	if marker != "" {
		labels = append(labels, marker)
	}
	return labels
}

// ComposeIssueBody renders the issue body for a task and its notes
// (oldest first). The output is stable for identical input.
func ComposeIssueBody(t task.Task, notes []task.Note) string {
	var builder strings.Builder
	if t.Description != "" {
		builder.WriteString(t.Description)
		builder.WriteString("\n\n")
	}

	builder.WriteString("## Task Details\n\n")
	fmt.Fprintf(&builder, "- **Priority:** %s\n", t.Priority)
	if t.Module != "" {
		fmt.Fprintf(&builder, "- **Module:** %s\n", t.Module)
	}
	if t.Branch != "" {
		fmt.Fprintf(&builder, "- **Branch:** `%s`\n", t.Branch)
	}

	if len(notes) > 0 {
		builder.WriteString("\n## Notes\n\n")
		for _, note := range notes {
			fmt.Fprintf(&builder, "- %s\n", note.Content)
		}
	}

	builder.WriteString("\n---\n")
	fmt.Fprintf(&builder, "*Created from local task #%d*\n", t.ID)
	return builder.String()
}

package merge

import (
	"strings"

	"github.com/autobuild/autobuild/internal/semantic"
)

// AutoMerger deterministically applies a task's SemanticChange list onto a
// baseline file's text, without any AI call. It backs the single-task
// direct-merge path and the no-conflict combine path of the multi-task
// pipeline, and resolves auto-mergeable ConflictZones (dedup'd removes).
type AutoMerger struct{}

// ApplySingleTask applies every change in snap onto baseline and returns
// the merged text.
func (AutoMerger) ApplySingleTask(filePath, baseline string, snap TaskSnapshot) string {
	content := baseline
	for _, change := range snap.SemanticChanges {
		content = applyChange(filePath, content, snap, change)
	}
	return content
}

// CombineNonConflicting applies every task's changes onto baseline in
// task-ID order, for files where DetectConflicts found nothing overlapping.
func (AutoMerger) CombineNonConflicting(filePath, baseline string, orderedTaskIDs []string, snapshots map[string]TaskSnapshot) string {
	content := baseline
	for _, id := range orderedTaskIDs {
		snap, ok := snapshots[id]
		if !ok {
			continue
		}
		for _, change := range snap.SemanticChanges {
			content = applyChange(filePath, content, snap, change)
		}
	}
	return content
}

// ResolveDedup applies an auto-mergeable remove/remove ConflictZone exactly
// once: both tasks removed the same symbol, so one application on
// whichever task's snapshot is handy suffices.
func (AutoMerger) ResolveDedup(filePath, content string, snap TaskSnapshot, zone ConflictZone) string {
	start, end, ok := semantic.Locate(filePath, content, zone.Target)
	if !ok {
		return content
	}
	return removeLines(content, start, end)
}

func applyChange(path, content string, snap TaskSnapshot, change semantic.SemanticChange) string {
	switch change.ChangeType {
	case semantic.AddFunction:
		block := extractLines(snap.Content, change.LineStart, change.LineEnd)
		return appendBlock(content, block)

	case semantic.AddImport:
		line := strings.TrimSpace(extractLines(snap.Content, change.LineStart, change.LineEnd))
		return insertImport(path, content, line)

	case semantic.RemoveFunction, semantic.RemoveImport:
		start, end, ok := semantic.Locate(path, content, change.Target)
		if !ok {
			return content
		}
		return removeLines(content, start, end)

	case semantic.ModifyFunction:
		block := extractLines(snap.Content, change.LineStart, change.LineEnd)
		start, end, ok := semantic.Locate(path, content, change.Target)
		if !ok {
			return appendBlock(content, block)
		}
		return replaceLines(content, start, end, block)
	}
	return content
}

func extractLines(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func appendBlock(content, block string) string {
	content = strings.TrimRight(content, "\n")
	return content + "\n\n" + block + "\n"
}

func removeLines(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return content
	}
	out := append([]string{}, lines[:start-1]...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

func replaceLines(content string, start, end int, block string) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return appendBlock(content, block)
	}
	out := append([]string{}, lines[:start-1]...)
	out = append(out, strings.Split(block, "\n")...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

func insertImport(path, content, importLine string) string {
	if start, end, ok := semantic.ImportBlockRange(path, content); ok {
		lines := strings.Split(content, "\n")
		if end > len(lines) {
			end = len(lines)
		}
		out := append([]string{}, lines[:end]...)
		out = append(out, importLine)
		out = append(out, lines[end:]...)
		_ = start
		return strings.Join(out, "\n")
	}

	lines := strings.Split(content, "\n")
	insertAt := 1
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "package ") {
		insertAt = 1
	}
	out := append([]string{}, lines[:insertAt]...)
	out = append(out, "", importLine)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

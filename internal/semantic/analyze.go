package semantic

import (
	"path/filepath"
	"strings"
)

type listFn func(content string) ([]Entity, error)

func dispatch(path string) listFn {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return listEntitiesGo
	case ".py":
		return func(content string) ([]Entity, error) { return listEntitiesPython(content), nil }
	default:
		return nil
	}
}

// Analyze compares baseline against task, the task's version of the same
// file, and returns the top-level function/import changes along with
// whether the file was modified at all.
//
// Files in a language Analyze doesn't parse, or that fail to parse, still
// report hasModifications so the merge pipeline falls back to a direct
// copy instead of silently dropping the edit.
func Analyze(path, baseline, task string) (changes []SemanticChange, hasModifications bool) {
	if baseline == task {
		return nil, false
	}

	fn := dispatch(path)
	if fn == nil {
		return nil, true
	}

	baseEntities, err := fn(baseline)
	if err != nil {
		return nil, true
	}
	taskEntities, err := fn(task)
	if err != nil {
		return nil, true
	}

	return diffEntities(baseEntities, taskEntities), true
}

func diffEntities(base, task []Entity) []SemanticChange {
	baseByKey := indexEntities(base)
	taskByKey := indexEntities(task)

	var changes []SemanticChange
	for key, t := range taskByKey {
		b, existed := baseByKey[key]
		if !existed {
			changes = append(changes, SemanticChange{
				ChangeType: addType(t.Kind),
				Target:     t.Name,
				LineStart:  t.LineStart,
				LineEnd:    t.LineEnd,
			})
			continue
		}
		if t.Kind == KindFunction && strings.TrimSpace(b.Body) != strings.TrimSpace(t.Body) {
			changes = append(changes, SemanticChange{
				ChangeType: ModifyFunction,
				Target:     t.Name,
				LineStart:  t.LineStart,
				LineEnd:    t.LineEnd,
			})
		}
	}
	for key, b := range baseByKey {
		if _, ok := taskByKey[key]; !ok {
			changes = append(changes, SemanticChange{
				ChangeType: removeType(b.Kind),
				Target:     b.Name,
				LineStart:  b.LineStart,
				LineEnd:    b.LineEnd,
			})
		}
	}
	return changes
}

func indexEntities(entities []Entity) map[string]Entity {
	m := make(map[string]Entity, len(entities))
	for _, e := range entities {
		m[string(e.Kind)+":"+e.Name] = e
	}
	return m
}

func addType(k EntityKind) ChangeType {
	if k == KindImport {
		return AddImport
	}
	return AddFunction
}

func removeType(k EntityKind) ChangeType {
	if k == KindImport {
		return RemoveImport
	}
	return RemoveFunction
}

// Locate finds a named top-level function or import in content and
// returns the line range it occupies. Used by the merge package's
// auto-merger to find where a symbol lives in a file it didn't compute
// the diff for (e.g. the baseline, when applying an edit from a task).
func Locate(path, content, target string) (start, end int, ok bool) {
	fn := dispatch(path)
	if fn == nil {
		return 0, 0, false
	}
	entities, err := fn(content)
	if err != nil {
		return 0, 0, false
	}
	for _, e := range entities {
		if e.Name == target {
			return e.LineStart, e.LineEnd, true
		}
	}
	return 0, 0, false
}

// ImportBlockRange returns the line range of the contiguous top-level
// import block in content (the `import ( ... )` block for Go, or the
// leading run of `import`/`from ... import` lines for Python), or
// ok=false when none is found.
func ImportBlockRange(path, content string) (start, end int, ok bool) {
	fn := dispatch(path)
	if fn == nil {
		return 0, 0, false
	}
	entities, err := fn(content)
	if err != nil {
		return 0, 0, false
	}
	for _, e := range entities {
		if e.Kind != KindImport {
			continue
		}
		if !ok {
			start, end, ok = e.LineStart, e.LineEnd, true
			continue
		}
		if e.LineStart < start {
			start = e.LineStart
		}
		if e.LineEnd > end {
			end = e.LineEnd
		}
	}
	return start, end, ok
}

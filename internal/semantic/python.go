package semantic

import (
	"regexp"
	"strings"
)

var (
	rePyDef    = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	rePyImport = regexp.MustCompile(`^(?:import\s+([A-Za-z0-9_.,\s]+)|from\s+([A-Za-z0-9_.]+)\s+import\s+(.+))`)
)

// listEntitiesPython scans Python source with indentation-aware regexes
// rather than a real parser: no Python-parsing library appears anywhere in
// the reference pack, so top-level defs and imports are found by looking
// for unindented `def`/`import`/`from ... import` lines and following a def
// block until indentation returns to column zero.
func listEntitiesPython(content string) []Entity {
	lines := strings.Split(content, "\n")
	var entities []Entity

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		trimmed := strings.TrimRight(line, " \t")

		if m := rePyDef.FindStringSubmatch(trimmed); m != nil {
			start := i + 1
			end := start
			for j := i + 1; j < len(lines); j++ {
				next := lines[j]
				if strings.TrimSpace(next) == "" {
					continue
				}
				if next[0] == ' ' || next[0] == '\t' {
					end = j + 1
					continue
				}
				break
			}
			entities = append(entities, Entity{
				Kind:      KindFunction,
				Name:      m[1],
				LineStart: start,
				LineEnd:   end,
				Body:      sliceLines(lines, start, end),
			})
			continue
		}

		if m := rePyImport.FindStringSubmatch(trimmed); m != nil {
			name := trimmed
			if m[1] != "" {
				name = strings.TrimSpace(m[1])
			} else if m[2] != "" {
				name = m[2] + ":" + strings.TrimSpace(m[3])
			}
			entities = append(entities, Entity{
				Kind:      KindImport,
				Name:      name,
				LineStart: i + 1,
				LineEnd:   i + 1,
				Body:      trimmed,
			})
		}
	}
	return entities
}

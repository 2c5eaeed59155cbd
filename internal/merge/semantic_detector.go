package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/autobuild/autobuild/internal/semantic"
)

// ConflictDetector compares the per-task FileAnalysis buckets pairwise and
// produces the ConflictZones a ConflictResolver must work through.
type ConflictDetector struct{}

// DetectConflicts walks every pair of tasks that touched the same file and
// applies the combination table: add/add on the same function conflicts
// only when the bodies differ; remove/remove on the same symbol is an
// auto-mergeable dedup; differing imports never conflict; modify/modify on
// the same function is a medium-severity, AI-eligible conflict.
// snapshots supplies the full file content per task so add/add bodies can
// be compared.
func (ConflictDetector) DetectConflicts(filePath string, analyses map[string]FileAnalysis, snapshots map[string]TaskSnapshot) []ConflictZone {
	ids := make([]string, 0, len(analyses))
	for id := range analyses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var zones []ConflictZone
	seenRemove := map[string]bool{}

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := analyses[ids[i]], analyses[ids[j]]

			for fn := range a.FunctionsAdded {
				if !b.FunctionsAdded[fn] {
					continue
				}
				bodyA := bodyOf(filePath, snapshots[ids[i]], fn)
				bodyB := bodyOf(filePath, snapshots[ids[j]], fn)
				if strings.TrimSpace(bodyA) == strings.TrimSpace(bodyB) {
					continue
				}
				zones = append(zones, ConflictZone{
					Location:     filePath,
					ChangeType:   semantic.AddFunction,
					Target:       fn,
					TaskIDs:      []string{ids[i], ids[j]},
					Severity:     SeverityHigh,
					CanAutoMerge: false,
					Reason:       fmt.Sprintf("tasks %s and %s both add %q with different bodies", ids[i], ids[j], fn),
				})
			}

			for fn := range a.FunctionsRemoved {
				if !b.FunctionsRemoved[fn] {
					continue
				}
				key := fn
				if seenRemove[key] {
					continue
				}
				seenRemove[key] = true
				zones = append(zones, ConflictZone{
					Location:      filePath,
					ChangeType:    semantic.RemoveFunction,
					Target:        fn,
					TaskIDs:       []string{ids[i], ids[j]},
					Severity:      SeverityLow,
					CanAutoMerge:  true,
					MergeStrategy: StrategyDedup,
					Reason:        fmt.Sprintf("tasks %s and %s both remove %q", ids[i], ids[j], fn),
				})
			}

			for fn := range a.FunctionsModified {
				if !b.FunctionsModified[fn] {
					continue
				}
				zones = append(zones, ConflictZone{
					Location:   filePath,
					ChangeType: semantic.ModifyFunction,
					Target:     fn,
					TaskIDs:    []string{ids[i], ids[j]},
					Severity:   SeverityMedium,
					Reason:     fmt.Sprintf("tasks %s and %s both modify %q", ids[i], ids[j], fn),
				})
			}

			// Differing imports never conflict; they're always combined.
		}
	}
	return zones
}

func bodyOf(filePath string, snap TaskSnapshot, target string) string {
	start, end, ok := semantic.Locate(filePath, snap.Content, target)
	if !ok {
		return ""
	}
	lines := strings.Split(snap.Content, "\n")
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

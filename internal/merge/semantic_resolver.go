package merge

// AIConflictResolver is the narrow, out-of-scope interface for resolving a
// ConflictZone that the deterministic auto-merger can't: an AI call given
// the conflicting task snapshots. A real implementation lives outside this
// module's scope, matching the spec's AgentClient-style boundary.
type AIConflictResolver interface {
	ResolveConflict(zone ConflictZone, baseline string, snapshots map[string]TaskSnapshot) (mergedContent string, tokensUsed int, err error)
}

// ConflictResolver runs the §4.8 resolution cascade over a file's
// ConflictZones: auto-merge first, then an AI call for medium/high
// severity zones when enabled, otherwise the zone is left unresolved for
// human review.
type ConflictResolver struct {
	Auto     AutoMerger
	AI       AIConflictResolver
	EnableAI bool
	Progress *ProgressEmitter
}

// ConflictResolution is the outcome of running the cascade over one
// file's conflict zones.
type ConflictResolution struct {
	Content     string
	Resolved    []ConflictZone
	Remaining   []ConflictZone
	AICallsMade int
	TokensUsed  int
}

// Resolve walks zones in order, mutating content as auto-mergeable and
// AI-resolved zones are applied, and returns which zones were resolved vs.
// left for human review.
func (r ConflictResolver) Resolve(filePath, content string, zones []ConflictZone, snapshots map[string]TaskSnapshot) ConflictResolution {
	res := ConflictResolution{Content: content}
	total := len(zones)

	for idx, zone := range zones {
		if r.Progress != nil {
			r.Progress.Emit(StageResolving, conflictPercent(idx, total), "resolving conflict in "+filePath, map[string]any{
				"current_file":     filePath,
				"conflicts_found":  total,
				"conflicts_resolved": len(res.Resolved),
			})
		}

		if zone.CanAutoMerge && zone.MergeStrategy != "" {
			var snap TaskSnapshot
			if len(zone.TaskIDs) > 0 {
				snap = snapshots[zone.TaskIDs[0]]
			}
			res.Content = r.Auto.ResolveDedup(filePath, res.Content, snap, zone)
			res.Resolved = append(res.Resolved, zone)
			continue
		}

		if r.EnableAI && r.AI != nil && (zone.Severity == SeverityMedium || zone.Severity == SeverityHigh) {
			merged, tokens, err := r.AI.ResolveConflict(zone, res.Content, snapshots)
			if err == nil {
				res.Content = merged
				res.Resolved = append(res.Resolved, zone)
				res.AICallsMade++
				res.TokensUsed += tokens
				continue
			}
		}

		res.Remaining = append(res.Remaining, zone)
	}

	return res
}

// decide maps a ConflictResolution onto the final MergeDecision, per the
// exact combination table: no conflicts left over is auto_merged unless an
// AI call was used anywhere, in which case it's ai_merged; conflicts left
// over alongside at least one resolved conflict is needs_human_review;
// conflicts left over with nothing resolved at all is failed.
func decide(res ConflictResolution) MergeDecision {
	if len(res.Remaining) == 0 {
		if res.AICallsMade == 0 {
			return DecisionAutoMerged
		}
		return DecisionAIMerged
	}
	if len(res.Resolved) > 0 {
		return DecisionNeedsHumanReview
	}
	return DecisionFailed
}

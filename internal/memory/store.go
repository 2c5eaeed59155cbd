// Package memory is the default coder.MemoryStore: a thin adapter in
// front of internal/learning's modernc.org/sqlite-backed LearningStore,
// translating coder.Insight (the §4.6 build loop's narrow memory
// contract) into the WHEN-DO-RESULT learning rows that store already
// persists and full-text indexes. The learning store's schema, migrations
// and search surface are untouched; this package only adds the
// Insight-shaped write path and the jittered-retry wrapper around it
// (retry.go) that §5 calls for under concurrent agent writers.
package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autobuild/autobuild/internal/coder"
	"github.com/autobuild/autobuild/internal/learning"
)

// Store adapts a *learning.LearningStore to coder.MemoryStore.
type Store struct {
	learning *learning.LearningStore
	scope    string
}

var _ coder.MemoryStore = (*Store)(nil)

// Open opens (creating if necessary) the project-local learnings database
// at dbPath and migrates it to the latest schema.
func Open(dbPath, scope string) (*Store, error) {
	ls, err := learning.NewLearningStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open learning store: %w", err)
	}
	if err := ls.Migrate(); err != nil {
		ls.Close()
		return nil, fmt.Errorf("migrate learning store: %w", err)
	}
	if scope == "" {
		scope = "repo"
	}
	return &Store{learning: ls, scope: scope}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.learning.Close() }

// Save persists one coder.Insight as a learning row: the subtask ID plus
// its tags become the triggering condition, the insight summary becomes
// both the action and the outcome (the build loop has no separate
// action/outcome split), and Success maps to the outcome_type used by
// the learning store's retrieval ranking.
func (s *Store) Save(insight coder.Insight) error {
	outcomeType := "failure"
	if insight.Success {
		outcomeType = "success"
	}
	return s.learning.Create(&learning.Learning{
		ID:          uuid.NewString(),
		Condition:   conditionFor(insight),
		Action:      insight.Summary,
		Outcome:     insight.Summary,
		Scope:       s.scope,
		OutcomeType: outcomeType,
		CreatedAt:   time.Now(),
	})
}

// conditionFor renders the subtask ID and tags into the searchable
// condition field the learning store's FTS index matches against.
func conditionFor(insight coder.Insight) string {
	if len(insight.Tags) == 0 {
		return insight.SubtaskID
	}
	return insight.SubtaskID + " " + strings.Join(insight.Tags, " ")
}

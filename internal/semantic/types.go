// Package semantic implements §4.7: comparing a baseline file against a
// task's version of the same file and producing a typed list of
// SemanticChange records the merge pipeline can apply deterministically,
// instead of treating every edit as an opaque text blob.
package semantic

// ChangeType names the kind of top-level edit a SemanticChange records.
type ChangeType string

const (
	AddFunction    ChangeType = "add_function"
	RemoveFunction ChangeType = "remove_function"
	ModifyFunction ChangeType = "modify_function"
	AddImport      ChangeType = "add_import"
	RemoveImport   ChangeType = "remove_import"
)

// SemanticChange is one detected add/remove/modify of a top-level function
// or import, with the line range it occupies in the task's version.
type SemanticChange struct {
	ChangeType ChangeType `json:"change_type"`
	Target     string     `json:"target"`
	LineStart  int        `json:"line_start"`
	LineEnd    int        `json:"line_end"`
}

// EntityKind distinguishes the two top-level constructs the analyzer
// tracks.
type EntityKind string

const (
	KindFunction EntityKind = "function"
	KindImport   EntityKind = "import"
)

// Entity is one top-level function or import found by a language scanner,
// along with the exact line range and source text it occupies.
type Entity struct {
	Kind      EntityKind
	Name      string
	LineStart int
	LineEnd   int
	Body      string
}

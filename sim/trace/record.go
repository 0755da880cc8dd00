// Package trace provides decision-trace recording for the development-process model.
// This package has no dependencies on sim/ or its other sub-packages; it stores pure data types.
package trace

// DispatchRecord captures one Board lookup that handed work to a developer.
type DispatchRecord struct {
	Clock     int64
	Developer string
	Item      string // task or story ID
	Source    string // queue the item came from
}

// SkipRecord captures a story task passed over because it was not yet eligible.
type SkipRecord struct {
	Clock     int64
	Developer string
	TaskID    string
	Waiting   []string // prerequisite task IDs not yet at the required point
}

// ConflictRecord captures a sampled commit conflict.
type ConflictRecord struct {
	Clock     int64
	WorkID    string // work whose commit failed
	AgainstID string // earlier commit it conflicted with
	StartedAt int64  // start of the failed work window
	CommitAt  int64  // time of the conflicting commit
}

// SuspensionRecord captures a task delayed by a global blocker.
type SuspensionRecord struct {
	Clock   int64
	IssueID string
	TaskID  string
	Delay   int64
}

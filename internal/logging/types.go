// Package logging records per-turn provenance: which route ran, how
// affection moved, and how long the turn took. The log is the audit trail
// for debugging routing and affection drift.
package logging

import "time"

// #region turn-entry
// TurnEntry is a single row in the turn_log table.
type TurnEntry struct {
	TurnID          string
	ConversationID  string
	TurnCount       int
	Stages          string // comma-joined stage sequence, e.g. "quests,memory"
	AffectionBefore int
	AffectionAfter  int
	DurationMS      int64
	Error           string // empty on success
	CreatedAt       time.Time
}
// #endregion turn-entry

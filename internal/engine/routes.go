package engine

// #region stage-ids

// stageID names a routed pipeline stage. The response stage is not listed
// here because it runs unconditionally before routing.
type stageID string

const (
	stageQuests  stageID = "quests"
	stageProfile stageID = "profile"
	stageMemory  stageID = "memory"
)

// #endregion

// #region route-table

// routeBucket maps a turn-count range to an ordered stage sequence.
// Buckets are checked in order; belowTurns is an exclusive upper bound and
// -1 means unbounded.
type routeBucket struct {
	belowTurns int
	stages     []stageID
}

// routeTable is the complete routing policy: early turns extract memory
// only, mid conversation adds quest checks, and established conversations
// add profile growth. Thresholds are policy constants.
var routeTable = []routeBucket{
	{belowTurns: 3, stages: []stageID{stageMemory}},
	{belowTurns: 10, stages: []stageID{stageQuests, stageMemory}},
	{belowTurns: -1, stages: []stageID{stageQuests, stageProfile, stageMemory}},
}

// routeFor resolves the stage sequence for a turn count.
func routeFor(turnCount int) []stageID {
	for _, bucket := range routeTable {
		if bucket.belowTurns < 0 || turnCount < bucket.belowTurns {
			return bucket.stages
		}
	}
	return nil // unreachable: last bucket is unbounded
}

// RouteNames returns the stage names scheduled for a turn count, for
// provenance logging.
func RouteNames(turnCount int) []string {
	stages := routeFor(turnCount)
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = string(st)
	}
	return names
}

// #endregion

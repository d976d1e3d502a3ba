package persona

// #region stages

// Relationship stages in progression order. Each stage spans a 20-point
// affection band; the label is read-only context for the milestone quest check.
const (
	StageStranger     = "stranger"
	StageAcquaintance = "acquaintance"
	StageFriend       = "friend"
	StageCloseFriend  = "close_friend"
	StageSpecial      = "special"
)

// StageFor maps an affection score to its relationship stage band.
// Scores outside [0,100] are treated as the nearest bound.
func StageFor(affection int) string {
	switch {
	case affection < 20:
		return StageStranger
	case affection < 40:
		return StageAcquaintance
	case affection < 60:
		return StageFriend
	case affection < 80:
		return StageCloseFriend
	default:
		return StageSpecial
	}
}

// #endregion

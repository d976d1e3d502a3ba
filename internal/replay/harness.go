package replay

import (
	"context"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/engine"
	"github.com/companionkit/controller/internal/persona"
)

// #region types

// TurnOutcome captures one replayed turn.
type TurnOutcome struct {
	TurnID         string
	StagesCalled   []completion.Kind
	Result         engine.TurnResult
	AffectionAfter int
	StageAfter     string
	Err            error
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns     int
	Failures       int
	ClearedQuests  int
	FinalAffection int
	FinalStage     string
	FinalAddendum  string
}

// #endregion types

// #region replay

// Replay runs every fixture turn through the pipeline, threading history,
// affection, quests, and the addendum forward exactly as a live caller
// would. A failed turn records its error and stops the run, matching the
// no-partial-commit contract.
func Replay(ctx context.Context, f *Fixture) ([]TurnOutcome, Summary) {
	p := f.Persona
	affection := f.StartAffection
	routine := f.RoutineQuests
	milestone := f.MilestoneQuests
	var history []persona.Message

	outcomes := make([]TurnOutcome, 0, len(f.Turns))

	for _, turn := range f.Turns {
		port := completion.NewScripted()
		for kind, text := range turn.Outputs {
			port.Push(completion.Kind(kind), text)
		}

		result, err := engine.New(port).ProcessTurn(ctx, engine.TurnInput{
			UserMessage:     turn.UserMessage,
			Persona:         p,
			History:         history,
			RoutineQuests:   routine,
			MilestoneQuests: milestone,
			Affection:       affection,
			Stage:           persona.StageFor(affection),
		})

		outcome := TurnOutcome{
			TurnID:       turn.TurnID,
			StagesCalled: port.KindsCalled(),
			Result:       result,
			Err:          err,
		}
		if err != nil {
			outcome.AffectionAfter = affection
			outcome.StageAfter = persona.StageFor(affection)
			outcomes = append(outcomes, outcome)
			break
		}

		// Thread state forward, same order as the persistence layer.
		history = append(history,
			persona.Message{Role: persona.RoleUser, Content: turn.UserMessage},
			persona.Message{Role: persona.RoleAssistant, Content: result.Reply.Dialogue},
		)
		affection = result.UpdatedAffection
		if result.Quests.Checked {
			routine = result.Quests.Routine
			milestone = result.Quests.Milestone
		}
		if result.Addendum != "" {
			p.Addendum = result.Addendum
		}

		outcome.AffectionAfter = affection
		outcome.StageAfter = persona.StageFor(affection)
		outcomes = append(outcomes, outcome)
	}

	return outcomes, summarize(outcomes, affection, routine, milestone, p.Addendum)
}

func summarize(outcomes []TurnOutcome, affection int, routine, milestone []persona.Quest, addendum string) Summary {
	s := Summary{
		TotalTurns:     len(outcomes),
		FinalAffection: affection,
		FinalStage:     persona.StageFor(affection),
		FinalAddendum:  addendum,
	}
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failures++
		}
	}
	for _, q := range routine {
		if q.Cleared == 1 {
			s.ClearedQuests++
		}
	}
	for _, q := range milestone {
		if q.Cleared == 1 {
			s.ClearedQuests++
		}
	}
	return s
}

// #endregion replay

package engine

// #region imports
import (
	"context"
	"fmt"
	"log"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/persona"
)

// #endregion

// #region engine

// Engine coordinates the per-turn stage pipeline against an injected
// completion port. It holds no per-conversation state; callers must
// serialize ProcessTurn calls per conversation.
type Engine struct {
	port completion.Port
}

// New creates an engine backed by the given completion port.
func New(port completion.Port) *Engine {
	return &Engine{port: port}
}

// #endregion

// #region process-turn

// ProcessTurn runs one full turn: the response stage always, then the stage
// sequence the route table selects for the current turn count. Either every
// scheduled stage completes or the whole call fails; no partial result is
// returned.
func (e *Engine) ProcessTurn(ctx context.Context, in TurnInput) (TurnResult, error) {
	if in.Affection < 0 || in.Affection > 100 {
		return TurnResult{}, fmt.Errorf("affection %d out of range [0,100]", in.Affection)
	}
	if len(in.History)%2 != 0 {
		return TurnResult{}, fmt.Errorf("history has odd length %d, complete turns required", len(in.History))
	}

	turnCount := persona.TurnCount(in.History)
	route := routeFor(turnCount)
	log.Printf("[ENGINE] turn=%d route=%v", turnCount, route)

	reply, err := e.respond(ctx, in)
	if err != nil {
		return TurnResult{}, err
	}

	result := TurnResult{
		Reply:            reply,
		UpdatedAffection: clampAffection(reply.AffectionScore),
		Quests:           QuestUpdate{Routine: in.RoutineQuests, Milestone: in.MilestoneQuests},
		Addendum:         "",
		Memory:           emptyFacts(),
	}

	// Downstream stages see the turn that just happened, even though the
	// caller has not appended it yet.
	extended := make([]persona.Message, 0, len(in.History)+2)
	extended = append(extended, in.History...)
	extended = append(extended,
		persona.Message{Role: persona.RoleUser, Content: in.UserMessage},
		persona.Message{Role: persona.RoleAssistant, Content: reply.Dialogue},
	)

	for _, st := range route {
		switch st {
		case stageQuests:
			update, err := e.checkQuests(ctx, in, extended, result.UpdatedAffection)
			if err != nil {
				return TurnResult{}, err
			}
			result.Quests = update
		case stageProfile:
			addendum, err := e.updateProfile(ctx, in, extended, result.Quests)
			if err != nil {
				return TurnResult{}, err
			}
			result.Addendum = addendum
		case stageMemory:
			facts, err := e.extractMemory(ctx, in.Persona.Basics.Name, extended)
			if err != nil {
				return TurnResult{}, err
			}
			result.Memory = facts
		}
	}

	return result, nil
}

// #endregion

// #region clamp

// clampAffection bounds a raw score into [0,100]. This is the only place a
// stage value is corrected rather than rejected.
func clampAffection(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// #endregion

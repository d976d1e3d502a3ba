package engine

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/persona"
	"github.com/companionkit/controller/internal/prompts"
)

// #endregion

// #region quest-stage

// questPayload is the wire shape exchanged with the completion capability
// for both quest checks.
type questPayload struct {
	Quests []persona.Quest `json:"quests"`
}

// checkQuests runs the routine check on the last three turns and the
// milestone check on the full history, then merges both results. Empty
// collections skip their port call entirely.
func (e *Engine) checkQuests(ctx context.Context, in TurnInput, extended []persona.Message, affection int) (QuestUpdate, error) {
	update := QuestUpdate{
		Routine:   in.RoutineQuests,
		Milestone: in.MilestoneQuests,
		Checked:   true,
	}

	if len(in.RoutineQuests) > 0 {
		recent := prompts.FormatHistory(prompts.LastMessages(extended, 6))
		checked, err := e.runQuestCheck(ctx, completion.KindQuestCheck,
			prompts.QuestCheckSystem(),
			prompts.QuestCheckUser(recent, mustQuestJSON(in.RoutineQuests)),
			in.RoutineQuests,
		)
		if err != nil {
			return QuestUpdate{}, err
		}
		update.Routine = checked
	}

	if len(in.MilestoneQuests) > 0 {
		full := prompts.FormatHistory(extended)
		checked, err := e.runQuestCheck(ctx, completion.KindMilestoneCheck,
			prompts.MilestoneCheckSystem(affection, in.Stage),
			prompts.MilestoneCheckUser(full, mustQuestJSON(in.MilestoneQuests)),
			in.MilestoneQuests,
		)
		if err != nil {
			return QuestUpdate{}, err
		}
		update.Milestone = checked
	}

	return update, nil
}

func (e *Engine) runQuestCheck(ctx context.Context, kind completion.Kind, system, user string, input []persona.Quest) ([]persona.Quest, error) {
	res, err := e.port.Complete(ctx, completion.Request{
		Kind:     kind,
		System:   system,
		User:     user,
		WantJSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("quest stage (%s): %w", kind, err)
	}

	var payload questPayload
	if err := json.Unmarshal([]byte(jsonText(res.Text)), &payload); err != nil {
		return nil, fmt.Errorf("%w: quest stage (%s): %v", completion.ErrMalformedOutput, kind, err)
	}

	return mergeQuests(input, payload.Quests), nil
}

func mustQuestJSON(quests []persona.Quest) string {
	data, err := json.Marshal(questPayload{Quests: quests})
	if err != nil {
		return `{"quests":[]}` // unreachable for these field types
	}
	return string(data)
}

// #endregion

// #region merge

// mergeQuests applies proposed cleared flags onto the input collection,
// keyed by quest ID. Cleared flags never regress from 1 to 0, proposed
// quests with unknown IDs are dropped, and input quests the proposal omits
// pass through unchanged.
func mergeQuests(input, proposed []persona.Quest) []persona.Quest {
	proposedByID := make(map[string]persona.Quest, len(proposed))
	for _, q := range proposed {
		if q.ID != "" {
			proposedByID[q.ID] = q
		}
	}

	out := make([]persona.Quest, len(input))
	for i, q := range input {
		if p, ok := proposedByID[q.ID]; ok && p.Cleared == 1 {
			q.Cleared = 1
		}
		out[i] = q
	}
	return out
}

// #endregion

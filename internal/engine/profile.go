package engine

// #region imports
import (
	"context"
	"fmt"
	"strings"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/persona"
	"github.com/companionkit/controller/internal/prompts"
)

// #endregion

// #region profile-stage

// updateProfile asks the completion capability for new character insights
// from the last three turns. A "no significant updates" answer returns the
// input addendum untouched; anything else is appended under a fresh heading.
func (e *Engine) updateProfile(ctx context.Context, in TurnInput, extended []persona.Message, quests QuestUpdate) (string, error) {
	recent := prompts.FormatHistory(prompts.LastMessages(extended, 6))

	res, err := e.port.Complete(ctx, completion.Request{
		Kind:   completion.KindProfile,
		System: prompts.ProfileSystem(in.Persona.Traits, recent, questContext(quests)),
		User:   prompts.ProfileUser,
	})
	if err != nil {
		return "", fmt.Errorf("profile stage: %w", err)
	}

	addition := strings.TrimSpace(res.Text)
	if addition == "" || strings.Contains(strings.ToLower(addition), prompts.ProfileNoUpdateMarker) {
		return in.Persona.Addendum, nil
	}

	return persona.AppendAddendum(in.Persona.Addendum, addition), nil
}

// questContext summarizes quests cleared this turn for profile flavor.
func questContext(quests QuestUpdate) string {
	if !quests.Checked {
		return ""
	}
	var cleared []string
	for _, q := range quests.Routine {
		if q.Cleared == 1 {
			cleared = append(cleared, "- "+q.Title)
		}
	}
	for _, q := range quests.Milestone {
		if q.Cleared == 1 {
			cleared = append(cleared, "- "+q.Title+" (advancement)")
		}
	}
	if len(cleared) == 0 {
		return ""
	}
	return "Cleared quests:\n" + strings.Join(cleared, "\n")
}

// #endregion

package engine

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/prompts"
)

// #endregion

// #region respond

// replyEnvelope mirrors Reply with pointer fields so missing keys are
// distinguishable from zero values.
type replyEnvelope struct {
	Dialogue        *string `json:"dialogue"`
	Action          *string `json:"action"`
	Situation       *string `json:"situation"`
	Background      *string `json:"background"`
	AffectionScore  *int    `json:"affection_score"`
	AffectionChange *int    `json:"affection_change"`
	InternalThought *string `json:"internal_thought"`
}

// respond runs the response stage and validates its structured output.
// A missing field or empty dialogue fails the whole turn; an out-of-range
// score does not, the caller clamps it.
func (e *Engine) respond(ctx context.Context, in TurnInput) (Reply, error) {
	history := make([]completion.Message, len(in.History))
	for i, m := range in.History {
		history[i] = completion.Message{Role: m.Role, Content: m.Content}
	}

	res, err := e.port.Complete(ctx, completion.Request{
		Kind:     completion.KindRespond,
		System:   prompts.ChatSystem(prompts.CharacterContext(in.Persona), in.Affection),
		History:  history,
		User:     in.UserMessage,
		WantJSON: true,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("response stage: %w", err)
	}

	var env replyEnvelope
	if err := json.Unmarshal([]byte(jsonText(res.Text)), &env); err != nil {
		return Reply{}, fmt.Errorf("%w: response stage: %v", completion.ErrMalformedOutput, err)
	}
	if env.Dialogue == nil || env.Action == nil || env.Situation == nil ||
		env.Background == nil || env.AffectionScore == nil ||
		env.AffectionChange == nil || env.InternalThought == nil {
		return Reply{}, fmt.Errorf("%w: response stage: missing required field", completion.ErrMalformedOutput)
	}
	if *env.Dialogue == "" {
		return Reply{}, fmt.Errorf("%w: response stage: empty dialogue", completion.ErrMalformedOutput)
	}

	return Reply{
		Dialogue:        *env.Dialogue,
		Action:          *env.Action,
		Situation:       *env.Situation,
		Background:      *env.Background,
		AffectionScore:  *env.AffectionScore,
		AffectionChange: *env.AffectionChange,
		InternalThought: *env.InternalThought,
	}, nil
}

// #endregion

// #region json-text

// jsonText strips markdown code fences some models wrap around JSON output.
func jsonText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// #endregion

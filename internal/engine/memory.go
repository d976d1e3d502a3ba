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

// #region memory-stage

// extractMemory categorizes the most recent (user, reply) pair into atomic
// facts. Without at least one complete pair it short-circuits to an empty
// bundle without touching the completion capability.
func (e *Engine) extractMemory(ctx context.Context, characterName string, extended []persona.Message) (FactBundle, error) {
	if len(extended) < 2 {
		return emptyFacts(), nil
	}

	userMsg := extended[len(extended)-2]
	assistantMsg := extended[len(extended)-1]

	res, err := e.port.Complete(ctx, completion.Request{
		Kind:     completion.KindMemory,
		System:   prompts.MemorySystem(characterName),
		User:     prompts.MemoryUser(prompts.FormatTurn(userMsg.Content, assistantMsg.Content)),
		WantJSON: true,
	})
	if err != nil {
		return FactBundle{}, fmt.Errorf("memory stage: %w", err)
	}

	var bundle FactBundle
	if err := json.Unmarshal([]byte(jsonText(res.Text)), &bundle); err != nil {
		return FactBundle{}, fmt.Errorf("%w: memory stage: %v", completion.ErrMalformedOutput, err)
	}
	bundle.normalize()
	return bundle, nil
}

// #endregion

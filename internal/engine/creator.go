package engine

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/persona"
	"github.com/companionkit/controller/internal/prompts"
)

// #endregion

// #region create-persona

// CreatePersona generates a full character from its basics: first a worldview
// as free text, then a trait bundle consistent with that worldview.
func (e *Engine) CreatePersona(ctx context.Context, basics persona.Basics) (persona.Persona, error) {
	if basics.Name == "" {
		return persona.Persona{}, fmt.Errorf("character name is required")
	}

	worldRes, err := e.port.Complete(ctx, completion.Request{
		Kind:   completion.KindWorldview,
		System: prompts.WorldviewSystem(),
		User:   prompts.WorldviewUser(basics),
	})
	if err != nil {
		return persona.Persona{}, fmt.Errorf("worldview generation: %w", err)
	}
	worldview := strings.TrimSpace(worldRes.Text)

	detailRes, err := e.port.Complete(ctx, completion.Request{
		Kind:     completion.KindDetails,
		System:   prompts.DetailsSystem(),
		User:     prompts.DetailsUser(basics, worldview),
		WantJSON: true,
	})
	if err != nil {
		return persona.Persona{}, fmt.Errorf("detail generation: %w", err)
	}

	var traits persona.TraitBundle
	if err := json.Unmarshal([]byte(jsonText(detailRes.Text)), &traits); err != nil {
		return persona.Persona{}, fmt.Errorf("%w: detail generation: %v", completion.ErrMalformedOutput, err)
	}

	return persona.Persona{
		Basics:    basics,
		Worldview: worldview,
		Traits:    traits,
	}, nil
}

// #endregion

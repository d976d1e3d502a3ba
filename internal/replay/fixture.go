// Package replay runs recorded conversations through the turn pipeline with
// scripted completion outputs, so routing, affection, and quest behavior can
// be verified deterministically from fixture files.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/companionkit/controller/internal/persona"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string          `json:"description"`
	Persona         persona.Persona `json:"persona"`
	StartAffection  int             `json:"start_affection"`
	RoutineQuests   []persona.Quest `json:"routine_quests"`
	MilestoneQuests []persona.Quest `json:"milestone_quests"`
	Turns           []FixtureTurn   `json:"turns"`
}

// FixtureTurn is one recorded user turn plus the completion outputs to
// script for it, keyed by stage kind ("respond", "quest_check",
// "milestone_check", "profile", "memory").
type FixtureTurn struct {
	TurnID      string            `json:"turn_id"`
	UserMessage string            `json:"user_message"`
	Outputs     map[string]string `json:"outputs"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.StartAffection < 0 || f.StartAffection > 100 {
		return nil, fmt.Errorf("fixture %s: start_affection %d out of range", path, f.StartAffection)
	}
	return &f, nil
}

// #endregion fixture-loader
